package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type Handler func(ctx context.Context, ev Event) error

// Publisher is what mutating services depend on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type subscription struct {
	name    string
	handler Handler
}

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine and context.
type Bus struct {
	mu   sync.RWMutex
	subs map[Kind][]subscription
	log  logrus.FieldLogger
}

func NewBus(log logrus.FieldLogger) *Bus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bus{subs: map[Kind][]subscription{}, log: log}
}

func (b *Bus) Subscribe(kind Kind, name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[kind] = append(b.subs[kind], subscription{name: name, handler: h})
}

// On registers a handler typed to E's kind.
func On[E Event](b *Bus, name string, h func(ctx context.Context, ev E) error) {
	var zero E
	b.Subscribe(zero.Kind(), name, func(ctx context.Context, ev Event) error {
		typed, ok := ev.(E)
		if !ok {
			return fmt.Errorf("events: %s got %T", name, ev)
		}
		return h(ctx, typed)
	})
}

// Publish runs every handler for ev.Kind(). A failing handler does not stop
// the ones after it; all failures are joined into the returned error.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[ev.Kind()]...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := b.dispatch(ctx, s, ev); err != nil {
			b.log.WithFields(logrus.Fields{
				"event":   ev.Kind(),
				"handler": s.name,
			}).WithError(err).Error("event handler failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) dispatch(ctx context.Context, s subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler(ctx, ev)
}
