package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Sweeper interface {
	SweepMissed(ctx context.Context) (int, error)
}

// MissedSweeper moves scheduled sessions whose window has closed to missed.
type MissedSweeper struct {
	Sessions Sweeper
	Interval time.Duration
	Logger   *logrus.Logger
}

// Run blocks until ctx is done.
func (m *MissedSweeper) Run(ctx context.Context) {
	if m.Interval <= 0 {
		m.Interval = time.Minute
	}
	if m.Logger == nil {
		m.Logger = logrus.New()
	}

	t := time.NewTicker(m.Interval)
	defer t.Stop()
	for {
		m.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (m *MissedSweeper) sweep(ctx context.Context) {
	n, err := m.Sessions.SweepMissed(ctx)
	if err != nil {
		m.Logger.WithError(err).Error("missed session sweep failed")
		return
	}
	if n > 0 {
		m.Logger.WithField("count", n).Info("sessions marked missed")
	}
}
