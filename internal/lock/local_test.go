package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "student:1", time.Second)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer release()
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInside)
	}
	if n := l.size(); n != 0 {
		t.Fatalf("slots not cleaned up: %d", n)
	}
}

func TestLocalBoundedWait(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	start := time.Now()
	_, err = l.Acquire(context.Background(), "k", 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("wait was not bounded")
	}

	release()
	release()

	again, err := l.Acquire(context.Background(), "k", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	again()
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	a, err := l.Acquire(context.Background(), "a", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer a()
	b, err := l.Acquire(context.Background(), "b", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("other key blocked: %v", err)
	}
	b()
}

func TestLocalContextCancel(t *testing.T) {
	l := NewLocal()
	hold, _ := l.Acquire(context.Background(), "k", time.Second)
	defer hold()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Acquire(ctx, "k", time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}
