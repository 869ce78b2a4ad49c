package workers

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/services"
)

type fakeRunner struct {
	mu   sync.Mutex
	jobs []services.RecomputeJob
	err  error
}

func (f *fakeRunner) Run(_ context.Context, job services.RecomputeJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.err
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDecodeJob(t *testing.T) {
	cases := []struct {
		values map[string]any
		ok     bool
	}{
		{map[string]any{"kind": services.JobStudentProgress, "owner_id": "s1"}, true},
		{map[string]any{"kind": services.JobTeacherStats}, false},
		{map[string]any{"kind": 7, "owner_id": "s1"}, false},
		{nil, false},
	}
	for i, tc := range cases {
		if _, ok := decodeJob(tc.values); ok != tc.ok {
			t.Errorf("case %d: ok = %v, want %v", i, ok, tc.ok)
		}
	}
}

func TestHandleMsgRunsJob(t *testing.T) {
	r := &fakeRunner{}
	p := &RecomputeWorkerPool{Runner: r, Logger: quiet()}

	p.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"kind": services.JobTeacherStats, "owner_id": "t1"}})
	p.handleMsg(context.Background(), redis.XMessage{ID: "2-0", Values: map[string]any{"owner_id": "t1"}})

	r.err = errors.New("boom")
	p.handleMsg(context.Background(), redis.XMessage{ID: "3-0", Values: map[string]any{"kind": services.JobStudentProgress, "owner_id": "s1"}})

	if len(r.jobs) != 2 {
		t.Fatalf("ran %d jobs, want 2", len(r.jobs))
	}
	if r.jobs[0] != (services.RecomputeJob{Kind: services.JobTeacherStats, OwnerID: "t1"}) {
		t.Fatalf("unexpected job %+v", r.jobs[0])
	}
}

func TestStartRequiresDependencies(t *testing.T) {
	if err := (&RecomputeWorkerPool{}).Start(context.Background()); err == nil {
		t.Fatal("expected error without redis and runner")
	}
}

type countingSweeper struct {
	n   atomic.Int32
	err error
}

func (c *countingSweeper) SweepMissed(context.Context) (int, error) {
	c.n.Add(1)
	return 1, c.err
}

func TestMissedSweeperRunsUntilCancelled(t *testing.T) {
	sw := &countingSweeper{}
	m := &MissedSweeper{Sessions: sw, Interval: 5 * time.Millisecond, Logger: quiet()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sw.n.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("sweeper ran %d times", sw.n.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
