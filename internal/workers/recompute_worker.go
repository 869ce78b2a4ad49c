package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/services"
)

const (
	DefaultRecomputeStream = "aggregates:recompute"
	DefaultRecomputeGroup  = "recompute-workers"
)

// JobRunner executes one recompute job under the usual lock and liveness checks.
type JobRunner interface {
	Run(ctx context.Context, job services.RecomputeJob) error
}

// StreamQueue enqueues recompute jobs on a redis stream.
type StreamQueue struct {
	Redis  *redis.Client
	Stream string
	MaxLen int64
}

func (q *StreamQueue) Enqueue(ctx context.Context, job services.RecomputeJob) error {
	stream := q.Stream
	if stream == "" {
		stream = DefaultRecomputeStream
	}
	maxLen := q.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]any{"kind": job.Kind, "owner_id": job.OwnerID},
	}).Err()
}

// RecomputeWorkerPool consumes the recompute stream in async mode. Jobs are
// acked even when they fail: the next event for the owner re-derives the
// aggregate from scratch.
type RecomputeWorkerPool struct {
	Redis      *redis.Client
	Runner     JobRunner
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *RecomputeWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Runner == nil {
		return errors.New("RecomputeWorkerPool missing dependency: Redis/Runner must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultRecomputeStream
	}
	if p.Group == "" {
		p.Group = DefaultRecomputeGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	p.Logger.WithFields(logrus.Fields{"stream": p.Stream, "workers": p.NumWorkers}).Info("recompute workers started")
	return nil
}

func (p *RecomputeWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithField("consumer", consumer).WithError(err).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func decodeJob(values map[string]any) (services.RecomputeJob, bool) {
	getStr := func(k string) string {
		v, ok := values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}
	job := services.RecomputeJob{Kind: getStr("kind"), OwnerID: getStr("owner_id")}
	return job, job.Kind != "" && job.OwnerID != ""
}

func (p *RecomputeWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	job, ok := decodeJob(msg.Values)
	log := p.Logger.WithFields(logrus.Fields{
		"redis_id": msg.ID,
		"kind":     job.Kind,
		"owner_id": job.OwnerID,
	})
	if !ok {
		log.Warn("malformed recompute job dropped")
		return
	}

	start := time.Now()
	if err := p.Runner.Run(ctx, job); err != nil {
		log.WithError(err).Error("recompute job failed")
		return
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("recompute job done")
}
