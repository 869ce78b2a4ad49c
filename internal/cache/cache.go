package cache

import (
	"context"
	"time"
)

// Cache stores JSON snapshots of materialized aggregates in front of postgres.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

func ProgressKey(studentID string) string { return "progress:" + studentID }

func TeacherStatsKey(teacherID string) string { return "teacher_stats:" + teacherID }

// Noop is used when no redis is configured.
type Noop struct{}

func (Noop) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (Noop) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Del(context.Context, ...string) error                      { return nil }
