// Package scoring resolves the overall score of an interview session.
package scoring

import (
	"math"

	"github.com/yoockh/yoointerview/internal/models"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Resolve returns the overall score of s in [0,100]. An attached Feedback is
// authoritative; without one the score is the mean over answered questions,
// with an unscored answer counting as 0. It reads s.Feedback and
// s.Questions[i].Response only and has no side effects.
func Resolve(s *models.InterviewSession) float64 {
	if s == nil {
		return 0
	}
	if s.Feedback != nil {
		return Clamp(float64(s.Feedback.OverallScore))
	}
	return ResponseAverage(s.Questions)
}

// ResponseAverage is the interim estimate used before Feedback exists.
func ResponseAverage(questions []models.Question) float64 {
	var (
		sum      float64
		answered int
	)
	for _, q := range questions {
		if q.Response == nil {
			continue
		}
		answered++
		if q.Response.Score != nil {
			sum += float64(*q.Response.Score)
		}
	}
	if answered == 0 {
		return 0
	}
	return Clamp(Round2(sum / float64(answered)))
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < MinScore:
		return MinScore
	case v > MaxScore:
		return MaxScore
	}
	return v
}

// Mean returns the arithmetic mean of vs, or 0 for an empty slice.
func Mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
