package lifecycle

import (
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

const (
	MinQuestions = 3
	MaxQuestions = 12

	MinQuestionTime = 2 * time.Minute
	MaxQuestionTime = 10 * time.Minute
)

var baseQuestions = map[models.Difficulty]int{
	models.DifficultyEasy:   8,
	models.DifficultyMedium: 6,
	models.DifficultyHard:   4,
}

var timeMultiplier = map[models.Difficulty]float64{
	models.DifficultyEasy:   0.8,
	models.DifficultyMedium: 1.0,
	models.DifficultyHard:   1.3,
}

// QuestionCount scales the per-hour base for the difficulty to the remaining time.
func QuestionCount(remaining time.Duration, d models.Difficulty) int {
	base, ok := baseQuestions[d]
	if !ok {
		base = baseQuestions[models.DifficultyMedium]
	}
	n := int(float64(base) * remaining.Hours())
	return clampInt(n, MinQuestions, MaxQuestions)
}

// QuestionTimeLimit splits total evenly over count questions, weighted by difficulty.
func QuestionTimeLimit(total time.Duration, count int, d models.Difficulty) time.Duration {
	if count <= 0 {
		count = 1
	}
	mult, ok := timeMultiplier[d]
	if !ok {
		mult = 1.0
	}
	perQuestion := int64(total/time.Second) / int64(count)
	secs := time.Duration(float64(perQuestion)*mult) * time.Second
	if secs < MinQuestionTime {
		return MinQuestionTime
	}
	if secs > MaxQuestionTime {
		return MaxQuestionTime
	}
	return secs
}

// PlanningWindow is the time the question set should cover.
func PlanningWindow(s *models.InterviewSession, now time.Time) time.Duration {
	if s.Status == models.StatusInProgress && now.Before(s.EndAt) {
		return s.EndAt.Sub(now)
	}
	return time.Duration(s.DurationMinutes) * time.Minute
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
