// Package ai holds the interview collaborators backed by a language model:
// question generation, answer scoring and feedback writing. Every
// collaborator has a deterministic fallback and a timeout wrapper so
// session progression never waits on the model.
package ai

import (
	"context"

	"github.com/yoockh/yoointerview/internal/models"
)

const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

type QuestionRequest struct {
	Profile          string
	InterviewType    models.InterviewType
	Count            int
	Difficulty       models.Difficulty
	TimeLimitSeconds int
}

type GeneratedQuestion struct {
	Text             string
	Difficulty       models.Difficulty
	Category         string
	TimeLimitSeconds int
	ExpectedLength   string
	Source           string
}

type QuestionGenerator interface {
	Generate(ctx context.Context, req QuestionRequest) ([]GeneratedQuestion, error)
}

type Score struct {
	Value    int
	Feedback string
	Source   string
}

type AnswerScorer interface {
	Score(ctx context.Context, question, answer string, t models.InterviewType) (Score, error)
}

type QAPair struct {
	Question string
	Answer   string
	Score    int
}

type FeedbackRequest struct {
	InterviewType models.InterviewType
	OverallScore  int
	QA            []QAPair
}

type FeedbackDraft struct {
	Summary         string
	Strengths       []string
	Weaknesses      []string
	Recommendations []string
	Source          string
}

type FeedbackWriter interface {
	Write(ctx context.Context, req FeedbackRequest) (FeedbackDraft, error)
}
