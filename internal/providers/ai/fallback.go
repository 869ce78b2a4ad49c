package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/yoockh/yoointerview/internal/models"
)

var fallbackQuestions = map[models.InterviewType][]string{
	models.InterviewTechnical: {
		"Explain your experience with the main programming languages in your resume.",
		"Describe a challenging technical problem you've solved recently.",
		"How do you approach debugging complex issues?",
		"What are your thoughts on code review processes?",
		"Explain a technical concept you've learned recently.",
		"How do you stay updated with new technologies?",
		"Describe your experience with version control systems.",
		"What testing methodologies are you familiar with?",
		"How do you handle database optimization?",
		"Explain your approach to API design.",
	},
	models.InterviewCommunication: {
		"Tell me about a time when you had to explain a complex technical concept to a non-technical person.",
		"Describe a situation where you had to work with a difficult team member.",
		"How do you handle disagreements with colleagues?",
		"Tell me about a time when you had to adapt to a significant change at work.",
		"Describe your leadership style and give an example.",
		"How do you prioritize tasks when you have multiple deadlines?",
		"Tell me about a time when you made a mistake and how you handled it.",
		"Describe a situation where you had to work under pressure.",
		"How do you handle feedback and criticism?",
		"Tell me about a time when you had to motivate a team.",
	},
	models.InterviewAptitude: {
		"If you have 8 balls and one is heavier than the others, how would you find it using a balance scale only twice?",
		"How would you estimate the number of windows in a skyscraper?",
		"Explain how you would design a system to handle a million users.",
		"What would you do if you inherited a legacy codebase with no documentation?",
		"How would you approach learning a completely new technology stack?",
		"Describe your problem-solving process for complex issues.",
		"How would you optimize a slow-performing application?",
		"What factors would you consider when choosing between different solutions?",
		"How would you handle a situation where requirements keep changing?",
		"Describe how you would architect a scalable system.",
	},
}

var positiveKeywords = []string{"experience", "implement", "develop", "manage", "lead", "optimize", "improve"}

// FallbackQuestions returns the canned list for t, truncated to count.
// Unknown types use the technical list.
func FallbackQuestions(req QuestionRequest) []GeneratedQuestion {
	list, ok := fallbackQuestions[req.InterviewType]
	if !ok {
		list = fallbackQuestions[models.InterviewTechnical]
	}
	n := req.Count
	if n <= 0 || n > len(list) {
		n = len(list)
	}

	out := make([]GeneratedQuestion, 0, n)
	for _, text := range list[:n] {
		out = append(out, GeneratedQuestion{
			Text:             text,
			Difficulty:       req.Difficulty,
			Category:         string(req.InterviewType),
			TimeLimitSeconds: req.TimeLimitSeconds,
			ExpectedLength:   "medium",
			Source:           SourceFallback,
		})
	}
	return out
}

// HeuristicScore rates an answer by length and a fixed keyword list.
func HeuristicScore(answer string) Score {
	score := 50
	if len(answer) > 100 {
		score += 10
	}
	if len(answer) > 200 {
		score += 10
	}
	lower := strings.ToLower(answer)
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			score += 5
		}
	}
	if score > 100 {
		score = 100
	}
	return Score{
		Value:    score,
		Feedback: fmt.Sprintf("Your answer demonstrates understanding of the topic. Score: %d/100. Consider providing more specific examples and details to improve your response.", score),
		Source:   SourceFallback,
	}
}

func performanceBand(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	default:
		return "needs improvement"
	}
}

func FallbackFeedback(req FeedbackRequest) FeedbackDraft {
	t := string(req.InterviewType)
	if t == "" {
		t = "general"
	}
	summary := fmt.Sprintf("Thank you for completing the %s interview. Your overall performance was %s with a score of %d/100.",
		t, performanceBand(req.OverallScore), req.OverallScore)

	return FeedbackDraft{
		Summary:    summary,
		Strengths:  []string{"Continue to build on your strengths"},
		Weaknesses: []string{"Consider additional preparation for areas where you scored lower"},
		Recommendations: []string{
			"Focus on providing specific examples in your answers",
			"Practice explaining complex concepts clearly",
		},
		Source: SourceFallback,
	}
}

// Fallback implements every collaborator without calling out.
type Fallback struct{}

func (Fallback) Generate(_ context.Context, req QuestionRequest) ([]GeneratedQuestion, error) {
	return FallbackQuestions(req), nil
}

func (Fallback) Score(_ context.Context, _, answer string, _ models.InterviewType) (Score, error) {
	return HeuristicScore(answer), nil
}

func (Fallback) Write(_ context.Context, req FeedbackRequest) (FeedbackDraft, error) {
	return FallbackFeedback(req), nil
}
