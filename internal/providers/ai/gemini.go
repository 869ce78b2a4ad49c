package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/llm"
)

var (
	ErrNoQuestions = errors.New("ai: model returned no usable questions")

	numberingRe = regexp.MustCompile(`^\d+[.)]?\s*`)
	jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)
	scoreRe     = regexp.MustCompile(`(?i)(\d+)/100|(\d+)\s*points?|score:\s*(\d+)`)
)

var typeInstructions = map[models.InterviewType]string{
	models.InterviewTechnical:     "Focus on technical skills, programming concepts, problem-solving, and technologies mentioned in the resume.",
	models.InterviewCommunication: "Focus on behavioral questions, teamwork, leadership, conflict resolution, and communication skills.",
	models.InterviewAptitude:      "Focus on logical reasoning, analytical thinking, problem-solving, and cognitive abilities.",
}

// Gemini implements the collaborators on top of an llm.Provider.
type Gemini struct {
	llm llm.Provider
}

func NewGemini(p llm.Provider) *Gemini {
	return &Gemini{llm: p}
}

func (g *Gemini) Generate(ctx context.Context, req QuestionRequest) ([]GeneratedQuestion, error) {
	text, err := g.llm.Complete(ctx, questionPrompt(req))
	if err != nil {
		return nil, err
	}

	lines := ParseQuestions(text, req.Count)
	if len(lines) == 0 {
		return nil, ErrNoQuestions
	}

	out := make([]GeneratedQuestion, 0, req.Count)
	for _, l := range lines {
		out = append(out, GeneratedQuestion{
			Text:             l,
			Difficulty:       req.Difficulty,
			Category:         string(req.InterviewType),
			TimeLimitSeconds: req.TimeLimitSeconds,
			ExpectedLength:   "medium",
			Source:           SourceAI,
		})
	}
	// Top up a short model answer from the canned list.
	if fb := FallbackQuestions(req); len(out) < len(fb) {
		out = append(out, fb[len(out):]...)
	}
	return out, nil
}

func (g *Gemini) Score(ctx context.Context, question, answer string, t models.InterviewType) (Score, error) {
	text, err := g.llm.Complete(ctx, scoringPrompt(question, answer, t))
	if err != nil {
		return Score{}, err
	}
	value, feedback := ParseScore(text)
	return Score{Value: value, Feedback: feedback, Source: SourceAI}, nil
}

func (g *Gemini) Write(ctx context.Context, req FeedbackRequest) (FeedbackDraft, error) {
	text, err := g.llm.Complete(ctx, feedbackPrompt(req))
	if err != nil {
		return FeedbackDraft{}, err
	}

	var parsed struct {
		Summary         string   `json:"summary"`
		Strengths       []string `json:"strengths"`
		Weaknesses      []string `json:"weaknesses"`
		Recommendations []string `json:"recommendations"`
	}
	if m := jsonBlockRe.FindString(text); m != "" && json.Unmarshal([]byte(m), &parsed) == nil && parsed.Summary != "" {
		return FeedbackDraft{
			Summary:         parsed.Summary,
			Strengths:       parsed.Strengths,
			Weaknesses:      parsed.Weaknesses,
			Recommendations: parsed.Recommendations,
			Source:          SourceAI,
		}, nil
	}
	return FeedbackDraft{Summary: strings.TrimSpace(text), Source: SourceAI}, nil
}

// ParseQuestions pulls numbered question lines out of a model answer.
func ParseQuestions(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q := strings.TrimSpace(numberingRe.ReplaceAllString(line, ""))
		if len(q) > 10 {
			out = append(out, q)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ParseScore reads {"score":..,"feedback":..} from text, then falls back to
// "N/100", "N points" or "score: N" patterns, then to 50.
func ParseScore(text string) (int, string) {
	if m := jsonBlockRe.FindString(text); m != "" {
		var parsed struct {
			Score    json.Number `json:"score"`
			Feedback string      `json:"feedback"`
		}
		if err := json.Unmarshal([]byte(m), &parsed); err == nil {
			if f, err := parsed.Score.Float64(); err == nil {
				fb := parsed.Feedback
				if fb == "" {
					fb = "No feedback provided"
				}
				return clampScore(int(f)), fb
			}
		}
	}

	if sm := scoreRe.FindStringSubmatch(text); sm != nil {
		for _, g := range sm[1:] {
			if g == "" {
				continue
			}
			if n, err := strconv.Atoi(g); err == nil {
				return clampScore(n), text
			}
		}
	}
	return 50, text
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func questionPrompt(req QuestionRequest) string {
	instr, ok := typeInstructions[req.InterviewType]
	if !ok {
		instr = "Generate appropriate questions for this interview type."
	}
	return fmt.Sprintf(`Based on the following resume content, generate %d %s interview questions at %s difficulty.

Resume Content:
%s

Instructions:
- %s
- Questions should be relevant to the candidate's background and experience level
- Each question should be answerable in about %d seconds
- Make questions specific and actionable
- Avoid generic questions

Return only the questions as a numbered list, one question per line.`,
		req.Count, req.InterviewType, req.Difficulty, req.Profile, instr, req.TimeLimitSeconds)
}

func scoringPrompt(question, answer string, t models.InterviewType) string {
	return fmt.Sprintf(`Evaluate the following interview answer and provide a score with detailed feedback.

Question: %s
Answer: %s
Interview Type: %s

Scoring Criteria (Total: 100 points):
- Relevance and accuracy (25 points)
- Completeness and depth (25 points)
- Clarity and communication (25 points)
- Examples and practical application (25 points)

Respond in JSON: {"score": <integer 0-100>, "feedback": "<detailed feedback explaining the score>"}`,
		question, answer, t)
}

func feedbackPrompt(req FeedbackRequest) string {
	var qa strings.Builder
	for i, p := range req.QA {
		fmt.Fprintf(&qa, "Q%d: %s\nA%d: %s\nScore: %d/100\n\n", i+1, p.Question, i+1, p.Answer, p.Score)
	}
	return fmt.Sprintf(`Based on the following interview session, provide constructive, encouraging feedback.

Interview Type: %s
Overall Score: %d/100
Questions Asked: %d

Question-Answer Analysis:
%s
Respond in JSON: {"summary": "...", "strengths": ["..."], "weaknesses": ["..."], "recommendations": ["..."]}`,
		req.InterviewType, req.OverallScore, len(req.QA), qa.String())
}
