package ai

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/models"
)

// Collaborator is the full set a primary backend provides.
type Collaborator interface {
	QuestionGenerator
	AnswerScorer
	FeedbackWriter
}

// Resilient bounds every primary call by timeout and substitutes the
// deterministic fallback on error. It never returns an error.
type Resilient struct {
	primary Collaborator
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewResilient wraps primary. A nil primary means fallback only.
func NewResilient(primary Collaborator, timeout time.Duration, log logrus.FieldLogger) *Resilient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Resilient{primary: primary, timeout: timeout, log: log}
}

// within returns when fn does or when the deadline passes, whichever is first.
func within[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(cctx)
		ch <- result{v, err}
	}()

	select {
	case res := <-ch:
		return res.v, res.err
	case <-cctx.Done():
		var zero T
		return zero, cctx.Err()
	}
}

func (r *Resilient) warn(op string, err error, fields logrus.Fields) {
	if r.log == nil {
		return
	}
	fields["op"] = op
	r.log.WithFields(fields).WithError(err).Warn("ai collaborator failed, using fallback")
}

func (r *Resilient) Generate(ctx context.Context, req QuestionRequest) ([]GeneratedQuestion, error) {
	if r.primary == nil {
		return FallbackQuestions(req), nil
	}
	qs, err := within(ctx, r.timeout, func(c context.Context) ([]GeneratedQuestion, error) {
		return r.primary.Generate(c, req)
	})
	if err == nil && len(qs) == 0 {
		err = ErrNoQuestions
	}
	if err != nil {
		r.warn("ai.Generate", err, logrus.Fields{"interview_type": req.InterviewType, "count": req.Count})
		return FallbackQuestions(req), nil
	}
	return qs, nil
}

func (r *Resilient) Score(ctx context.Context, question, answer string, t models.InterviewType) (Score, error) {
	if r.primary == nil {
		return HeuristicScore(answer), nil
	}
	s, err := within(ctx, r.timeout, func(c context.Context) (Score, error) {
		return r.primary.Score(c, question, answer, t)
	})
	if err != nil {
		r.warn("ai.Score", err, logrus.Fields{"interview_type": t})
		return HeuristicScore(answer), nil
	}
	s.Value = clampScore(s.Value)
	return s, nil
}

func (r *Resilient) Write(ctx context.Context, req FeedbackRequest) (FeedbackDraft, error) {
	if r.primary == nil {
		return FallbackFeedback(req), nil
	}
	d, err := within(ctx, r.timeout, func(c context.Context) (FeedbackDraft, error) {
		return r.primary.Write(c, req)
	})
	if err != nil {
		r.warn("ai.Write", err, logrus.Fields{"interview_type": req.InterviewType})
		return FallbackFeedback(req), nil
	}
	return d, nil
}
