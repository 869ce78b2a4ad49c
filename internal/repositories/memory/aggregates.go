package memory

import (
	"context"
	"sort"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/utils"
)

type progressView struct{ s *Store }

type statsView struct{ s *Store }

func (s *Store) Progress() postgres.ProgressRepository         { return progressView{s} }
func (s *Store) TeacherStats() postgres.TeacherStatsRepository { return statsView{s} }

func (v progressView) Get(_ context.Context, studentID string) (*models.StudentProgress, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	p, ok := v.s.progress[studentID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	out := copyProgress(p)
	return &out, nil
}

func (v progressView) Upsert(_ context.Context, p *models.StudentProgress) error {
	if hook := v.s.BeforeProgressUpsert; hook != nil {
		hook(p.StudentID)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.users[p.StudentID]; !ok {
		return violation("student_progress_student_id_fkey")
	}
	v.s.progress[p.StudentID] = copyProgress(*p)
	return nil
}

func (v progressView) TopPerformers(_ context.Context, limit int) ([]models.StudentProgress, error) {
	if limit <= 0 {
		limit = 10
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []models.StudentProgress
	for _, p := range v.s.progress {
		if p.CompletedInterviews > 0 {
			out = append(out, copyProgress(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageScore == out[j].AverageScore {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].AverageScore > out[j].AverageScore
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v statsView) Get(_ context.Context, teacherID string) (*models.TeacherStats, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	st, ok := v.s.stats[teacherID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	out := copyStats(st)
	return &out, nil
}

func (v statsView) Upsert(_ context.Context, st *models.TeacherStats) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.users[st.TeacherID]; !ok {
		return violation("teacher_stats_teacher_id_fkey")
	}
	v.s.stats[st.TeacherID] = copyStats(*st)
	return nil
}

func (v statsView) MarkStale(_ context.Context, teacherID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if st, ok := v.s.stats[teacherID]; ok {
		st.Stale = true
		v.s.stats[teacherID] = st
	}
	return nil
}
