package memory

import (
	"context"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/utils"
)

type userView struct{ s *Store }

type linkView struct{ s *Store }

type profileView struct{ s *Store }

func (s *Store) Users() postgres.UserRepository                     { return userView{s} }
func (s *Store) TeacherStudents() postgres.TeacherStudentRepository { return linkView{s} }
func (s *Store) Profiles() postgres.ProfileRepository               { return profileView{s} }

func (v userView) Exists(_ context.Context, id string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	_, ok := v.s.users[id]
	return ok, nil
}

func (v userView) GetByID(_ context.Context, id string) (*models.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	u, ok := v.s.users[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &u, nil
}

func (v userView) Create(_ context.Context, u *models.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u.ID = newID(u.ID)
	if _, ok := v.s.users[u.ID]; ok {
		return utils.E(utils.CodeConflict, "memory.Users.Create", "user exists", nil)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = v.s.now()
	}
	v.s.users[u.ID] = *u
	return nil
}

func (v userView) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.users[id]; !ok {
		return utils.ErrNotFound
	}
	v.s.deleteUserLocked(id)
	return nil
}

func (v linkView) Assign(_ context.Context, m *models.TeacherStudent) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.users[m.TeacherID]; !ok {
		return violation("teacher_students_teacher_id_fkey")
	}
	if _, ok := v.s.users[m.StudentID]; !ok {
		return violation("teacher_students_student_id_fkey")
	}
	key := m.TeacherID + "|" + m.StudentID
	if prev, ok := v.s.links[key]; ok {
		m.ID = prev.ID
	}
	m.ID = newID(m.ID)
	if m.AssignedAt.IsZero() {
		m.AssignedAt = v.s.now()
	}
	v.s.links[key] = *m
	return nil
}

func (v linkView) CountActiveStudents(_ context.Context, teacherID string) (int64, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var n int64
	for _, l := range v.s.links {
		if l.TeacherID == teacherID && l.IsActive {
			n++
		}
	}
	return n, nil
}

func (v linkView) TeacherIDsForStudent(_ context.Context, studentID string) ([]string, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	seen := map[string]bool{}
	var ids []string
	for _, l := range v.s.links {
		if l.StudentID == studentID && !seen[l.TeacherID] {
			seen[l.TeacherID] = true
			ids = append(ids, l.TeacherID)
		}
	}
	return ids, nil
}

func (v profileView) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	p, ok := v.s.profiles[userID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	p.Skills = copyStrings(p.Skills)
	p.Experience = append([]byte(nil), p.Experience...)
	return &p, nil
}

func (v profileView) Upsert(_ context.Context, p *models.Profile) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.users[p.UserID]; !ok {
		return violation("profiles_user_id_fkey")
	}
	cp := *p
	cp.Skills = copyStrings(p.Skills)
	cp.Experience = append([]byte(nil), p.Experience...)
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = v.s.now()
	}
	v.s.profiles[p.UserID] = cp
	return nil
}
