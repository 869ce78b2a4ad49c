package memory

import (
	"context"
	"sort"

	"github.com/yoockh/yoointerview/internal/models"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
)

type auditView struct{ s *Store }

func (s *Store) SecurityAudit() mongorepo.SecurityAuditRepository { return auditView{s} }

func (v auditView) Insert(_ context.Context, e *models.SecurityAuditEntry) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = v.s.now()
	}
	cp := *e
	cp.Payload = copyPayload(e.Payload)
	v.s.audit = append(v.s.audit, cp)
	return nil
}

func (v auditView) ListBySession(_ context.Context, sessionID string, limit int64) ([]models.SecurityAuditEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []models.SecurityAuditEntry
	for _, e := range v.s.audit {
		if e.SessionID == sessionID {
			e.Payload = copyPayload(e.Payload)
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}
