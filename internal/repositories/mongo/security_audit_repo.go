package mongo

import (
	"context"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SecurityAuditCollection = "security_audit"

type SecurityAuditRepository interface {
	Insert(ctx context.Context, e *models.SecurityAuditEntry) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.SecurityAuditEntry, error)
}

type securityAuditRepo struct {
	col *mongo.Collection
}

func NewSecurityAuditRepo(db *mongo.Database) SecurityAuditRepository {
	return &securityAuditRepo{col: db.Collection(SecurityAuditCollection)}
}

func (r *securityAuditRepo) Insert(ctx context.Context, e *models.SecurityAuditEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, e)
	return err
}

func (r *securityAuditRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.SecurityAuditEntry, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SecurityAuditEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
