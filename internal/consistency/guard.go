package consistency

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/utils"
)

// OwnerLookup re-reads an owner from storage; implementations must not
// answer from a cache.
type OwnerLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Guard struct {
	owners OwnerLookup
	log    logrus.FieldLogger
}

func NewGuard(owners OwnerLookup, log logrus.FieldLogger) *Guard {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Guard{owners: owners, log: log}
}

// IsLive is true when ownerID still exists in storage and ctx is not part of
// a delete of that owner.
func (g *Guard) IsLive(ctx context.Context, ownerID string) (bool, error) {
	if ownerID == "" {
		return false, nil
	}
	if CascadeInProgress(ctx, ownerID) {
		return false, nil
	}
	return g.owners.Exists(ctx, ownerID)
}

// Run calls fn only while ownerID is live. ran is false when the owner was
// gone, being deleted, or vanished between the check and fn's write, which
// shows up as a referential violation. Any other error is returned as is.
func (g *Guard) Run(ctx context.Context, ownerID string, fn func(ctx context.Context) error) (ran bool, err error) {
	live, err := g.IsLive(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if !live {
		g.log.WithField("owner_id", ownerID).Debug("owner not live, recompute skipped")
		return false, nil
	}

	if err := fn(ctx); err != nil {
		if utils.IsReferentialViolation(err) {
			g.log.WithField("owner_id", ownerID).Debug("owner removed during recompute, write dropped")
			return false, nil
		}
		return false, err
	}
	return true, nil
}
