// Package consistency decides whether an aggregate owner may be recomputed.
package consistency

import "context"

type cascadeKey struct{}

// cascadeScope is immutable once stored in a context.
type cascadeScope struct {
	owners map[string]struct{}
}

// WithCascadeDelete marks ownerID as being deleted for every handler that
// runs with the returned context. The mark ends with the delete operation's
// context; it never reaches unrelated requests.
func WithCascadeDelete(ctx context.Context, ownerID string) context.Context {
	owners := map[string]struct{}{ownerID: {}}
	if parent, ok := ctx.Value(cascadeKey{}).(*cascadeScope); ok {
		for id := range parent.owners {
			owners[id] = struct{}{}
		}
	}
	return context.WithValue(ctx, cascadeKey{}, &cascadeScope{owners: owners})
}

// CascadeInProgress reports whether ctx belongs to a delete of ownerID.
func CascadeInProgress(ctx context.Context, ownerID string) bool {
	scope, ok := ctx.Value(cascadeKey{}).(*cascadeScope)
	if !ok {
		return false
	}
	_, hit := scope.owners[ownerID]
	return hit
}
