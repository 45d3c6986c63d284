package session

import (
	"context"
	"time"
)

// Registry is the process-wide owner of sessions.  Each user's session is
// only ever read and written by that user's conversation, so no locking
// across users is needed here; the underlying Store guards its own data.
type Registry struct {
	store Store
	now   func() time.Time
}

// NewRegistry returns a registry over store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// GetOrCreate returns the stored session of userID or a fresh one.  A
// fresh session is not persisted until Replace is called.
func (r *Registry) GetOrCreate(ctx context.Context, userID string) (Session, error) {
	s, ok, err := r.store.Load(ctx, userID)
	if err != nil {
		return New(), err
	}
	if !ok {
		return New(), nil
	}
	return s, nil
}

// Replace stores next as the whole session of userID.
func (r *Registry) Replace(ctx context.Context, userID string, next Session) error {
	next.UpdatedAt = r.now()
	return r.store.Save(ctx, userID, next)
}

// Clear forgets the session of userID.
func (r *Registry) Clear(ctx context.Context, userID string) error {
	return r.store.Delete(ctx, userID)
}
