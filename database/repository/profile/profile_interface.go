package profileRepo

import (
	"context"
	"errors"
	"time"

	"educonnect/models"
)

var (
	// ErrProfileNotFound is returned by GetProfile when no document exists for the uid.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrStoreWrite wraps every failed profile write.
	ErrStoreWrite = errors.New("profile store write failed")
)

// ProfileRepository defines methods for user profile data access.
type ProfileRepository interface {
	// GetProfile retrieves the profile stored under uid.
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	// UpsertProfile merges the set fields of patch into the document, creating it if absent.
	UpsertProfile(ctx context.Context, uid string, patch models.ProfilePatch, now time.Time) (*models.UserProfile, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// withTimeout bounds ctx by timeout.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
