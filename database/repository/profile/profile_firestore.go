package profileRepo

import (
	"context"
	"fmt"
	"time"

	"educonnect/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProfileRepo implements ProfileRepository using Cloud Firestore.
type FirestoreProfileRepo struct {
	client *firestore.Client
	coll   string
}

// NewFirestoreProfileRepo stores profiles as documents keyed by uid in collection.
func NewFirestoreProfileRepo(client *firestore.Client, collection string) ProfileRepository {
	return &FirestoreProfileRepo{client: client, coll: collection}
}

func (r *FirestoreProfileRepo) doc(uid string) *firestore.DocumentRef {
	return r.client.Collection(r.coll).Doc(uid)
}

func (r *FirestoreProfileRepo) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := r.doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile %s: %w", uid, err)
	}
	if !snap.Exists() {
		return nil, ErrProfileNotFound
	}

	var profile models.UserProfile
	if err := snap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", uid, err)
	}
	profile.UID = uid
	return &profile, nil
}

func (r *FirestoreProfileRepo) UpsertProfile(ctx context.Context, uid string, patch models.ProfilePatch, now time.Time) (*models.UserProfile, error) {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	ref := r.doc(uid)
	var merged models.UserProfile
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		merged = models.UserProfile{}
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		fields := patch.Fields()
		fields["uid"] = uid
		fields["updatedAt"] = now
		if snap != nil && snap.Exists() {
			if err := snap.DataTo(&merged); err != nil {
				return err
			}
		} else {
			fields["createdAt"] = now
			merged.CreatedAt = now
		}
		patch.Apply(&merged)
		merged.UID = uid
		merged.UpdatedAt = now

		return tx.Set(ref, fields, firestore.MergeAll)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: profile %s: %v", ErrStoreWrite, uid, err)
	}
	return &merged, nil
}

// Ping reads at most one document from the profile collection.
func (r *FirestoreProfileRepo) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	iter := r.client.Collection(r.coll).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore unreachable: %w", err)
	}
	return nil
}
