package repository

import (
	"context"

	"github.com/sakif/wanderlist/internal/model"
)

// UserPatch is a sparse update for a user's profile fields.
//
// A nil pointer means "no change — keep whatever is stored"; a non-nil
// pointer (even to an empty string) means "set this value". This mirrors
// the identity provider's assertion shape: a claim that wasn't supplied
// must never overwrite an existing value.
type UserPatch struct {
	Email     *string
	FullName  *string
	AvatarURL *string
	Username  *string
}

// UserRepository persists user accounts keyed by the identity provider's
// subject string.
type UserRepository interface {
	// UpsertByExternalID inserts a user on first sign-in (missing optional
	// fields default to "") or patches an existing record field-by-field.
	// Returns the canonical stored record either way.
	UpsertByExternalID(ctx context.Context, externalID string, patch UserPatch) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)
	// UpdateAvatar patches only the avatar fields of an existing user.
	UpdateAvatar(ctx context.Context, id, storageID, photoURL string) error
}

// ItemRepository persists bucket list items. Ownership checks live in the
// service layer; the repository trusts the ids it is given.
type ItemRepository interface {
	Create(ctx context.Context, item *model.BucketListItem) error
	GetByID(ctx context.Context, id string) (*model.BucketListItem, error)
	ListByUser(ctx context.Context, userID string) ([]model.BucketListItem, error)
	ListCompletedByUser(ctx context.Context, userID string) ([]model.BucketListItem, error)
	// ToggleCompleted flips the completion flag in a single statement and
	// returns the new value, so two concurrent toggles serialize in the
	// store instead of racing through read-modify-write.
	ToggleCompleted(ctx context.Context, id string) (bool, error)
	SetCompleted(ctx context.Context, id string, completed bool) error
	// AttachPhoto patches only the photo fields of an existing item.
	AttachPhoto(ctx context.Context, id, storageID, photoURL string) error
	Delete(ctx context.Context, id string) error
	// CountByUser returns the total and completed item counts for a user.
	CountByUser(ctx context.Context, userID string) (total, completed int, err error)
}
