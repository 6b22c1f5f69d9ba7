// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Identity is delegated to an external provider, so the primary external
// identifier is the provider's subject string. We still generate our own
// internal string ID (xid) for consistency with BucketListItem and to avoid
// tying our primary keys to a third-party's numbering scheme.
//
// WHY ExternalID string?
// The subject is an opaque token minted by the identity provider. We never
// parse it — it only has to be stable and unique. The UNIQUE constraint on
// external_id in the DB ensures one provider account maps to exactly one
// app account.
//
// WHY Email string (not *string)?
// The provider may withhold the email if the user has hidden it. We use an
// empty string as the zero value rather than a nullable pointer — simpler
// to work with and safe to display.
type User struct {
	ID              string    `json:"id"              db:"id"`
	ExternalID      string    `json:"externalId"      db:"external_id"`       // identity provider subject
	Username        string    `json:"username"        db:"username"`          // application-local handle
	FullName        string    `json:"fullname"        db:"fullname"`          // display name (may be empty)
	Email           string    `json:"email"           db:"email"`             // may be empty if hidden
	AvatarURL       string    `json:"avatarUrl"       db:"avatar_url"`        // durable profile picture URL
	AvatarStorageID string    `json:"avatarStorageId" db:"avatar_storage_id"` // blob reference backing the avatar
	CreatedAt       time.Time `json:"createdAt"       db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt"       db:"updated_at"`
}

// ProfileImage is the avatar projection returned by the profile-image query:
// the durable URL plus the storage reference it was resolved from.
type ProfileImage struct {
	PhotoURL  string `json:"photoUrl"`
	StorageID string `json:"storageId,omitempty"`
}
