package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/wanderlist/internal/apperror"
	"github.com/sakif/wanderlist/internal/model"
	"github.com/sakif/wanderlist/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// UpsertByExternalID inserts or patches a user keyed by the identity
// provider's subject string.
//
// SPARSE PATCH SEMANTICS:
// An existing record is updated field-by-field: a nil pointer in the patch
// keeps the stored value, a non-nil pointer overwrites it. This is what
// keeps a login that omits the email claim from blanking a previously
// synced email. New records default every absent field to "".
//
// We look up first and branch on existence rather than using INSERT OR
// REPLACE — REPLACE would delete-and-reinsert the row, losing the internal
// ID that bucket_list_items rows reference.
func (db *DB) UpsertByExternalID(ctx context.Context, externalID string, patch repository.UserPatch) (*model.User, error) {
	existing, err := db.GetByExternalID(ctx, externalID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		applyPatch(existing, patch)
		existing.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET username = ?, fullname = ?, email = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			existing.Username,
			existing.FullName,
			existing.Email,
			existing.AvatarURL,
			existing.UpdatedAt,
			existing.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
		}
		return existing, nil
	}

	// New user — generate an ID and INSERT, defaulting absent fields to "".
	now := time.Now()
	user := &model.User{
		ID:         xid.New().String(),
		ExternalID: externalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyPatch(user, patch)

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, external_id, username, fullname, email, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.ExternalID,
		user.Username,
		user.FullName,
		user.Email,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting user (externalID=%s): %w", externalID, err)
	}

	return user, nil
}

// applyPatch copies the supplied fields onto the user, leaving nil fields alone.
func applyPatch(u *model.User, patch repository.UserPatch) {
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetByExternalID retrieves a user by the identity provider's subject string.
func (db *DB) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return db.getUser(ctx, `WHERE external_id = ?`, externalID)
}

func (db *DB) getUser(ctx context.Context, where, arg string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, external_id, username, fullname, email, avatar_url, avatar_storage_id, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&u.ID,
		&u.ExternalID,
		&u.Username,
		&u.FullName,
		&u.Email,
		&u.AvatarURL,
		&u.AvatarStorageID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", arg)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", arg, err)
	}

	return &u, nil
}

// UpdateAvatar patches only the avatar fields of an existing user.
// The caller resolves the durable URL before calling this, so a failed
// resolution never reaches the database.
func (db *DB) UpdateAvatar(ctx context.Context, id, storageID, photoURL string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET avatar_storage_id = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		storageID,
		photoURL,
		time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating avatar for user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}
