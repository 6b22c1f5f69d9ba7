// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces ownership, orchestrates
//	Repository (Data layer)  → reads/writes the record store
//
// Services accept primitives and interfaces, never HTTP types, and return
// domain errors (apperror) rather than status codes. This is the only place
// with authorization invariants — handlers establish WHO is calling,
// services decide WHAT that caller may touch.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/wanderlist/internal/apperror"
	"github.com/sakif/wanderlist/internal/model"
	"github.com/sakif/wanderlist/internal/repository"
)

// URLResolver resolves a storage reference to a durable retrieval URL.
// Implemented by *storage.Store; mocked in tests.
type URLResolver interface {
	ResolveURL(storageID string) (string, error)
}

// SyncUserInput is the identity assertion handed to SyncUser: the subject
// plus whichever profile claims the provider supplied. Nil means the claim
// was absent and the stored value must be kept.
type SyncUserInput struct {
	ExternalID string
	Email      *string
	FullName   *string
	AvatarURL  *string
	Username   *string
}

// UserService handles user synchronization and profile image operations.
type UserService struct {
	users   repository.UserRepository
	storage URLResolver
	logger  *slog.Logger
}

// NewUserService creates a UserService. The caller decides which repository
// and resolver implementations to inject (SQLite + disk store in production,
// mocks in tests).
func NewUserService(users repository.UserRepository, storage URLResolver, logger *slog.Logger) *UserService {
	return &UserService{
		users:   users,
		storage: storage,
		logger:  logger,
	}
}

// SyncUser upserts a user record from an identity assertion.
//
// Intended to run once per session establishment, not on every data access.
// Calling it twice with identical input yields exactly one record, unchanged
// between calls: inserts default missing optionals to "", updates patch only
// the supplied fields.
func (s *UserService) SyncUser(ctx context.Context, in SyncUserInput) (*model.User, error) {
	externalID := strings.TrimSpace(in.ExternalID)
	if externalID == "" {
		return nil, apperror.ValidationFailed("externalId", "subject id is required")
	}

	user, err := s.users.UpsertByExternalID(ctx, externalID, repository.UserPatch{
		Email:     in.Email,
		FullName:  in.FullName,
		AvatarURL: in.AvatarURL,
		Username:  in.Username,
	})
	if err != nil {
		s.logger.Error("failed to sync user",
			slog.String("externalID", externalID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("syncing user: %w", err)
	}

	s.logger.Info("user synced",
		slog.String("userID", user.ID),
		slog.String("externalID", externalID),
	)

	return user, nil
}

// GetByID retrieves a user by internal ID. Propagates NotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// GetProfileImage returns the avatar URL and storage reference for a subject.
//
// (nil, nil) — not an error — when the subject has no user record or the
// user has no avatar set. The caller renders a placeholder either way.
func (s *UserService) GetProfileImage(ctx context.Context, externalID string) (*model.ProfileImage, error) {
	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if user.AvatarURL == "" {
		return nil, nil
	}

	return &model.ProfileImage{
		PhotoURL:  user.AvatarURL,
		StorageID: user.AvatarStorageID,
	}, nil
}

// AttachAvatar resolves a durable URL for the uploaded blob and patches the
// caller's avatar fields with both the reference and the URL.
//
// Resolution happens BEFORE the write: if blob storage can't produce a URL
// for the reference, the operation aborts with StorageResolutionFailure and
// the user's prior avatar fields are untouched.
func (s *UserService) AttachAvatar(ctx context.Context, userID, storageID string) (string, error) {
	if strings.TrimSpace(storageID) == "" {
		return "", apperror.ValidationFailed("storageId", "storage reference is required")
	}

	photoURL, err := s.storage.ResolveURL(storageID)
	if err != nil {
		return "", err
	}

	if err := s.users.UpdateAvatar(ctx, userID, storageID, photoURL); err != nil {
		s.logger.Error("failed to attach avatar",
			slog.String("userID", userID),
			slog.String("storageID", storageID),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	s.logger.Info("avatar attached",
		slog.String("userID", userID),
		slog.String("storageID", storageID),
	)

	return photoURL, nil
}
