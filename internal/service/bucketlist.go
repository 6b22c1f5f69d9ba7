package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/wanderlist/internal/apperror"
	"github.com/sakif/wanderlist/internal/model"
	"github.com/sakif/wanderlist/internal/repository"
)

// Validation constants.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000

	// plannedDateLayout is the calendar-date wire format: no time-of-day,
	// no timezone.
	plannedDateLayout = "2006-01-02"
)

// CreateItemInput carries the caller-supplied fields for a new item.
// Everything but Title is optional; coordinates must be given as a pair.
type CreateItemInput struct {
	Title       string
	Description string
	Location    string
	Category    string
	PlannedDate string
	LocationLat *float64
	LocationLng *float64
	StorageID   string
}

// BucketListService handles bucket list CRUD, ownership enforcement, and
// the dashboard aggregation.
type BucketListService struct {
	items   repository.ItemRepository
	users   repository.UserRepository
	storage URLResolver
	logger  *slog.Logger
}

// NewBucketListService creates a BucketListService.
func NewBucketListService(
	items repository.ItemRepository,
	users repository.UserRepository,
	storage URLResolver,
	logger *slog.Logger,
) *BucketListService {
	return &BucketListService{
		items:   items,
		users:   users,
		storage: storage,
		logger:  logger,
	}
}

// Create validates and saves a new item owned by the calling user.
//
// The caller's user record must exist — a valid session token whose user
// row has vanished is an error, not an implicit re-registration. The owner
// is fixed here and never reassigned.
func (s *BucketListService) Create(ctx context.Context, userID string, in CreateItemInput) (*model.BucketListItem, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "item title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("item title must be %d characters or less", MaxTitleLength))
	}
	if len(in.Description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	plannedDate := strings.TrimSpace(in.PlannedDate)
	if plannedDate != "" {
		if _, err := time.Parse(plannedDateLayout, plannedDate); err != nil {
			return nil, apperror.ValidationFailed("plannedDate", "planned date must be in YYYY-MM-DD format")
		}
	}

	if err := validateCoordinates(in.LocationLat, in.LocationLng); err != nil {
		return nil, err
	}

	item := &model.BucketListItem{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Category:    strings.TrimSpace(in.Category),
		PlannedDate: plannedDate,
		LocationLat: in.LocationLat,
		LocationLng: in.LocationLng,
		StorageID:   in.StorageID,
	}

	if err := s.items.Create(ctx, item); err != nil {
		s.logger.Error("failed to create item",
			slog.String("userID", userID),
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Info("item created",
		slog.String("id", item.ID),
		slog.String("userID", userID),
	)

	return item, nil
}

// validateCoordinates enforces the pair rule and geographic ranges.
func validateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return apperror.ValidationFailed("location", "latitude and longitude must be supplied together")
	}
	if lat == nil {
		return nil
	}
	if *lat < -90 || *lat > 90 {
		return apperror.ValidationFailed("locationLat", "latitude must be between -90 and 90")
	}
	if *lng < -180 || *lng > 180 {
		return apperror.ValidationFailed("locationLng", "longitude must be between -180 and 180")
	}
	return nil
}

// ListForSubject returns all items owned by the user behind an external
// subject id.
//
// EMPTY-LIST CONTRACT: an unknown subject yields an empty collection, not
// an error — the mobile client queries before its first sync completes.
func (s *BucketListService) ListForSubject(ctx context.Context, externalID string) ([]model.BucketListItem, error) {
	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return []model.BucketListItem{}, nil
		}
		return nil, err
	}

	items, err := s.items.ListByUser(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to list items", slog.String("userID", user.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing items: %w", err)
	}

	return items, nil
}

// ListCompletedForSubject is ListForSubject filtered server-side to
// completed items.
func (s *BucketListService) ListCompletedForSubject(ctx context.Context, externalID string) ([]model.BucketListItem, error) {
	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return []model.BucketListItem{}, nil
		}
		return nil, err
	}

	items, err := s.items.ListCompletedByUser(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to list completed items", slog.String("userID", user.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing completed items: %w", err)
	}

	return items, nil
}

// StatsForSubject computes the dashboard counts live from the store.
// Unknown subjects get zero stats, mirroring the empty-list contract.
func (s *BucketListService) StatsForSubject(ctx context.Context, externalID string) (*model.Stats, error) {
	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &model.Stats{}, nil
		}
		return nil, err
	}

	total, completed, err := s.items.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("counting items: %w", err)
	}

	return &model.Stats{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}, nil
}

// Delete permanently removes an item after verifying ownership.
// NotFound if the item is gone, Forbidden if the caller doesn't own it;
// either way nothing is persisted on failure.
func (s *BucketListService) Delete(ctx context.Context, callerID, itemID string) error {
	if _, err := s.ownedItem(ctx, callerID, itemID); err != nil {
		return err
	}

	if err := s.items.Delete(ctx, itemID); err != nil {
		return err
	}

	s.logger.Info("item deleted",
		slog.String("id", itemID),
		slog.String("userID", callerID),
	)
	return nil
}

// ToggleCompleted flips the completion flag and returns the new value.
// The flip itself is atomic in the store (see ItemRepository.ToggleCompleted).
func (s *BucketListService) ToggleCompleted(ctx context.Context, callerID, itemID string) (bool, error) {
	if _, err := s.ownedItem(ctx, callerID, itemID); err != nil {
		return false, err
	}

	completed, err := s.items.ToggleCompleted(ctx, itemID)
	if err != nil {
		return false, err
	}

	s.logger.Info("item toggled",
		slog.String("id", itemID),
		slog.Bool("completed", completed),
	)
	return completed, nil
}

// SetCompleted writes an explicit completion value — the idempotent
// alternative to ToggleCompleted for clients that send intended state.
func (s *BucketListService) SetCompleted(ctx context.Context, callerID, itemID string, completed bool) (bool, error) {
	if _, err := s.ownedItem(ctx, callerID, itemID); err != nil {
		return false, err
	}

	if err := s.items.SetCompleted(ctx, itemID, completed); err != nil {
		return false, err
	}

	return completed, nil
}

// AttachPhoto resolves a durable URL for an uploaded blob and patches the
// item's photo fields.
//
// Ownership is required here: only the item's owner may illustrate it.
// Resolution happens before the write, so a bad reference aborts with
// StorageResolutionFailure and no partial patch.
func (s *BucketListService) AttachPhoto(ctx context.Context, callerID, itemID, storageID string) (string, error) {
	if strings.TrimSpace(storageID) == "" {
		return "", apperror.ValidationFailed("storageId", "storage reference is required")
	}

	if _, err := s.ownedItem(ctx, callerID, itemID); err != nil {
		return "", err
	}

	photoURL, err := s.storage.ResolveURL(storageID)
	if err != nil {
		return "", err
	}

	if err := s.items.AttachPhoto(ctx, itemID, storageID, photoURL); err != nil {
		return "", err
	}

	s.logger.Info("photo attached",
		slog.String("id", itemID),
		slog.String("storageID", storageID),
	)

	return photoURL, nil
}

// ownedItem fetches an item and verifies the caller owns it.
// The ownership error deliberately doesn't reveal who does own the item.
func (s *BucketListService) ownedItem(ctx context.Context, callerID, itemID string) (*model.BucketListItem, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apperror.ValidationFailed("id", "item ID is required")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item.UserID != callerID {
		return nil, apperror.Forbidden("you do not have permission to modify this item")
	}

	return item, nil
}
