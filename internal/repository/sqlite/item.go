package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/wanderlist/internal/apperror"
	"github.com/sakif/wanderlist/internal/model"
	"github.com/sakif/wanderlist/internal/repository"
)

// compile-time check that *DB implements repository.ItemRepository
var _ repository.ItemRepository = (*DB)(nil)

const itemColumns = `id, user_id, title, description, location, location_lat, location_lng,
	 planned_date, category, completed, photo_url, storage_id, created_at`

// Create inserts a new bucket list item.
//
// The ID (xid — 20 chars, URL-safe, sortable by creation time) and the
// server-assigned creation timestamp are set here, not by the caller.
// Coordinates are nullable columns; everything else stores "" for absent
// optionals so scans never need sql.NullString.
func (db *DB) Create(ctx context.Context, item *model.BucketListItem) error {
	item.ID = xid.New().String()
	item.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO bucket_list_items
		 (id, user_id, title, description, location, location_lat, location_lng,
		  planned_date, category, completed, photo_url, storage_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.UserID,
		item.Title,
		item.Description,
		item.Location,
		item.LocationLat,
		item.LocationLng,
		item.PlannedDate,
		item.Category,
		item.Completed,
		item.PhotoURL,
		item.StorageID,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating item: %w", err)
	}

	return nil
}

// GetByID retrieves a single item by its ID.
// Returns apperror.ErrNotFound if no item exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.BucketListItem, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM bucket_list_items WHERE id = ?`, id)

	item, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("item", id)
		}
		return nil, fmt.Errorf("sqlite: getting item %s: %w", id, err)
	}

	return item, nil
}

// ListByUser returns all items owned by a user, newest first.
func (db *DB) ListByUser(ctx context.Context, userID string) ([]model.BucketListItem, error) {
	return db.listItems(ctx,
		`SELECT `+itemColumns+` FROM bucket_list_items
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

// ListCompletedByUser returns the user's completed items, filtered in the
// store rather than in application code.
func (db *DB) ListCompletedByUser(ctx context.Context, userID string) ([]model.BucketListItem, error) {
	return db.listItems(ctx,
		`SELECT `+itemColumns+` FROM bucket_list_items
		 WHERE user_id = ? AND completed = 1 ORDER BY created_at DESC`, userID)
}

func (db *DB) listItems(ctx context.Context, query, userID string) ([]model.BucketListItem, error) {
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items for user %s: %w", userID, err)
	}
	defer rows.Close()

	items := []model.BucketListItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}

	return items, nil
}

// ToggleCompleted flips the completion flag atomically.
//
// The NOT happens inside the UPDATE statement and RETURNING hands back the
// value that statement actually produced, so two concurrent toggles
// serialize in SQLite — each caller learns the state it created rather than
// racing through a read-modify-write in Go.
func (db *DB) ToggleCompleted(ctx context.Context, id string) (bool, error) {
	var completed bool
	err := db.conn.QueryRowContext(ctx,
		`UPDATE bucket_list_items SET completed = NOT completed
		 WHERE id = ? RETURNING completed`,
		id,
	).Scan(&completed)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, apperror.NotFound("item", id)
		}
		return false, fmt.Errorf("sqlite: toggling item %s: %w", id, err)
	}

	return completed, nil
}

// SetCompleted writes an explicit completion value. Idempotent — the
// preferred mutation for clients that can send their intended state.
func (db *DB) SetCompleted(ctx context.Context, id string, completed bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE bucket_list_items SET completed = ? WHERE id = ?`,
		completed, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting completion on item %s: %w", id, err)
	}

	return requireRowAffected(result, "item", id)
}

// AttachPhoto patches only the photo fields of an existing item.
func (db *DB) AttachPhoto(ctx context.Context, id, storageID, photoURL string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE bucket_list_items SET storage_id = ?, photo_url = ? WHERE id = ?`,
		storageID, photoURL, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: attaching photo to item %s: %w", id, err)
	}

	return requireRowAffected(result, "item", id)
}

// Delete permanently removes an item. Hard delete — no tombstone.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM bucket_list_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting item %s: %w", id, err)
	}

	return requireRowAffected(result, "item", id)
}

// CountByUser returns the total and completed counts for the dashboard.
// Always computed from the live rows; no stored aggregate exists to drift.
func (db *DB) CountByUser(ctx context.Context, userID string) (total, completed int, err error) {
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(completed), 0)
		 FROM bucket_list_items WHERE user_id = ?`,
		userID,
	).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: counting items for user %s: %w", userID, err)
	}

	return total, completed, nil
}

// scanner covers both *sql.Row and *sql.Rows so item scanning lives in one place.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.BucketListItem, error) {
	var item model.BucketListItem
	err := s.Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.Description,
		&item.Location,
		&item.LocationLat,
		&item.LocationLng,
		&item.PlannedDate,
		&item.Category,
		&item.Completed,
		&item.PhotoURL,
		&item.StorageID,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// requireRowAffected translates "UPDATE/DELETE matched nothing" into NotFound.
func requireRowAffected(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
