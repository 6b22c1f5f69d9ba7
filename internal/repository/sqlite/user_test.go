package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/wanderlist/internal/apperror"
	"github.com/sakif/wanderlist/internal/model"
	"github.com/sakif/wanderlist/internal/repository"
)

// Using ":memory:" creates a fresh database that exists only during the
// test — fast, isolated, destroyed when the connection closes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

// syncTestUser upserts a user with a full profile and fails the test on error.
func syncTestUser(t *testing.T, db *DB, externalID string) *model.User {
	t.Helper()
	user, err := db.UpsertByExternalID(context.Background(), externalID, repository.UserPatch{
		Username:  strPtr("traveler"),
		FullName:  strPtr("Test Traveler"),
		Email:     strPtr("traveler@example.com"),
		AvatarURL: strPtr("https://example.com/avatar.png"),
	})
	if err != nil {
		t.Fatalf("failed to upsert test user: %v", err)
	}
	return user
}

func TestUpsertByExternalID_InsertsNewUser(t *testing.T) {
	db := newTestDB(t)

	user, err := db.UpsertByExternalID(context.Background(), "subj-1", repository.UserPatch{
		Username: strPtr("sakif"),
	})
	if err != nil {
		t.Fatalf("UpsertByExternalID() error = %v", err)
	}

	if user.ID == "" {
		t.Error("expected generated internal ID")
	}
	if user.ExternalID != "subj-1" {
		t.Errorf("ExternalID = %q, want %q", user.ExternalID, "subj-1")
	}
	if user.Username != "sakif" {
		t.Errorf("Username = %q, want %q", user.Username, "sakif")
	}
	// Absent optional claims default to empty strings, not NULLs
	if user.Email != "" || user.FullName != "" || user.AvatarURL != "" {
		t.Errorf("absent fields should default to empty, got %+v", user)
	}
}

func TestUpsertByExternalID_Idempotent(t *testing.T) {
	db := newTestDB(t)

	first := syncTestUser(t, db, "subj-1")
	second := syncTestUser(t, db, "subj-1")

	if first.ID != second.ID {
		t.Errorf("second sync created a new record: %q vs %q", first.ID, second.ID)
	}

	// Exactly one record for the subject
	got, err := db.GetByExternalID(context.Background(), "subj-1")
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if got.Email != "traveler@example.com" {
		t.Errorf("Email = %q, want unchanged value", got.Email)
	}
}

func TestUpsertByExternalID_PatchKeepsOmittedFields(t *testing.T) {
	db := newTestDB(t)

	syncTestUser(t, db, "subj-1")

	// Second assertion carries only a new display name — everything else
	// absent and therefore untouched.
	user, err := db.UpsertByExternalID(context.Background(), "subj-1", repository.UserPatch{
		FullName: strPtr("Renamed Traveler"),
	})
	if err != nil {
		t.Fatalf("UpsertByExternalID() error = %v", err)
	}

	if user.FullName != "Renamed Traveler" {
		t.Errorf("FullName = %q, want patched value", user.FullName)
	}
	if user.Email != "traveler@example.com" {
		t.Errorf("Email = %q, want preserved value", user.Email)
	}
	if user.Username != "traveler" {
		t.Errorf("Username = %q, want preserved value", user.Username)
	}
}

func TestUpsertByExternalID_DistinctSubjectsDistinctRecords(t *testing.T) {
	db := newTestDB(t)

	a := syncTestUser(t, db, "subj-a")
	b := syncTestUser(t, db, "subj-b")

	if a.ID == b.ID {
		t.Error("distinct subjects must map to distinct records")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent")
	if err == nil {
		t.Fatal("GetByID() should error on nonexistent ID")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetByExternalID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByExternalID(context.Background(), "no-such-subject")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateAvatar(t *testing.T) {
	db := newTestDB(t)
	user := syncTestUser(t, db, "subj-1")

	err := db.UpdateAvatar(context.Background(), user.ID, "blob-1", "http://localhost:8080/storage/blobs/blob-1")
	if err != nil {
		t.Fatalf("UpdateAvatar() error = %v", err)
	}

	got, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.AvatarStorageID != "blob-1" {
		t.Errorf("AvatarStorageID = %q, want %q", got.AvatarStorageID, "blob-1")
	}
	if got.AvatarURL != "http://localhost:8080/storage/blobs/blob-1" {
		t.Errorf("AvatarURL = %q, want resolved URL", got.AvatarURL)
	}
	// Only avatar fields were patched
	if got.Email != "traveler@example.com" {
		t.Errorf("Email = %q, want untouched value", got.Email)
	}
}

func TestUpdateAvatar_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateAvatar(context.Background(), "nonexistent", "blob-1", "url")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
