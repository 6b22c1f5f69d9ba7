package service

// In-memory fakes for the repository and storage interfaces. Instead of
// talking to SQLite, they store data in maps — the service under test
// doesn't know or care which implementation it gets.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/wanderlist/internal/apperror"
	"github.com/sakif/wanderlist/internal/model"
	"github.com/sakif/wanderlist/internal/repository"
)

type mockUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) UpsertByExternalID(_ context.Context, externalID string, patch repository.UserPatch) (*model.User, error) {
	for _, u := range m.users {
		if u.ExternalID == externalID {
			applyMockPatch(u, patch)
			u.UpdatedAt = time.Now()
			copied := *u
			return &copied, nil
		}
	}

	m.nextID++
	u := &model.User{
		ID:         fmt.Sprintf("user-%d", m.nextID),
		ExternalID: externalID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	applyMockPatch(u, patch)
	m.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func applyMockPatch(u *model.User, patch repository.UserPatch) {
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

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) GetByExternalID(_ context.Context, externalID string) (*model.User, error) {
	for _, u := range m.users {
		if u.ExternalID == externalID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", externalID)
}

func (m *mockUserRepo) UpdateAvatar(_ context.Context, id, storageID, photoURL string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.AvatarStorageID = storageID
	u.AvatarURL = photoURL
	return nil
}

type mockItemRepo struct {
	items  map[string]*model.BucketListItem
	nextID int
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: make(map[string]*model.BucketListItem)}
}

func (m *mockItemRepo) Create(_ context.Context, item *model.BucketListItem) error {
	m.nextID++
	item.ID = fmt.Sprintf("item-%d", m.nextID)
	item.CreatedAt = time.Now()
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *mockItemRepo) GetByID(_ context.Context, id string) (*model.BucketListItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("item", id)
	}
	copied := *item
	return &copied, nil
}

func (m *mockItemRepo) ListByUser(_ context.Context, userID string) ([]model.BucketListItem, error) {
	result := []model.BucketListItem{}
	for _, item := range m.items {
		if item.UserID == userID {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *mockItemRepo) ListCompletedByUser(_ context.Context, userID string) ([]model.BucketListItem, error) {
	result := []model.BucketListItem{}
	for _, item := range m.items {
		if item.UserID == userID && item.Completed {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *mockItemRepo) ToggleCompleted(_ context.Context, id string) (bool, error) {
	item, ok := m.items[id]
	if !ok {
		return false, apperror.NotFound("item", id)
	}
	item.Completed = !item.Completed
	return item.Completed, nil
}

func (m *mockItemRepo) SetCompleted(_ context.Context, id string, completed bool) error {
	item, ok := m.items[id]
	if !ok {
		return apperror.NotFound("item", id)
	}
	item.Completed = completed
	return nil
}

func (m *mockItemRepo) AttachPhoto(_ context.Context, id, storageID, photoURL string) error {
	item, ok := m.items[id]
	if !ok {
		return apperror.NotFound("item", id)
	}
	item.StorageID = storageID
	item.PhotoURL = photoURL
	return nil
}

func (m *mockItemRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return apperror.NotFound("item", id)
	}
	delete(m.items, id)
	return nil
}

func (m *mockItemRepo) CountByUser(_ context.Context, userID string) (total, completed int, err error) {
	for _, item := range m.items {
		if item.UserID == userID {
			total++
			if item.Completed {
				completed++
			}
		}
	}
	return total, completed, nil
}

// mockResolver resolves only the references it was told about; everything
// else fails with StorageResolution, like a blob store with no such object.
type mockResolver struct {
	known map[string]string // storageID → URL
}

func newMockResolver(refs ...string) *mockResolver {
	m := &mockResolver{known: make(map[string]string)}
	for _, ref := range refs {
		m.known[ref] = "http://localhost:8080/storage/blobs/" + ref
	}
	return m
}

func (m *mockResolver) ResolveURL(storageID string) (string, error) {
	url, ok := m.known[storageID]
	if !ok {
		return "", apperror.StorageResolution(storageID)
	}
	return url, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestServices wires both services over shared mocks.
func newTestServices(t *testing.T, resolver *mockResolver) (*UserService, *BucketListService, *mockUserRepo, *mockItemRepo) {
	t.Helper()
	users := newMockUserRepo()
	items := newMockItemRepo()
	logger := testLogger()
	return NewUserService(users, resolver, logger),
		NewBucketListService(items, users, resolver, logger),
		users, items
}

func strPtr(s string) *string { return &s }
