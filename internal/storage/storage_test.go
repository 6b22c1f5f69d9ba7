package storage

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sakif/wanderlist/internal/apperror"
)

const testSecret = "test-secret-for-storage-tokens"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), "http://localhost:8080", testSecret)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

// uploadTokenFromURL picks the signed token back out of an issued upload URL.
func uploadTokenFromURL(t *testing.T, uploadURL string) string {
	t.Helper()
	idx := strings.LastIndex(uploadURL, "/")
	if idx == -1 || idx == len(uploadURL)-1 {
		t.Fatalf("malformed upload URL %q", uploadURL)
	}
	return uploadURL[idx+1:]
}

func TestNew_RejectsShortSecret(t *testing.T) {
	if _, err := New(t.TempDir(), "http://localhost:8080", "short"); err == nil {
		t.Error("New() with short secret: expected error, got nil")
	}
}

func TestUploadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	uploadURL, storageID, err := store.IssueUploadURL()
	if err != nil {
		t.Fatalf("IssueUploadURL() error = %v", err)
	}
	if storageID == "" {
		t.Fatal("IssueUploadURL() returned empty storage reference")
	}
	if !strings.HasPrefix(uploadURL, "http://localhost:8080/storage/upload/") {
		t.Errorf("uploadURL = %q, want upload endpoint under base URL", uploadURL)
	}

	// The reference resolves only after bytes actually land.
	if _, err := store.ResolveURL(storageID); !errors.Is(err, apperror.ErrStorageResolution) {
		t.Errorf("ResolveURL() before upload: error = %v, want ErrStorageResolution", err)
	}

	token := uploadTokenFromURL(t, uploadURL)
	gotID, err := store.Receive(token, strings.NewReader("fake image bytes"))
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if gotID != storageID {
		t.Errorf("Receive() reference = %q, want %q", gotID, storageID)
	}

	url, err := store.ResolveURL(storageID)
	if err != nil {
		t.Fatalf("ResolveURL() after upload: error = %v", err)
	}
	want := "http://localhost:8080/storage/blobs/" + storageID
	if url != want {
		t.Errorf("ResolveURL() = %q, want %q", url, want)
	}
}

func TestReceive_RejectsGarbageToken(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Receive("not-a-jwt", strings.NewReader("data"))
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Receive() with garbage token: error = %v, want ErrInvalidToken", err)
	}
}

func TestReceive_RejectsOversizeBlob(t *testing.T) {
	store := newTestStore(t)

	uploadURL, storageID, err := store.IssueUploadURL()
	if err != nil {
		t.Fatalf("IssueUploadURL() error = %v", err)
	}
	token := uploadTokenFromURL(t, uploadURL)

	oversize := bytes.NewReader(make([]byte, maxBlobSize+1))
	_, err = store.Receive(token, oversize)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Receive(oversize) error = %v, want ErrTooLarge", err)
	}

	// A rejected upload must leave nothing resolvable — a truncated blob
	// behind a durable URL would be silent corruption.
	if _, err := store.ResolveURL(storageID); !errors.Is(err, apperror.ErrStorageResolution) {
		t.Errorf("ResolveURL() after rejected upload: error = %v, want ErrStorageResolution", err)
	}
}

func TestReceive_AcceptsBlobAtSizeLimit(t *testing.T) {
	store := newTestStore(t)

	uploadURL, storageID, err := store.IssueUploadURL()
	if err != nil {
		t.Fatalf("IssueUploadURL() error = %v", err)
	}

	atLimit := bytes.NewReader(make([]byte, maxBlobSize))
	gotID, err := store.Receive(uploadTokenFromURL(t, uploadURL), atLimit)
	if err != nil {
		t.Fatalf("Receive(at limit) error = %v", err)
	}
	if gotID != storageID {
		t.Errorf("Receive() reference = %q, want %q", gotID, storageID)
	}
	if _, err := store.ResolveURL(storageID); err != nil {
		t.Errorf("ResolveURL() after at-limit upload: error = %v", err)
	}
}

func TestReceive_RejectsExpiredToken(t *testing.T) {
	store := newTestStore(t)

	c := uploadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "some-ref",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-30 * time.Minute)),
			Issuer:    "wanderlist-upload",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing expired token: %v", err)
	}

	if _, err := store.Receive(signed, strings.NewReader("data")); err == nil {
		t.Error("Receive() with expired token: expected error, got nil")
	}
}

func TestReceive_RejectsSessionIssuer(t *testing.T) {
	store := newTestStore(t)

	// A session token signed with the same secret must not authorize an
	// upload — the issuer check separates the two token kinds.
	c := jwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		Issuer:    "wanderlist",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing session token: %v", err)
	}

	if _, err := store.Receive(signed, strings.NewReader("data")); err == nil {
		t.Error("Receive() with session-issuer token: expected error, got nil")
	}
}

func TestReceive_RejectsWrongSecret(t *testing.T) {
	store := newTestStore(t)

	other, err := New(t.TempDir(), "http://localhost:8080", "a-different-signing-secret")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	uploadURL, _, err := other.IssueUploadURL()
	if err != nil {
		t.Fatalf("IssueUploadURL() error = %v", err)
	}

	if _, err := store.Receive(uploadTokenFromURL(t, uploadURL), strings.NewReader("data")); err == nil {
		t.Error("Receive() with foreign-secret token: expected error, got nil")
	}
}

func TestResolveURL_EmptyReference(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.ResolveURL(""); !errors.Is(err, apperror.ErrStorageResolution) {
		t.Errorf("ResolveURL(\"\") error = %v, want ErrStorageResolution", err)
	}
}

func TestServeBlob(t *testing.T) {
	store := newTestStore(t)

	uploadURL, storageID, err := store.IssueUploadURL()
	if err != nil {
		t.Fatalf("IssueUploadURL() error = %v", err)
	}
	content := "blob payload"
	if _, err := store.Receive(uploadTokenFromURL(t, uploadURL), strings.NewReader(content)); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/storage/blobs/"+storageID, nil)
	store.ServeBlob(rec, req, storageID)

	if rec.Code != http.StatusOK {
		t.Fatalf("ServeBlob() status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != content {
		t.Errorf("ServeBlob() body = %q, want %q", rec.Body.String(), content)
	}
}

func TestServeBlob_UnknownReference(t *testing.T) {
	store := newTestStore(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/storage/blobs/nope", nil)
	store.ServeBlob(rec, req, "nope")

	if rec.Code != http.StatusNotFound {
		t.Errorf("ServeBlob(unknown) status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
