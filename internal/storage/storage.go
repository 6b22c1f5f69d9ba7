// Package storage is the blob store behind avatar and item photos.
//
// TWO-PHASE UPLOAD PROTOCOL:
// 1. An authenticated caller asks for an upload URL. We mint a fresh storage
//    reference and a short-lived signed token binding that reference; no
//    record is created anywhere.
// 2. The caller PUTs the raw bytes directly to the upload URL. The byte
//    transfer bypasses the data-access layer entirely.
// 3. The caller invokes an attach operation with the storage reference; the
//    data-access layer asks us to resolve a durable retrieval URL and
//    patches the target record with both.
//
// Nothing links the three steps server-side until attach — the storage
// reference is the only correlating token, and it is a capability: anyone
// who holds it can attach the blob.
//
// Blobs live on local disk under a flat directory keyed by reference. The
// rest of the application only sees opaque references and URLs, so swapping
// in a managed object store later means reimplementing this package alone.
package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
	"github.com/sakif/wanderlist/internal/apperror"
)

// uploadTokenTTL bounds how long an issued upload URL stays writable.
const uploadTokenTTL = 10 * time.Minute

// maxBlobSize caps a single upload at 10MB — plenty for a phone photo.
// Oversize uploads are rejected outright, never truncated.
const maxBlobSize = 10 << 20

// ErrInvalidToken reports an upload token that failed validation: malformed,
// expired, wrong issuer, or wrong signature. Callers map it to 401.
var ErrInvalidToken = errors.New("storage: invalid upload token")

// ErrTooLarge reports an upload exceeding maxBlobSize. Callers map it to 413.
var ErrTooLarge = errors.New("storage: blob exceeds maximum size")

// Store issues upload URLs, accepts uploaded bytes, and resolves storage
// references to durable retrieval URLs.
type Store struct {
	dir     string // blob directory on disk
	baseURL string // public origin, e.g. "http://localhost:8080"
	secret  []byte // HMAC key for upload tokens
}

// New creates a Store rooted at dir. The directory is created if missing.
//
// The secret signs upload tokens. It can safely be the same value as the
// session JWT secret — the two token kinds carry different issuers, so one
// can never be replayed as the other.
func New(dir, baseURL, secret string) (*Store, error) {
	if len(secret) < 16 {
		return nil, errors.New("storage: upload token secret must be at least 16 characters")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("storage: creating blob directory %s: %w", dir, err)
	}
	return &Store{dir: dir, baseURL: baseURL, secret: []byte(secret)}, nil
}

// uploadClaims binds an upload token to exactly one storage reference.
type uploadClaims struct {
	jwt.RegisteredClaims
}

// IssueUploadURL mints a new storage reference and returns a time-limited,
// write-capable URL for it, plus the reference itself so the client can
// attach it after the upload completes.
//
// The token's subject is the reference, its issuer is "wanderlist-upload".
// Session tokens use the issuer "wanderlist", so neither token kind
// validates as the other even though both are HS256 under the same secret.
func (s *Store) IssueUploadURL() (uploadURL, storageID string, err error) {
	storageID = xid.New().String()
	now := time.Now()

	c := uploadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   storageID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(uploadTokenTTL)),
			Issuer:    "wanderlist-upload",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("storage: signing upload token: %w", err)
	}

	return fmt.Sprintf("%s/storage/upload/%s", s.baseURL, signed), storageID, nil
}

// validateUploadToken verifies an upload token and returns the storage
// reference it authorizes.
func (s *Store) validateUploadToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&uploadClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("storage: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("wanderlist-upload"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*uploadClaims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}

	return c.Subject, nil
}

// Receive validates the upload token and writes the request body to disk,
// returning the storage reference the bytes now live under. Bodies larger
// than maxBlobSize fail with ErrTooLarge and nothing is stored.
//
// Writes go through a temp file + rename so a dropped connection never
// leaves a half-written blob resolvable.
func (s *Store) Receive(tokenStr string, body io.Reader) (string, error) {
	storageID, err := s.validateUploadToken(tokenStr)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	// Read one byte past the cap: exactly maxBlobSize+1 copied bytes means
	// the body was bigger than allowed. Copying up to maxBlobSize and
	// stopping would store a truncated blob and report success.
	n, err := io.Copy(tmp, io.LimitReader(body, maxBlobSize+1))
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: writing blob %s: %w", storageID, err)
	}
	if n > maxBlobSize {
		tmp.Close()
		return "", fmt.Errorf("storage: blob %s: %w", storageID, ErrTooLarge)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: closing blob %s: %w", storageID, err)
	}

	if err := os.Rename(tmp.Name(), s.blobPath(storageID)); err != nil {
		return "", fmt.Errorf("storage: finalizing blob %s: %w", storageID, err)
	}

	return storageID, nil
}

// ResolveURL returns the durable retrieval URL for a storage reference.
//
// Resolution fails with apperror.ErrStorageResolution when no blob exists
// under the reference — the signal attach operations rely on to abort
// before patching anything.
func (s *Store) ResolveURL(storageID string) (string, error) {
	if storageID == "" {
		return "", apperror.StorageResolution(storageID)
	}
	if _, err := os.Stat(s.blobPath(storageID)); err != nil {
		if os.IsNotExist(err) {
			return "", apperror.StorageResolution(storageID)
		}
		return "", fmt.Errorf("storage: checking blob %s: %w", storageID, err)
	}

	return fmt.Sprintf("%s/storage/blobs/%s", s.baseURL, storageID), nil
}

// ServeBlob streams a stored blob to an HTTP response. 404 for unknown refs.
func (s *Store) ServeBlob(w http.ResponseWriter, r *http.Request, storageID string) {
	path := s.blobPath(storageID)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	// ServeFile sniffs the content type from the first bytes of the blob.
	http.ServeFile(w, r, path)
}

// blobPath maps a reference to its on-disk location. References are xids we
// minted ourselves, but Base guards against path traversal regardless.
func (s *Store) blobPath(storageID string) string {
	return filepath.Join(s.dir, filepath.Base(storageID))
}
