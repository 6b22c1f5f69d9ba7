package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/wanderlist/internal/storage"
)

// UploadHandler exposes the blob-storage surface: issuing upload URLs,
// receiving the out-of-band byte transfer, and serving stored blobs.
type UploadHandler struct {
	store  *storage.Store
	logger *slog.Logger
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(store *storage.Store, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// HandleRequestUploadURL issues a time-limited, write-capable upload URL.
// No record is created — the returned storage reference only becomes
// meaningful once bytes are uploaded and an attach operation names it.
//
// HTTP: POST /api/uploads
// Auth: Required
func (h *UploadHandler) HandleRequestUploadURL(w http.ResponseWriter, r *http.Request) {
	uploadURL, storageID, err := h.store.IssueUploadURL()
	if err != nil {
		h.logger.Error("failed to issue upload URL", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"uploadUrl": uploadURL,
		"storageId": storageID,
	})
}

// HandleUpload receives the raw byte transfer for a previously issued
// upload URL. The signed token in the path is the only authorization — the
// data-access layer is bypassed entirely, matching the two-phase protocol.
//
// Failures are mapped by cause: bad token → 401, oversize body → 413,
// anything else (disk full, I/O) → 500. Only the first is the client's fault.
//
// HTTP: PUT /storage/upload/{token}
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		http.Error(w, "Upload token is required", http.StatusBadRequest)
		return
	}

	storageID, err := h.store.Receive(token, r.Body)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidToken):
			h.logger.Warn("upload rejected", slog.String("error", err.Error()))
			http.Error(w, `{"error":"unauthorized","message":"invalid or expired upload URL"}`, http.StatusUnauthorized)
		case errors.Is(err, storage.ErrTooLarge):
			h.logger.Warn("upload rejected", slog.String("error", err.Error()))
			http.Error(w, `{"error":"too_large","message":"upload exceeds the maximum blob size"}`, http.StatusRequestEntityTooLarge)
		default:
			h.logger.Error("upload failed", slog.String("error", err.Error()))
			http.Error(w, `{"error":"internal_error","message":"failed to store upload"}`, http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("blob uploaded", slog.String("storageID", storageID))
	writeJSON(w, http.StatusOK, map[string]string{"storageId": storageID})
}

// HandleServeBlob streams a stored blob — the target of every durable
// retrieval URL this server resolves.
//
// HTTP: GET /storage/blobs/{storageID}
func (h *UploadHandler) HandleServeBlob(w http.ResponseWriter, r *http.Request) {
	storageID := r.PathValue("storageID")
	if storageID == "" {
		http.Error(w, "Storage reference is required", http.StatusBadRequest)
		return
	}

	h.store.ServeBlob(w, r, storageID)
}
