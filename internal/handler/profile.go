package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/wanderlist/internal/apperror"
	"github.com/sakif/wanderlist/internal/auth"
	"github.com/sakif/wanderlist/internal/service"
)

// ProfileHandler exposes the avatar read/attach operations.
type ProfileHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(users *service.UserService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, logger: logger}
}

// HandleGetProfileImage returns the avatar URL and backing storage
// reference for a subject, or JSON null when the subject has no user record
// or no avatar — "no image" is a normal answer, not an error.
//
// HTTP: GET /api/users/{externalID}/profile-image
func (h *ProfileHandler) HandleGetProfileImage(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalID")
	if externalID == "" {
		http.Error(w, "Subject ID is required", http.StatusBadRequest)
		return
	}

	img, err := h.users.GetProfileImage(r.Context(), externalID)
	if err != nil {
		writeError(w, err)
		return
	}

	if img == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("null\n"))
		return
	}

	writeJSON(w, http.StatusOK, img)
}

// attachAvatarRequest names the uploaded blob to become the caller's avatar.
type attachAvatarRequest struct {
	StorageID string `json:"storageId"`
}

// HandleAttachAvatar patches the caller's avatar with a storage reference
// and its resolved durable URL. An unresolvable reference yields 422 and
// leaves the previous avatar untouched — the client reverts its optimistic
// preview on that response.
//
// HTTP: POST /api/profile/avatar
// Auth: Required
func (h *ProfileHandler) HandleAttachAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req attachAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid avatar JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	photoURL, err := h.users.AttachAvatar(r.Context(), userID, req.StorageID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"photoUrl": photoURL})
}
