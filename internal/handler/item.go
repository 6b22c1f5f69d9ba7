package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/wanderlist/internal/apperror"
	"github.com/sakif/wanderlist/internal/auth"
	"github.com/sakif/wanderlist/internal/service"
)

// ItemHandler exposes bucket list CRUD over HTTP.
//
// The handler establishes WHO is calling (from the auth middleware context)
// and parses the wire format; everything else — validation, ownership,
// persistence — belongs to the service.
type ItemHandler struct {
	items  *service.BucketListService
	logger *slog.Logger
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(items *service.BucketListService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, logger: logger}
}

// createItemRequest is the JSON body for item creation. Coordinates use
// pointers so "absent" and "zero" are distinguishable on the wire.
type createItemRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Category    string   `json:"category"`
	PlannedDate string   `json:"plannedDate"` // YYYY-MM-DD
	LocationLat *float64 `json:"locationLat"`
	LocationLng *float64 `json:"locationLng"`
	StorageID   string   `json:"storageId"`
}

// HandleCreate creates a new item owned by the caller.
//
// HTTP: POST /api/items
// Auth: Required
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid item JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	item, err := h.items.Create(r.Context(), userID, service.CreateItemInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Category:    req.Category,
		PlannedDate: req.PlannedDate,
		LocationLat: req.LocationLat,
		LocationLng: req.LocationLng,
		StorageID:   req.StorageID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// HandleListForSubject returns all items owned by the user behind an
// external subject id. Unknown subjects get an empty array, never an error.
//
// HTTP: GET /api/users/{externalID}/items
func (h *ItemHandler) HandleListForSubject(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalID")
	if externalID == "" {
		http.Error(w, "Subject ID is required", http.StatusBadRequest)
		return
	}

	items, err := h.items.ListForSubject(r.Context(), externalID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleListCompletedForSubject is the list endpoint filtered server-side
// to completed items.
//
// HTTP: GET /api/users/{externalID}/items/completed
func (h *ItemHandler) HandleListCompletedForSubject(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalID")
	if externalID == "" {
		http.Error(w, "Subject ID is required", http.StatusBadRequest)
		return
	}

	items, err := h.items.ListCompletedForSubject(r.Context(), externalID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleStatsForSubject returns the dashboard counts, recomputed live.
//
// HTTP: GET /api/users/{externalID}/stats
func (h *ItemHandler) HandleStatsForSubject(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalID")
	if externalID == "" {
		http.Error(w, "Subject ID is required", http.StatusBadRequest)
		return
	}

	stats, err := h.items.StatsForSubject(r.Context(), externalID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleDelete permanently removes an item the caller owns.
//
// HTTP: DELETE /api/items/{id}
// Auth: Required + ownership
func (h *ItemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Item ID is required", http.StatusBadRequest)
		return
	}

	if err := h.items.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleToggle flips an item's completion flag and reports the new value.
//
// HTTP: POST /api/items/{id}/toggle
// Auth: Required + ownership
func (h *ItemHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Item ID is required", http.StatusBadRequest)
		return
	}

	completed, err := h.items.ToggleCompleted(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"completed": completed,
	})
}

// setCompletedRequest carries the explicit target state for HandleSetCompleted.
type setCompletedRequest struct {
	Completed bool `json:"completed"`
}

// HandleSetCompleted writes an explicit completion value. Unlike toggle,
// retrying this request is harmless — the preferred path for clients.
//
// HTTP: PUT /api/items/{id}/completed
// Auth: Required + ownership
func (h *ItemHandler) HandleSetCompleted(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Item ID is required", http.StatusBadRequest)
		return
	}

	var req setCompletedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	completed, err := h.items.SetCompleted(r.Context(), userID, id, req.Completed)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"completed": completed,
	})
}

// attachPhotoRequest names the blob to attach; the reference is the only
// link back to the earlier upload.
type attachPhotoRequest struct {
	StorageID string `json:"storageId"`
}

// HandleAttachPhoto patches the item with a storage reference and its
// resolved durable URL.
//
// HTTP: POST /api/items/{id}/photo
// Auth: Required + ownership
func (h *ItemHandler) HandleAttachPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Item ID is required", http.StatusBadRequest)
		return
	}

	var req attachPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	photoURL, err := h.items.AttachPhoto(r.Context(), userID, id, req.StorageID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"photoUrl": photoURL})
}
