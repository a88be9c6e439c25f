package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/models"
	"github.com/HammerMeetNail/playhub/internal/services"
)

type PresenceHandler struct {
	presenceService services.PresenceServiceInterface
}

func NewPresenceHandler(presenceService services.PresenceServiceInterface) *PresenceHandler {
	return &PresenceHandler{presenceService: presenceService}
}

type SetStatusRequest struct {
	Status   models.PresenceStatus `json:"status"`
	GameSlug *string               `json:"gameSlug,omitempty"`
}

type StatusResponse struct {
	Status models.PresenceStatus `json:"status"`
	Game   *string               `json:"game,omitempty"`
}

// SetStatus only lets users change their own presence.
func (h *PresenceHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if userID != user.ID {
		writeError(w, http.StatusForbidden, "Cannot change another user's status")
		return
	}

	var req SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.presenceService.SetPresence(r.Context(), userID, req.Status, req.GameSlug); err != nil {
		writeServiceError(w, err, "Error updating status")
		return
	}

	writeSuccess(w)
}

func (h *PresenceHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if GetUserFromContext(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	presence, err := h.presenceService.GetPresence(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Error loading status")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: presence.Status, Game: presence.CurrentGameSlug})
}
