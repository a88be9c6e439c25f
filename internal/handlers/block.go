package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/models"
	"github.com/HammerMeetNail/playhub/internal/services"
)

type BlockHandler struct {
	blockService services.BlockServiceInterface
}

func NewBlockHandler(blockService services.BlockServiceInterface) *BlockHandler {
	return &BlockHandler{blockService: blockService}
}

type BlockRequest struct {
	UserID string `json:"userId"`
}

type BlockedListResponse struct {
	Items []models.BlockedUser `json:"items"`
}

func (h *BlockHandler) Block(w http.ResponseWriter, r *http.Request) {
	user, targetID, ok := h.parseTarget(w, r)
	if !ok {
		return
	}
	if err := h.blockService.Block(r.Context(), user.ID, targetID); err != nil {
		writeServiceError(w, err, "Error blocking user")
		return
	}
	writeSuccess(w)
}

func (h *BlockHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	user, targetID, ok := h.parseTarget(w, r)
	if !ok {
		return
	}
	if err := h.blockService.Unblock(r.Context(), user.ID, targetID); err != nil {
		writeServiceError(w, err, "Error unblocking user")
		return
	}
	writeSuccess(w)
}

func (h *BlockHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	blocked, err := h.blockService.ListBlocked(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "Error listing blocked users")
		return
	}

	writeJSON(w, http.StatusOK, BlockedListResponse{Items: blocked})
}

func (h *BlockHandler) parseTarget(w http.ResponseWriter, r *http.Request) (*models.User, uuid.UUID, bool) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil, uuid.Nil, false
	}

	var req BlockRequest
	if !decodeJSON(w, r, &req) {
		return nil, uuid.Nil, false
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return nil, uuid.Nil, false
	}
	return user, targetID, true
}
