package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/models"
	"github.com/HammerMeetNail/playhub/internal/services"
)

type FriendHandler struct {
	friendService services.FriendServiceInterface
}

func NewFriendHandler(friendService services.FriendServiceInterface) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type AddFriendRequest struct {
	Username string `json:"username"`
}

type FriendRequestListResponse struct {
	Items []models.IncomingFriendRequest `json:"items"`
}

type FriendListResponse struct {
	Items []models.Friend `json:"items"`
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req AddFriendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	request, err := h.friendService.SendRequest(r.Context(), user.ID, req.Username)
	if err != nil {
		writeServiceError(w, err, "Error sending friend request")
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friend request ID")
		return
	}

	if err := h.friendService.AcceptRequest(r.Context(), requestID, user.ID); err != nil {
		writeServiceError(w, err, "Error accepting friend request")
		return
	}

	writeSuccess(w)
}

func (h *FriendHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friend request ID")
		return
	}

	if err := h.friendService.RejectRequest(r.Context(), requestID, user.ID); err != nil {
		writeServiceError(w, err, "Error rejecting friend request")
		return
	}

	writeSuccess(w)
}

func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.friendService.ListPendingRequests(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "Error listing friend requests")
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestListResponse{Items: requests})
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "Error listing friends")
		return
	}

	writeJSON(w, http.StatusOK, FriendListResponse{Items: friends})
}

func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friendID, err := uuid.Parse(r.PathValue("friendId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friend ID")
		return
	}

	if err := h.friendService.RemoveFriend(r.Context(), user.ID, friendID); err != nil {
		writeServiceError(w, err, "Error removing friend")
		return
	}

	writeSuccess(w)
}
