package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/models"
)

type fakeFriendService struct {
	SendRequestFunc         func(ctx context.Context, senderID uuid.UUID, targetUsername string) (*models.FriendRequest, error)
	AcceptRequestFunc       func(ctx context.Context, requestID, actingUserID uuid.UUID) error
	RejectRequestFunc       func(ctx context.Context, requestID, actingUserID uuid.UUID) error
	RemoveFriendFunc        func(ctx context.Context, userID, friendID uuid.UUID) error
	ListPendingRequestsFunc func(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error)
	ListFriendsFunc         func(ctx context.Context, userID uuid.UUID) ([]models.Friend, error)
}

func (f *fakeFriendService) SendRequest(ctx context.Context, senderID uuid.UUID, targetUsername string) (*models.FriendRequest, error) {
	return f.SendRequestFunc(ctx, senderID, targetUsername)
}

func (f *fakeFriendService) AcceptRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	return f.AcceptRequestFunc(ctx, requestID, actingUserID)
}

func (f *fakeFriendService) RejectRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	return f.RejectRequestFunc(ctx, requestID, actingUserID)
}

func (f *fakeFriendService) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	return f.RemoveFriendFunc(ctx, userID, friendID)
}

func (f *fakeFriendService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error) {
	return f.ListPendingRequestsFunc(ctx, userID)
}

func (f *fakeFriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
	return f.ListFriendsFunc(ctx, userID)
}

type fakeBlockService struct {
	BlockFunc       func(ctx context.Context, userID, targetID uuid.UUID) error
	UnblockFunc     func(ctx context.Context, userID, targetID uuid.UUID) error
	ListBlockedFunc func(ctx context.Context, userID uuid.UUID) ([]models.BlockedUser, error)
}

func (f *fakeBlockService) Block(ctx context.Context, userID, targetID uuid.UUID) error {
	return f.BlockFunc(ctx, userID, targetID)
}

func (f *fakeBlockService) Unblock(ctx context.Context, userID, targetID uuid.UUID) error {
	return f.UnblockFunc(ctx, userID, targetID)
}

func (f *fakeBlockService) ListBlocked(ctx context.Context, userID uuid.UUID) ([]models.BlockedUser, error) {
	return f.ListBlockedFunc(ctx, userID)
}

type fakePresenceService struct {
	SetPresenceFunc func(ctx context.Context, userID uuid.UUID, status models.PresenceStatus, gameSlug *string) error
	GetPresenceFunc func(ctx context.Context, userID uuid.UUID) (*models.UserPresence, error)
}

func (f *fakePresenceService) SetPresence(ctx context.Context, userID uuid.UUID, status models.PresenceStatus, gameSlug *string) error {
	return f.SetPresenceFunc(ctx, userID, status, gameSlug)
}

func (f *fakePresenceService) GetPresence(ctx context.Context, userID uuid.UUID) (*models.UserPresence, error) {
	return f.GetPresenceFunc(ctx, userID)
}

func withUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(SetUserInContext(req.Context(), user))
}

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, rr.Code, rr.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Success {
		t.Fatal("expected success=false")
	}
	if resp.Error != message {
		t.Fatalf("expected error %q, got %q", message, resp.Error)
	}
}

func assertSuccess(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var resp SuccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success=true")
	}
}
