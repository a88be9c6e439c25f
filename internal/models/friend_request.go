package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest rows are never deleted; accept and reject only move status
// out of pending.
type FriendRequest struct {
	ID         uuid.UUID           `json:"id"`
	SenderID   uuid.UUID           `json:"senderId"`
	ReceiverID uuid.UUID           `json:"receiverId"`
	Status     FriendRequestStatus `json:"status"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// IncomingFriendRequest is a pending request with the sender's username for
// display.
type IncomingFriendRequest struct {
	FriendRequest
	SenderUsername string `json:"senderUsername"`
}
