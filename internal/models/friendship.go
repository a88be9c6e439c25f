package models

import (
	"time"

	"github.com/google/uuid"
)

// Friendship is one direction of an accepted friendship; every friendship is
// stored as the pair (A,B) and (B,A). Status and CurrentGameSlug copy the
// presence of FriendID.
type Friendship struct {
	ID              uuid.UUID      `json:"id"`
	UserID          uuid.UUID      `json:"userId"`
	FriendID        uuid.UUID      `json:"friendId"`
	Status          PresenceStatus `json:"status"`
	CurrentGameSlug *string        `json:"currentGameSlug"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type Friend struct {
	Friendship
	FriendUsername string `json:"friendUsername"`
}
