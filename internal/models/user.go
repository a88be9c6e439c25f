package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the subset of the user entity the relationship core reads. The
// presence columns are the source of truth that friendship rows copy.
type User struct {
	ID              uuid.UUID      `json:"id"`
	Username        string         `json:"username"`
	Status          PresenceStatus `json:"status"`
	CurrentGameSlug *string        `json:"currentGameSlug,omitempty"`
	LastSeen        time.Time      `json:"lastSeen"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}
