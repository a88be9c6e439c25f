package models

import (
	"time"

	"github.com/google/uuid"
)

type BlockedRelation struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"userId"`
	BlockedUserID uuid.UUID `json:"blockedUserId"`
	CreatedAt     time.Time `json:"createdAt"`
}

type BlockedUser struct {
	BlockedRelation
	BlockedUsername string `json:"blockedUsername"`
}
