package models

import "time"

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "Online"
	PresenceOffline PresenceStatus = "Offline"
	PresenceInGame  PresenceStatus = "In Game"
)

func (s PresenceStatus) Valid() bool {
	switch s {
	case PresenceOnline, PresenceOffline, PresenceInGame:
		return true
	default:
		return false
	}
}

type UserPresence struct {
	Status          PresenceStatus `json:"status"`
	CurrentGameSlug *string        `json:"game,omitempty"`
	LastSeen        time.Time      `json:"lastSeen"`
}
