package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/database"
	"github.com/HammerMeetNail/playhub/internal/logging"
	"github.com/HammerMeetNail/playhub/internal/models"
)

type PresenceServiceInterface interface {
	SetPresence(ctx context.Context, userID uuid.UUID, status models.PresenceStatus, gameSlug *string) error
	GetPresence(ctx context.Context, userID uuid.UUID) (*models.UserPresence, error)
}

type PresenceService struct {
	db database.DB
}

func NewPresenceService(db database.DB) *PresenceService {
	return &PresenceService{db: db}
}

// SetPresence updates the user's presence and every friendship row that
// copies it (rows where the user is friend_id) in one transaction. The game
// slug is stored only while the status is In Game.
func (s *PresenceService) SetPresence(ctx context.Context, userID uuid.UUID, status models.PresenceStatus, gameSlug *string) error {
	if !status.Valid() {
		return ErrInvalidPresenceStatus
	}
	slug := normalizeGameSlug(status, gameSlug)

	var fanout int64
	err := database.RunInTx(ctx, s.db, func(tx database.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE users
			 SET status = $2, current_game_slug = $3, last_seen = NOW(), updated_at = NOW()
			 WHERE id = $1`,
			userID, string(status), slug,
		)
		if err != nil {
			return fmt.Errorf("update presence: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		result, err = tx.Exec(ctx,
			`UPDATE friendships
			 SET status = $2, current_game_slug = $3, updated_at = NOW()
			 WHERE friend_id = $1`,
			userID, string(status), slug,
		)
		if err != nil {
			return fmt.Errorf("propagate presence: %w", err)
		}
		fanout = result.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}

	logging.Debug("Presence updated", map[string]interface{}{
		"user_id": userID.String(),
		"status":  string(status),
		"fanout":  fanout,
	})
	return nil
}

func (s *PresenceService) GetPresence(ctx context.Context, userID uuid.UUID) (*models.UserPresence, error) {
	presence := &models.UserPresence{}
	err := s.db.QueryRow(ctx,
		`SELECT status, current_game_slug, last_seen FROM users WHERE id = $1`,
		userID,
	).Scan(&presence.Status, &presence.CurrentGameSlug, &presence.LastSeen)
	if errors.Is(err, database.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get presence: %w", err)
	}
	return presence, nil
}

func normalizeGameSlug(status models.PresenceStatus, gameSlug *string) *string {
	if status != models.PresenceInGame || gameSlug == nil {
		return nil
	}
	slug := strings.TrimSpace(*gameSlug)
	if slug == "" {
		return nil
	}
	return &slug
}
