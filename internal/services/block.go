package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/database"
	"github.com/HammerMeetNail/playhub/internal/models"
)

type BlockServiceInterface interface {
	Block(ctx context.Context, userID, targetID uuid.UUID) error
	Unblock(ctx context.Context, userID, targetID uuid.UUID) error
	ListBlocked(ctx context.Context, userID uuid.UUID) ([]models.BlockedUser, error)
}

// BlockService manages one-way blocks. A block does not touch friendships
// or pending friend requests between the two users.
type BlockService struct {
	db database.Conn
}

func NewBlockService(db database.Conn) *BlockService {
	return &BlockService{db: db}
}

// Block is idempotent: blocking an already blocked user succeeds.
func (s *BlockService) Block(ctx context.Context, userID, targetID uuid.UUID) error {
	if userID == targetID {
		return ErrCannotBlockSelf
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO blocked_users (user_id, blocked_user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, blocked_user_id) DO NOTHING`,
		userID, targetID,
	)
	if database.IsForeignKeyViolation(err) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

// Unblock succeeds whether or not a block existed.
func (s *BlockService) Unblock(ctx context.Context, userID, targetID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM blocked_users WHERE user_id = $1 AND blocked_user_id = $2`,
		userID, targetID,
	)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

func (s *BlockService) ListBlocked(ctx context.Context, userID uuid.UUID) ([]models.BlockedUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT b.id, b.user_id, b.blocked_user_id, b.created_at, u.username
		 FROM blocked_users b
		 JOIN users u ON u.id = b.blocked_user_id
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list blocked users: %w", err)
	}
	defer rows.Close()

	blocked := []models.BlockedUser{}
	for rows.Next() {
		var b models.BlockedUser
		if err := rows.Scan(&b.ID, &b.UserID, &b.BlockedUserID, &b.CreatedAt, &b.BlockedUsername); err != nil {
			return nil, fmt.Errorf("scan blocked user: %w", err)
		}
		blocked = append(blocked, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocked users: %w", err)
	}
	return blocked, nil
}
