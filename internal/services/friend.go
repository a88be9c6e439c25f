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

type FriendServiceInterface interface {
	SendRequest(ctx context.Context, senderID uuid.UUID, targetUsername string) (*models.FriendRequest, error)
	AcceptRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error
	RejectRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error
	RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error
	ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error)
}

// FriendService owns friend_requests and friendships. Every multi-row write
// runs in one transaction so the two directional friendship rows appear and
// disappear together.
type FriendService struct {
	db    database.DB
	users *UserService
}

func NewFriendService(db database.DB) *FriendService {
	return &FriendService{db: db, users: NewUserService(db)}
}

func (s *FriendService) SendRequest(ctx context.Context, senderID uuid.UUID, targetUsername string) (*models.FriendRequest, error) {
	targetUsername = strings.TrimSpace(targetUsername)
	if targetUsername == "" {
		return nil, ErrUsernameRequired
	}

	target, err := s.users.GetByUsername(ctx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target.ID == senderID {
		return nil, ErrCannotFriendSelf
	}

	var request *models.FriendRequest
	err = database.RunInTx(ctx, s.db, func(tx database.Tx) error {
		if err := lockUsers(ctx, tx, senderID, target.ID); err != nil {
			return err
		}

		var friends bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`,
			senderID, target.ID,
		).Scan(&friends)
		if err != nil {
			return fmt.Errorf("check friendship: %w", err)
		}
		if friends {
			return ErrAlreadyFriends
		}

		var pending bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM friend_requests
				WHERE status = 'pending'
				  AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
			)`,
			senderID, target.ID,
		).Scan(&pending)
		if err != nil {
			return fmt.Errorf("check pending request: %w", err)
		}
		if pending {
			return ErrFriendRequestExists
		}

		// The partial unique index on the ordered pair backs up the check
		// above; a conflicting insert returns no row.
		req := &models.FriendRequest{}
		err = tx.QueryRow(ctx,
			`INSERT INTO friend_requests (sender_id, receiver_id)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING
			 RETURNING id, sender_id, receiver_id, status, created_at, updated_at`,
			senderID, target.ID,
		).Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
		if errors.Is(err, database.ErrNoRows) || database.IsUniqueViolation(err) {
			return ErrFriendRequestExists
		}
		if database.IsForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("insert friend request: %w", err)
		}
		request = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// AcceptRequest marks the request accepted and creates both friendship rows
// in a single transaction. Each row starts with the friend's current presence.
func (s *FriendService) AcceptRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	return database.RunInTx(ctx, s.db, func(tx database.Tx) error {
		senderID, err := loadPendingRequestForUpdate(ctx, tx, requestID, actingUserID)
		if err != nil {
			return err
		}

		if err := lockUsers(ctx, tx, senderID, actingUserID); err != nil {
			return fmt.Errorf("lock users: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE friend_requests SET status = 'accepted', updated_at = NOW() WHERE id = $1`,
			requestID,
		)
		if err != nil {
			return fmt.Errorf("accept friend request: %w", err)
		}

		if err := insertFriendship(ctx, tx, actingUserID, senderID); err != nil {
			return err
		}
		return insertFriendship(ctx, tx, senderID, actingUserID)
	})
}

func (s *FriendService) RejectRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	return database.RunInTx(ctx, s.db, func(tx database.Tx) error {
		if _, err := loadPendingRequestForUpdate(ctx, tx, requestID, actingUserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE friend_requests SET status = 'rejected', updated_at = NOW() WHERE id = $1`,
			requestID,
		)
		if err != nil {
			return fmt.Errorf("reject friend request: %w", err)
		}
		return nil
	})
}

// RemoveFriend deletes both directions in one statement. Removing a pair
// that is not friends succeeds. Request history is left untouched.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM friendships
		 WHERE (user_id = $1 AND friend_id = $2)
		    OR (user_id = $2 AND friend_id = $1)`,
		userID, friendID,
	)
	if err != nil {
		return fmt.Errorf("remove friendship: %w", err)
	}
	return nil
}

// ListPendingRequests returns pending requests addressed to userID, newest
// first.
func (s *FriendService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT fr.id, fr.sender_id, fr.receiver_id, fr.status, fr.created_at, fr.updated_at, u.username
		 FROM friend_requests fr
		 JOIN users u ON u.id = fr.sender_id
		 WHERE fr.receiver_id = $1 AND fr.status = 'pending'
		 ORDER BY fr.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	requests := []models.IncomingFriendRequest{}
	for rows.Next() {
		var r models.IncomingFriendRequest
		if err := rows.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.SenderUsername); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend requests: %w", err)
	}
	return requests, nil
}

func (s *FriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.user_id, f.friend_id, f.status, f.current_game_slug, f.created_at, f.updated_at, u.username
		 FROM friendships f
		 JOIN users u ON u.id = f.friend_id
		 WHERE f.user_id = $1
		 ORDER BY LOWER(u.username)`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	friends := []models.Friend{}
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CurrentGameSlug, &f.CreatedAt, &f.UpdatedAt, &f.FriendUsername); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}
	return friends, nil
}

// loadPendingRequestForUpdate locks a request addressed to receiverID and
// returns its sender. Requests addressed to someone else read as not found.
func loadPendingRequestForUpdate(ctx context.Context, tx database.Tx, requestID, receiverID uuid.UUID) (uuid.UUID, error) {
	var senderID uuid.UUID
	var status models.FriendRequestStatus
	err := tx.QueryRow(ctx,
		`SELECT sender_id, status FROM friend_requests
		 WHERE id = $1 AND receiver_id = $2
		 FOR UPDATE`,
		requestID, receiverID,
	).Scan(&senderID, &status)
	if errors.Is(err, database.ErrNoRows) {
		return uuid.Nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load friend request: %w", err)
	}
	if status != models.FriendRequestPending {
		return uuid.Nil, ErrFriendRequestNotPending
	}
	return senderID, nil
}

// insertFriendship creates the (userID, friendID) row if it is absent,
// copying friendID's presence from users.
func insertFriendship(ctx context.Context, tx database.Tx, userID, friendID uuid.UUID) error {
	result, err := tx.Exec(ctx,
		`INSERT INTO friendships (user_id, friend_id, status, current_game_slug)
		 SELECT $1, u.id, u.status, u.current_game_slug FROM users u WHERE u.id = $2
		 ON CONFLICT (user_id, friend_id) DO NOTHING`,
		userID, friendID,
	)
	if err != nil {
		return fmt.Errorf("insert friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		logging.Warn("Friendship row already present", map[string]interface{}{
			"user_id":   userID.String(),
			"friend_id": friendID.String(),
		})
	}
	return nil
}
