package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/database"
)

// lockUsers takes row locks on every distinct user in ascending id order.
// Any two transactions locking overlapping users therefore acquire them in
// the same order and cannot deadlock.
func lockUsers(ctx context.Context, q database.Conn, ids ...uuid.UUID) error {
	ordered := slices.Clone(ids)
	slices.SortFunc(ordered, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ordered = slices.Compact(ordered)

	for _, id := range ordered {
		var locked uuid.UUID
		err := q.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, database.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user %s: %w", id, err)
		}
	}
	return nil
}
