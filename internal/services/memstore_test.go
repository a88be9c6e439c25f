package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/database"
)

// memStore is an in-memory stand-in for the relationship tables. It answers
// exactly the statements the services issue, matched by fragment, and gives
// transactions snapshot isolation so rollbacks can be observed.

type memUser struct {
	id       uuid.UUID
	username string
	status   string
	slug     *string
	lastSeen time.Time
}

type memRequest struct {
	id, sender, receiver uuid.UUID
	status               string
	createdAt, updatedAt time.Time
}

type memFriendship struct {
	id, user, friend     uuid.UUID
	status               string
	slug                 *string
	createdAt, updatedAt time.Time
}

type memBlock struct {
	id, user, blocked uuid.UUID
	createdAt         time.Time
}

type memState struct {
	users       []memUser
	requests    []memRequest
	friendships []memFriendship
	blocks      []memBlock
}

func (s *memState) clone() *memState {
	return &memState{
		users:       append([]memUser(nil), s.users...),
		requests:    append([]memRequest(nil), s.requests...),
		friendships: append([]memFriendship(nil), s.friendships...),
		blocks:      append([]memBlock(nil), s.blocks...),
	}
}

type memStore struct {
	mu    sync.Mutex
	state *memState
	// failOn makes any statement containing the fragment fail.
	failOn string
}

func newMemStore() *memStore {
	return &memStore{state: &memState{}}
}

func (m *memStore) addUser(username string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.state.users = append(m.state.users, memUser{id: id, username: username, status: "Online", lastSeen: time.Now()})
	return id
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) run(state *memState, sql string, args []any) ([][]any, int64, error) {
	if m.failOn != "" && strings.Contains(sql, m.failOn) {
		return nil, 0, errors.New("injected failure")
	}
	return state.apply(sql, args)
}

func (m *memStore) Exec(ctx context.Context, sql string, args ...any) (database.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, n, err := m.run(m.state, sql, args)
	return fakeCommandTag{rowsAffected: n}, err
}

func (m *memStore) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, _, err := m.run(m.state, sql, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: rows}, nil
}

func (m *memStore) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return firstRow(m.run(m.state, sql, args))
}

func (m *memStore) Begin(ctx context.Context) (database.Tx, error) {
	return &memTx{store: m, state: m.snapshot()}, nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) Close() {}

type memTx struct {
	store *memStore
	state *memState
	done  bool
}

func (t *memTx) Exec(ctx context.Context, sql string, args ...any) (database.CommandTag, error) {
	_, n, err := t.store.run(t.state, sql, args)
	return fakeCommandTag{rowsAffected: n}, err
}

func (t *memTx) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, _, err := t.store.run(t.state, sql, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: rows}, nil
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return firstRow(t.store.run(t.state, sql, args))
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return database.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	t.store.state = t.state
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return database.ErrTxClosed
	}
	t.done = true
	return nil
}

func firstRow(rows [][]any, _ int64, err error) database.Row {
	if err != nil {
		return errRow(err)
	}
	if len(rows) == 0 {
		return errRow(database.ErrNoRows)
	}
	return rowFromValues(rows[0]...)
}

func (s *memState) user(id uuid.UUID) (memUser, bool) {
	for _, u := range s.users {
		if u.id == id {
			return u, true
		}
	}
	return memUser{}, false
}

func (s *memState) apply(sql string, args []any) ([][]any, int64, error) {
	now := time.Now()
	switch {
	case strings.Contains(sql, "SELECT id FROM users WHERE id = $1 FOR UPDATE"):
		if u, ok := s.user(args[0].(uuid.UUID)); ok {
			return [][]any{{u.id}}, 1, nil
		}
		return nil, 0, nil

	case strings.Contains(sql, "FROM users WHERE LOWER(username) = LOWER($1)"):
		for _, u := range s.users {
			if strings.EqualFold(u.username, args[0].(string)) {
				return [][]any{userRow(u)}, 1, nil
			}
		}
		return nil, 0, nil

	case strings.HasPrefix(sql, "SELECT id, username") && strings.Contains(sql, "WHERE id = $1"):
		if u, ok := s.user(args[0].(uuid.UUID)); ok {
			return [][]any{userRow(u)}, 1, nil
		}
		return nil, 0, nil

	case strings.Contains(sql, "SELECT status, current_game_slug, last_seen FROM users"):
		if u, ok := s.user(args[0].(uuid.UUID)); ok {
			return [][]any{{u.status, u.slug, u.lastSeen}}, 1, nil
		}
		return nil, 0, nil

	case strings.Contains(sql, "SELECT EXISTS(SELECT 1 FROM friendships"):
		a, b := args[0].(uuid.UUID), args[1].(uuid.UUID)
		for _, f := range s.friendships {
			if f.user == a && f.friend == b {
				return [][]any{{true}}, 1, nil
			}
		}
		return [][]any{{false}}, 1, nil

	case strings.Contains(sql, "SELECT EXISTS(") && strings.Contains(sql, "FROM friend_requests"):
		a, b := args[0].(uuid.UUID), args[1].(uuid.UUID)
		return [][]any{{s.pendingBetween(a, b)}}, 1, nil

	case strings.Contains(sql, "INSERT INTO friend_requests"):
		sender, receiver := args[0].(uuid.UUID), args[1].(uuid.UUID)
		if s.pendingBetween(sender, receiver) {
			return nil, 0, nil
		}
		r := memRequest{id: uuid.New(), sender: sender, receiver: receiver, status: "pending", createdAt: now, updatedAt: now}
		s.requests = append(s.requests, r)
		return [][]any{{r.id, r.sender, r.receiver, r.status, r.createdAt, r.updatedAt}}, 1, nil

	case strings.Contains(sql, "SELECT sender_id, status FROM friend_requests"):
		id, receiver := args[0].(uuid.UUID), args[1].(uuid.UUID)
		for _, r := range s.requests {
			if r.id == id && r.receiver == receiver {
				return [][]any{{r.sender, r.status}}, 1, nil
			}
		}
		return nil, 0, nil

	case strings.HasPrefix(sql, "UPDATE friend_requests SET status = "):
		status := "accepted"
		if strings.Contains(sql, "'rejected'") {
			status = "rejected"
		}
		for i := range s.requests {
			if s.requests[i].id == args[0].(uuid.UUID) {
				s.requests[i].status = status
				s.requests[i].updatedAt = now
				return nil, 1, nil
			}
		}
		return nil, 0, nil

	case strings.Contains(sql, "INSERT INTO friendships"):
		userID, friendID := args[0].(uuid.UUID), args[1].(uuid.UUID)
		friend, ok := s.user(friendID)
		if !ok {
			return nil, 0, nil
		}
		for _, f := range s.friendships {
			if f.user == userID && f.friend == friendID {
				return nil, 0, nil
			}
		}
		s.friendships = append(s.friendships, memFriendship{
			id: uuid.New(), user: userID, friend: friendID,
			status: friend.status, slug: friend.slug, createdAt: now, updatedAt: now,
		})
		return nil, 1, nil

	case strings.Contains(sql, "DELETE FROM friendships"):
		a, b := args[0].(uuid.UUID), args[1].(uuid.UUID)
		kept := s.friendships[:0:0]
		var n int64
		for _, f := range s.friendships {
			if (f.user == a && f.friend == b) || (f.user == b && f.friend == a) {
				n++
				continue
			}
			kept = append(kept, f)
		}
		s.friendships = kept
		return nil, n, nil

	case strings.Contains(sql, "FROM friend_requests fr"):
		var rows [][]any
		for _, r := range s.requests {
			if r.receiver == args[0].(uuid.UUID) && r.status == "pending" {
				sender, _ := s.user(r.sender)
				rows = append(rows, []any{r.id, r.sender, r.receiver, r.status, r.createdAt, r.updatedAt, sender.username})
			}
		}
		return rows, int64(len(rows)), nil

	case strings.Contains(sql, "FROM friendships f"):
		var rows [][]any
		for _, f := range s.friendships {
			if f.user == args[0].(uuid.UUID) {
				friend, _ := s.user(f.friend)
				rows = append(rows, []any{f.id, f.user, f.friend, f.status, f.slug, f.createdAt, f.updatedAt, friend.username})
			}
		}
		return rows, int64(len(rows)), nil

	case strings.Contains(sql, "INSERT INTO blocked_users"):
		userID, target := args[0].(uuid.UUID), args[1].(uuid.UUID)
		if _, ok := s.user(target); !ok {
			return nil, 0, &database.QueryError{Code: database.SQLStateForeignKeyViolation, Message: "violates foreign key constraint"}
		}
		for _, b := range s.blocks {
			if b.user == userID && b.blocked == target {
				return nil, 0, nil
			}
		}
		s.blocks = append(s.blocks, memBlock{id: uuid.New(), user: userID, blocked: target, createdAt: now})
		return nil, 1, nil

	case strings.Contains(sql, "DELETE FROM blocked_users"):
		kept := s.blocks[:0:0]
		var n int64
		for _, b := range s.blocks {
			if b.user == args[0].(uuid.UUID) && b.blocked == args[1].(uuid.UUID) {
				n++
				continue
			}
			kept = append(kept, b)
		}
		s.blocks = kept
		return nil, n, nil

	case strings.Contains(sql, "FROM blocked_users b"):
		var rows [][]any
		for _, b := range s.blocks {
			if b.user == args[0].(uuid.UUID) {
				target, _ := s.user(b.blocked)
				rows = append(rows, []any{b.id, b.user, b.blocked, b.createdAt, target.username})
			}
		}
		return rows, int64(len(rows)), nil

	case strings.Contains(sql, "UPDATE users"):
		for i := range s.users {
			if s.users[i].id == args[0].(uuid.UUID) {
				s.users[i].status = args[1].(string)
				s.users[i].slug = args[2].(*string)
				s.users[i].lastSeen = now
				return nil, 1, nil
			}
		}
		return nil, 0, nil

	case strings.Contains(sql, "UPDATE friendships"):
		var n int64
		for i := range s.friendships {
			if s.friendships[i].friend == args[0].(uuid.UUID) {
				s.friendships[i].status = args[1].(string)
				s.friendships[i].slug = args[2].(*string)
				s.friendships[i].updatedAt = now
				n++
			}
		}
		return nil, n, nil
	}
	return nil, 0, fmt.Errorf("memStore: unexpected sql %q", sql)
}

func (s *memState) pendingBetween(a, b uuid.UUID) bool {
	for _, r := range s.requests {
		if r.status != "pending" {
			continue
		}
		if (r.sender == a && r.receiver == b) || (r.sender == b && r.receiver == a) {
			return true
		}
	}
	return false
}

func (s *memState) friendship(user, friend uuid.UUID) (memFriendship, bool) {
	for _, f := range s.friendships {
		if f.user == user && f.friend == friend {
			return f, true
		}
	}
	return memFriendship{}, false
}

func userRow(u memUser) []any {
	return []any{u.id, u.username, u.status, u.slug, u.lastSeen, u.lastSeen, u.lastSeen}
}
