package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/HammerMeetNail/playhub/internal/database"
)

type fakeRows struct {
	columns  []string
	rows     [][]any
	idx      int
	err      error
	affected int64
	types    []uint32
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return errors.New("not supported") }

func (r *fakeRows) Columns() []string { return r.columns }

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.idx-1], nil }

func (r *fakeRows) RowsAffected() int64 { return r.affected }

func (r *fakeRows) ColumnTypes() []uint32 { return r.types }

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error { return r.err }

type fakeTag int64

func (t fakeTag) RowsAffected() int64 { return int64(t) }

type call struct {
	sql  string
	args []any
}

// fakeConn answers every Query through QueryFunc and records what it saw.
type fakeConn struct {
	mu        sync.Mutex
	calls     []call
	QueryFunc func(sql string, args []any) (database.Rows, error)
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (database.CommandTag, error) {
	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		return fakeTag(0), err
	}
	return fakeTag(database.RowsAffected(rows)), nil
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	c.mu.Lock()
	c.calls = append(c.calls, call{sql: sql, args: args})
	c.mu.Unlock()
	if c.QueryFunc == nil {
		return &fakeRows{}, nil
	}
	return c.QueryFunc(sql, args)
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return fakeRow{err: errors.New("not supported")}
}

func (c *fakeConn) recorded() []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]call(nil), c.calls...)
}

type fakeTx struct {
	fakeConn
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	fakeConn
	txs      []*fakeTx
	beginErr error
}

func (d *fakeDB) Begin(ctx context.Context) (database.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	tx := &fakeTx{}
	tx.QueryFunc = d.QueryFunc
	d.mu.Lock()
	d.txs = append(d.txs, tx)
	d.mu.Unlock()
	return tx, nil
}

func (d *fakeDB) Ping(ctx context.Context) error { return nil }
func (d *fakeDB) Close()                         {}
