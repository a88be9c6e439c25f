package database

import (
	"context"
	"errors"
)

type fakeRows struct {
	columns  []string
	rows     [][]any
	idx      int
	err      error
	closed    bool
	affected  int64
	types     []uint32
	valuesErr error
}

func (f *fakeRows) Close() { f.closed = true }
func (f *fakeRows) Err() error { return f.err }
func (f *fakeRows) Columns() []string { return f.columns }

func (f *fakeRows) RowsAffected() int64 { return f.affected }

func (f *fakeRows) ColumnTypes() []uint32 { return f.types }

func (f *fakeRows) Next() bool {
	if f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	if f.idx == 0 || f.idx > len(f.rows) {
		return errors.New("scan called without active row")
	}
	return scanValues(dest, f.rows[f.idx-1])
}

func (f *fakeRows) Values() ([]any, error) {
	if f.valuesErr != nil {
		return nil, f.valuesErr
	}
	if f.idx == 0 || f.idx > len(f.rows) {
		return nil, errors.New("values called without active row")
	}
	return f.rows[f.idx-1], nil
}

type fakeDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	BeginFunc    func(ctx context.Context) (Tx, error)
	PingFunc     func(ctx context.Context) error
	closed       bool
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, sql, args...)
	}
	return commandTag(0), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return &bridgeRow{err: errors.New("queryRowFunc not set")}
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc != nil {
		return f.BeginFunc(ctx)
	}
	return nil, errors.New("beginFunc not set")
}

func (f *fakeDB) Ping(ctx context.Context) error {
	if f.PingFunc != nil {
		return f.PingFunc(ctx)
	}
	return nil
}

func (f *fakeDB) Close() { f.closed = true }

type fakeTx struct {
	ExecFunc   func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, sql, args...)
	}
	return commandTag(1), nil
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return &fakeRows{}, nil
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return &bridgeRow{rows: &fakeRows{}}
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.committed {
		return ErrTxClosed
	}
	f.rolledBack = true
	return nil
}
