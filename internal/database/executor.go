package database

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Options configures Open.
type Options struct {
	Pool         PoolOptions
	QueryTimeout time.Duration
	// BridgeToken is sent as a bearer token to the bridge server.
	BridgeToken string
	// HTTPClient overrides the bridge transport's client.
	HTTPClient *http.Client
}

// Executor is the transport-agnostic query layer. It satisfies DB itself, so
// services take a DB and run unchanged on either transport. Every call gets a
// per-call timeout derived from the caller's context, and every error is
// classified as ConnectionError, QueryError or ErrNoRows.
type Executor struct {
	db        DB
	transport Transport
	timeout   time.Duration
}

// Open builds the single transport named by the descriptor and verifies it is
// reachable. The caller owns the returned executor and must Close it.
func Open(ctx context.Context, desc Descriptor, opts Options) (*Executor, error) {
	switch desc.Transport {
	case TransportDirect:
		pg, err := NewPostgresDB(ctx, desc.URL, opts.Pool)
		if err != nil {
			return nil, err
		}
		return NewExecutor(NewPoolAdapter(pg.Pool), TransportDirect, opts.QueryTimeout), nil
	case TransportBridge:
		client := NewBridgeClient(desc.URL, opts.BridgeToken, opts.HTTPClient)
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			client.Close()
			return nil, err
		}
		return NewExecutor(client, TransportBridge, opts.QueryTimeout), nil
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown transport %d", desc.Transport)}
	}
}

// NewExecutor wraps an already-built transport. A zero timeout disables the
// per-call deadline.
func NewExecutor(db DB, transport Transport, timeout time.Duration) *Executor {
	return &Executor{db: db, transport: transport, timeout: timeout}
}

func (e *Executor) Transport() Transport {
	return e.transport
}

func (e *Executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Executor) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	tag, err := e.db.Exec(ctx, sql, args...)
	return tag, classify(e.transport, err)
}

func (e *Executor) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return e.query(ctx, e.db, sql, args...)
}

// QueryRow runs sql under the per-call deadline. The deadline is released by
// Scan, so callers must always scan the returned Row.
func (e *Executor) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return e.queryRow(ctx, e.db, sql, args...)
}

func (e *Executor) Begin(ctx context.Context) (Tx, error) {
	beginCtx, cancel := e.withTimeout(ctx)
	defer cancel()
	tx, err := e.db.Begin(beginCtx)
	if err != nil {
		return nil, classify(e.transport, err)
	}
	return &executorTx{tx: tx, e: e}, nil
}

func (e *Executor) Ping(ctx context.Context) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return classify(e.transport, e.db.Ping(ctx))
}

func (e *Executor) Close() {
	e.db.Close()
}

// Execute runs sql and returns every row as a Record.
func (e *Executor) Execute(ctx context.Context, sql string, params ...any) ([]Record, error) {
	records, err := Execute(ctx, e, sql, params...)
	return records, classify(e.transport, err)
}

// ExecuteOne returns the first row, or ErrNoRows.
func (e *Executor) ExecuteOne(ctx context.Context, sql string, params ...any) (Record, error) {
	rec, err := ExecuteOne(ctx, e, sql, params...)
	return rec, classify(e.transport, err)
}

// Mutate runs a statement that returns no rows and reports rows affected.
func (e *Executor) Mutate(ctx context.Context, sql string, params ...any) (int64, error) {
	tag, err := e.Exec(ctx, sql, params...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// WithTransaction runs fn inside one transaction on this executor's transport.
func (e *Executor) WithTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return RunInTx(ctx, e, fn)
}

func (e *Executor) query(ctx context.Context, c Conn, sql string, args ...any) (Rows, error) {
	ctx, cancel := e.withTimeout(ctx)
	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		cancel()
		return nil, classify(e.transport, err)
	}
	return &timedRows{Rows: rows, cancel: cancel, transport: e.transport}, nil
}

func (e *Executor) queryRow(ctx context.Context, c Conn, sql string, args ...any) Row {
	ctx, cancel := e.withTimeout(ctx)
	return &timedRow{row: c.QueryRow(ctx, sql, args...), cancel: cancel, transport: e.transport}
}

// Execute runs sql on any Conn and decodes each row into a Record.
func Execute(ctx context.Context, c Conn, sql string, params ...any) ([]Record, error) {
	rows, err := c.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := rows.Columns()
	records := []Record{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rec, err := recordFrom(columns, values)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ExecuteOne runs sql on any Conn and returns the first Record or ErrNoRows.
func ExecuteOne(ctx context.Context, c Conn, sql string, params ...any) (Record, error) {
	records, err := Execute(ctx, c, sql, params...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	return records[0], nil
}

// RunInTx begins a transaction on db, runs fn, and commits when fn returns nil.
// Any error or panic from fn rolls the transaction back.
func RunInTx(ctx context.Context, db DB, fn func(tx Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

type executorTx struct {
	tx Tx
	e  *Executor
}

func (t *executorTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	ctx, cancel := t.e.withTimeout(ctx)
	defer cancel()
	tag, err := t.tx.Exec(ctx, sql, args...)
	return tag, classify(t.e.transport, err)
}

func (t *executorTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.e.query(ctx, t.tx, sql, args...)
}

func (t *executorTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.e.queryRow(ctx, t.tx, sql, args...)
}

func (t *executorTx) Commit(ctx context.Context) error {
	ctx, cancel := t.e.withTimeout(ctx)
	defer cancel()
	return classify(t.e.transport, t.tx.Commit(ctx))
}

func (t *executorTx) Rollback(ctx context.Context) error {
	ctx, cancel := t.e.withTimeout(ctx)
	defer cancel()
	return classify(t.e.transport, t.tx.Rollback(ctx))
}

// timedRows releases the per-call deadline when the caller closes the rows.
type timedRows struct {
	Rows
	cancel    context.CancelFunc
	transport Transport
}

func (r *timedRows) Close() {
	r.Rows.Close()
	r.cancel()
}

func (r *timedRows) Err() error {
	return classify(r.transport, r.Rows.Err())
}

func (r *timedRows) Scan(dest ...any) error {
	return classify(r.transport, r.Rows.Scan(dest...))
}

func (r *timedRows) Values() ([]any, error) {
	values, err := r.Rows.Values()
	return values, classify(r.transport, err)
}

func (r *timedRows) RowsAffected() int64 {
	return RowsAffected(r.Rows)
}

func (r *timedRows) ColumnTypes() []uint32 {
	return ColumnTypes(r.Rows)
}

// timedRow releases the per-call deadline once Scan returns.
type timedRow struct {
	row       Row
	cancel    context.CancelFunc
	transport Transport
}

func (r *timedRow) Scan(dest ...any) error {
	defer r.cancel()
	return classify(r.transport, r.row.Scan(dest...))
}
