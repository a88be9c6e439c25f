package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	maxBridgeResponseBytes  = 32 << 20 // 32 MiB
	maxBridgeErrorBodyBytes = 32 << 10 // 32 KiB
)

// BridgeClient is the HTTP transport. It speaks the bridge server's /sql and
// /tx contract and satisfies DB, so services cannot tell it from a pool.
type BridgeClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewBridgeClient builds a client for the bridge at baseURL. A nil httpClient
// gets a 30s-timeout default.
func NewBridgeClient(baseURL, token string, httpClient *http.Client) *BridgeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &BridgeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

func (c *BridgeClient) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	resp, err := c.runSQL(ctx, sql, args, "")
	if err != nil {
		return commandTag(0), err
	}
	return commandTag(resp.RowsAffected), nil
}

func (c *BridgeClient) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	resp, err := c.runSQL(ctx, sql, args, "")
	if err != nil {
		return nil, err
	}
	return newBridgeRows(resp), nil
}

func (c *BridgeClient) QueryRow(ctx context.Context, sql string, args ...any) Row {
	rows, err := c.Query(ctx, sql, args...)
	return &bridgeRow{rows: rows, err: err}
}

func (c *BridgeClient) Begin(ctx context.Context) (Tx, error) {
	var out TxResponse
	if err := c.post(ctx, "/tx/begin", struct{}{}, &out); err != nil {
		return nil, err
	}
	if out.TxID == "" {
		return nil, &QueryError{Message: "bridge returned no transaction id"}
	}
	return &bridgeTx{client: c, id: out.TxID}, nil
}

// Ping calls the bridge health endpoint. The bridge does not probe the
// database, so success only proves the bridge process is reachable.
func (c *BridgeClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return &ConfigurationError{Reason: "building bridge request", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Transport: TransportBridge, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBridgeErrorBodyBytes))
	if resp.StatusCode != http.StatusOK {
		return &ConnectionError{Transport: TransportBridge, Err: fmt.Errorf("health returned status %d", resp.StatusCode)}
	}
	return nil
}

func (c *BridgeClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *BridgeClient) runSQL(ctx context.Context, sql string, args []any, txID string) (SQLResponse, error) {
	params := args
	if params == nil {
		params = []any{}
	}
	var out SQLResponse
	err := c.post(ctx, "/sql", SQLRequest{Query: sql, Params: params, TxID: txID}, &out)
	return out, err
}

func (c *BridgeClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &QueryError{Message: "encoding bridge request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &ConfigurationError{Reason: "building bridge request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Transport: TransportBridge, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return bridgeFailure(resp)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBridgeResponseBytes))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &ConnectionError{Transport: TransportBridge, Err: fmt.Errorf("decoding bridge response: %w", err)}
	}
	return nil
}

func bridgeFailure(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBridgeErrorBodyBytes))

	var be BridgeError
	if err := json.Unmarshal(raw, &be); err != nil || be.Error == "" {
		be.Error = strings.TrimSpace(string(raw))
		if be.Error == "" {
			be.Error = http.StatusText(resp.StatusCode)
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &ConnectionError{Transport: TransportBridge, Err: fmt.Errorf("bridge rejected credentials: %s", be.Error)}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return &ConnectionError{Transport: TransportBridge, Err: fmt.Errorf("bridge unavailable (status %d): %s", resp.StatusCode, be.Error)}
	case be.Code == "" && resp.StatusCode == http.StatusBadGateway && isConnectionMessage(be.Error):
		return &ConnectionError{Transport: TransportBridge, Err: errors.New(be.Error)}
	default:
		return &QueryError{Code: be.Code, Message: be.Error}
	}
}

func isConnectionMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "failed to connect") ||
		strings.Contains(msg, "timeout")
}

type bridgeRows struct {
	columns      []string
	rows         [][]any
	idx          int
	rowsAffected int64
}

func newBridgeRows(resp SQLResponse) *bridgeRows {
	columns := columnsFor(resp)
	types := resp.Types
	if len(resp.Columns) == 0 || len(types) != len(columns) {
		types = make([]uint32, len(columns))
	}
	rows := make([][]any, len(resp.Rows))
	for i, r := range resp.Rows {
		values := make([]any, len(columns))
		for j, col := range columns {
			values[j] = wireValue(types[j], r[col])
		}
		rows[i] = values
	}
	return &bridgeRows{columns: columns, rows: rows, rowsAffected: resp.RowsAffected}
}

func (r *bridgeRows) Close() {}

func (r *bridgeRows) Err() error { return nil }

func (r *bridgeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *bridgeRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.rows) {
		return errors.New("scan called without calling Next")
	}
	return scanValues(dest, r.rows[r.idx-1])
}

func (r *bridgeRows) Columns() []string {
	return r.columns
}

func (r *bridgeRows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.rows) {
		return nil, errors.New("values called without calling Next")
	}
	return r.rows[r.idx-1], nil
}

func (r *bridgeRows) RowsAffected() int64 {
	return r.rowsAffected
}

type bridgeRow struct {
	rows Rows
	err  error
}

func (r *bridgeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return ErrNoRows
	}
	return r.rows.Scan(dest...)
}

// bridgeTx is a server-side transaction held open by the bridge and addressed
// by id.
type bridgeTx struct {
	client *BridgeClient
	id     string

	mu     sync.Mutex
	closed bool
}

func (t *bridgeTx) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *bridgeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if t.isClosed() {
		return commandTag(0), ErrTxClosed
	}
	resp, err := t.client.runSQL(ctx, sql, args, t.id)
	if err != nil {
		return commandTag(0), err
	}
	return commandTag(resp.RowsAffected), nil
}

func (t *bridgeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if t.isClosed() {
		return nil, ErrTxClosed
	}
	resp, err := t.client.runSQL(ctx, sql, args, t.id)
	if err != nil {
		return nil, err
	}
	return newBridgeRows(resp), nil
}

func (t *bridgeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	rows, err := t.Query(ctx, sql, args...)
	return &bridgeRow{rows: rows, err: err}
}

func (t *bridgeTx) Commit(ctx context.Context) error {
	return t.finish(ctx, "commit")
}

func (t *bridgeTx) Rollback(ctx context.Context) error {
	return t.finish(ctx, "rollback")
}

func (t *bridgeTx) finish(ctx context.Context, action string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTxClosed
	}
	t.closed = true
	t.mu.Unlock()

	var out StatusResponse
	return t.client.post(ctx, "/tx/"+t.id+"/"+action, struct{}{}, &out)
}
