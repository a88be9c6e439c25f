package database

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/netip"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Wire types shared by BridgeClient and the bridge server.

type SQLRequest struct {
	Query  string `json:"query"`
	Params []any  `json:"params"`
	TxID   string `json:"txId,omitempty"`
}

type SQLResponse struct {
	Rows         []map[string]any `json:"rows"`
	Columns      []string         `json:"columns,omitempty"`
	Types        []uint32         `json:"types,omitempty"`
	RowsAffected int64            `json:"rowsAffected"`
}

type BridgeError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type TxResponse struct {
	TxID string `json:"txId"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// Record is one untyped result row keyed by column name.
type Record map[string]any

// NormalizeValue converts a driver value into the representation a JSON round
// trip through the bridge produces, so both transports yield identical records.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return uuid.UUID(t).String()
	case uuid.UUID:
		return t.String()
	case pgtype.UUID:
		if !t.Valid {
			return nil
		}
		return uuid.UUID(t.Bytes).String()
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case netip.Prefix:
		return t.String()
	case netip.Addr:
		return t.String()
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case json.Number:
		return numberValue(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = NormalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = NormalizeValue(val)
		}
		return out
	default:
		return v
	}
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil && !math.IsInf(f, 0) {
		return f
	}
	return n.String()
}

// floatNumbers turns every json.Number inside v into a float64, matching how
// the driver decodes float, numeric and json columns.
func floatNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = floatNumbers(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = floatNumbers(val)
		}
		return out
	default:
		return v
	}
}

func decodesAsFloat(oid uint32) bool {
	switch oid {
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID,
		pgtype.Float4ArrayOID, pgtype.Float8ArrayOID, pgtype.NumericArrayOID,
		pgtype.JSONOID, pgtype.JSONBOID, pgtype.JSONArrayOID, pgtype.JSONBArrayOID:
		return true
	}
	return false
}

// wireValue restores a value decoded from a bridge response using the type of
// its column. oid is zero when the bridge did not report column types.
func wireValue(oid uint32, v any) any {
	if decodesAsFloat(oid) {
		v = floatNumbers(v)
	}
	return NormalizeValue(v)
}

// NormalizeParams converts JSON-decoded parameters into driver-friendly values:
// integers become int64 and other numbers float64.
func NormalizeParams(params []any) []any {
	out := make([]any, len(params))
	for i, p := range params {
		if n, ok := p.(json.Number); ok {
			out[i] = numberValue(n)
			continue
		}
		out[i] = p
	}
	return out
}

// columnsFor returns the declared column order, falling back to sorted keys of
// the first row for bridges that do not report columns.
func columnsFor(resp SQLResponse) []string {
	if len(resp.Columns) > 0 {
		return resp.Columns
	}
	if len(resp.Rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(resp.Rows[0]))
	for k := range resp.Rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func recordFrom(columns []string, values []any) (Record, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}
	rec := make(Record, len(columns))
	for i, col := range columns {
		rec[col] = NormalizeValue(values[i])
	}
	return rec, nil
}

// RunStatement executes sql on c and packages the result in the bridge wire
// shape. It is the server half of the protocol BridgeClient speaks.
func RunStatement(ctx context.Context, c Conn, sql string, params []any) (SQLResponse, error) {
	rows, err := c.Query(ctx, sql, params...)
	if err != nil {
		return SQLResponse{}, err
	}
	defer rows.Close()

	resp := SQLResponse{Rows: []map[string]any{}, Columns: rows.Columns(), Types: ColumnTypes(rows)}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return SQLResponse{}, err
		}
		rec, err := recordFrom(resp.Columns, values)
		if err != nil {
			return SQLResponse{}, err
		}
		resp.Rows = append(resp.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return SQLResponse{}, err
	}

	// The command tag is only final once the rows are closed.
	rows.Close()
	resp.RowsAffected = RowsAffected(rows)
	return resp, nil
}
