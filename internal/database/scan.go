package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// scanValues assigns JSON-decoded bridge values into typed scan destinations,
// mirroring what pgx does for the direct transport.
func scanValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("number of field descriptions must equal number of destinations, got %d and %d", len(values), len(dest))
	}
	for i := range dest {
		if dest[i] == nil {
			continue
		}
		if err := assignValue(dest[i], values[i]); err != nil {
			return fmt.Errorf("can't scan into dest[%d]: %w", i, err)
		}
	}
	return nil
}

func assignValue(dest any, src any) error {
	if scanner, ok := dest.(sql.Scanner); ok {
		return scanner.Scan(src)
	}
	if d, ok := dest.(*any); ok {
		*d = src
		return nil
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return fmt.Errorf("destination %T is not a non-nil pointer", dest)
	}
	ev := dv.Elem()

	if src == nil {
		ev.Set(reflect.Zero(ev.Type()))
		return nil
	}

	if ev.Kind() == reflect.Ptr {
		nv := reflect.New(ev.Type().Elem())
		if err := assignValue(nv.Interface(), src); err != nil {
			return err
		}
		ev.Set(nv)
		return nil
	}

	if ev.Type() == timeType {
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("cannot scan %T into time.Time", src)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		ev.Set(reflect.ValueOf(t))
		return nil
	}

	sv := reflect.ValueOf(src)
	switch ev.Kind() {
	case reflect.String:
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("cannot scan %T into %s", src, ev.Type())
		}
		ev.SetString(s)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := src.(int64)
		if !ok {
			f, isFloat := src.(float64)
			if !isFloat || f != float64(int64(f)) {
				return fmt.Errorf("cannot scan %T into %s", src, ev.Type())
			}
			i = int64(f)
		}
		if ev.OverflowInt(i) {
			return fmt.Errorf("value %d overflows %s", i, ev.Type())
		}
		ev.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, ok := src.(int64)
		if !ok || i < 0 || ev.OverflowUint(uint64(i)) {
			return fmt.Errorf("cannot scan %v into %s", src, ev.Type())
		}
		ev.SetUint(uint64(i))
		return nil
	case reflect.Float32, reflect.Float64:
		switch n := src.(type) {
		case float64:
			ev.SetFloat(n)
		case int64:
			ev.SetFloat(float64(n))
		default:
			return fmt.Errorf("cannot scan %T into %s", src, ev.Type())
		}
		return nil
	case reflect.Bool:
		b, ok := src.(bool)
		if !ok {
			return fmt.Errorf("cannot scan %T into %s", src, ev.Type())
		}
		ev.SetBool(b)
		return nil
	}

	if sv.Type().AssignableTo(ev.Type()) {
		ev.Set(sv)
		return nil
	}

	// Composite columns (json, arrays) arrive as decoded JSON; re-decode them
	// into the destination shape.
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("cannot scan %T into %s: %w", src, ev.Type(), err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cannot scan %T into %s: %w", src, ev.Type(), err)
	}
	return nil
}
