package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okChecker() HealthChecker {
	return HealthCheckerFunc(func(ctx context.Context) error { return nil })
}

func TestHealthHandler(t *testing.T) {
	down := HealthCheckerFunc(func(ctx context.Context) error { return errors.New("down") })

	tests := []struct {
		name     string
		db       HealthChecker
		redis    HealthChecker
		status   int
		expected HealthResponse
	}{
		{"all up", okChecker(), okChecker(), http.StatusOK, HealthResponse{"ok", "connected", "connected"}},
		{"redis disabled", okChecker(), nil, http.StatusOK, HealthResponse{"ok", "connected", "disabled"}},
		{"db down", down, okChecker(), http.StatusServiceUnavailable, HealthResponse{"degraded", "unreachable", "connected"}},
		{"redis down", okChecker(), down, http.StatusServiceUnavailable, HealthResponse{"degraded", "connected", "unreachable"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewHealthHandler(tt.db, tt.redis).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			var got HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if got != tt.expected {
				t.Fatalf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}
