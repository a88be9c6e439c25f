// Package bridge serves the SQL-over-HTTP contract that database.BridgeClient
// speaks, for deployments where the application cannot reach Postgres
// directly.
package bridge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/HammerMeetNail/playhub/internal/database"
	"github.com/HammerMeetNail/playhub/internal/logging"
)

const maxRequestBodyBytes = 8 << 20 // 8 MiB

type Options struct {
	// Token, when set, is required as a bearer token on every route except
	// /health.
	Token string
	// RateLimit is the sustained requests per second admitted to /sql and
	// /tx/begin. Zero disables admission control.
	RateLimit float64
	RateBurst int
	// TxTimeout is how long a transaction may sit idle before the reaper
	// rolls it back.
	TxTimeout time.Duration
	Logger    *logging.Logger
}

type Server struct {
	db      database.DB
	txs     *txRegistry
	metrics *metrics
	limiter *rate.Limiter
	token   string
	log     *logging.Logger
	mux     *http.ServeMux
}

func NewServer(db database.DB, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Default
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 30 * time.Second
	}

	m := newMetrics()
	s := &Server{
		db:      db,
		txs:     newTxRegistry(opts.TxTimeout, m, log),
		metrics: m,
		token:   opts.Token,
		log:     log,
		mux:     http.NewServeMux(),
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	s.mux.HandleFunc("POST /sql", s.admit(s.handleSQL))
	s.mux.HandleFunc("POST /tx/begin", s.admit(s.handleBegin))
	s.mux.HandleFunc("POST /tx/{id}/commit", s.handleFinish(true))
	s.mux.HandleFunc("POST /tx/{id}/rollback", s.handleFinish(false))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/health" && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	s.mux.ServeHTTP(w, r)
}

// Run reaps idle transactions until ctx is done, then rolls back whatever is
// still open.
func (s *Server) Run(ctx context.Context) error {
	interval := s.txs.timeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			s.txs.closeAll(closeCtx)
			cancel()
			return nil
		case <-ticker.C:
			s.txs.reap(ctx)
		}
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
}

func (s *Server) admit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.metrics.rateLimited.Inc()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleSQL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var req database.SQLRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required", "")
		return
	}
	params := database.NormalizeParams(req.Params)

	var conn database.Conn = s.db
	if req.TxID != "" {
		ot, ok := s.txs.acquire(req.TxID)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown transaction", "")
			return
		}
		defer s.txs.release(ot)
		conn = ot.tx
	}

	start := time.Now()
	resp, err := database.RunStatement(r.Context(), conn, req.Query, params)
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	s.metrics.statements.WithLabelValues(outcome, scopeOf(req.TxID)).Inc()
	s.metrics.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		s.writeDatabaseError(w, "Statement failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	// The transaction outlives this request.
	tx, err := s.db.Begin(context.WithoutCancel(r.Context()))
	if err != nil {
		s.writeDatabaseError(w, "Begin failed", err)
		return
	}
	ot := s.txs.add(tx)
	writeJSON(w, http.StatusOK, database.TxResponse{TxID: ot.id})
}

func (s *Server) handleFinish(commit bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		found, err := s.txs.finish(context.WithoutCancel(r.Context()), id, commit)
		if !found || errors.Is(err, database.ErrTxClosed) {
			writeError(w, http.StatusNotFound, "unknown transaction", "")
			return
		}
		if err != nil {
			s.writeDatabaseError(w, "Transaction finish failed", err)
			return
		}
		writeJSON(w, http.StatusOK, database.StatusResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// handleHealth reports that the bridge process is up. It does not probe the
// database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "connected"})
}

func (s *Server) writeDatabaseError(w http.ResponseWriter, msg string, err error) {
	s.log.Warn(msg, map[string]interface{}{"error": err.Error()})

	message := err.Error()
	var qe *database.QueryError
	if errors.As(err, &qe) && qe.Message != "" {
		message = qe.Message
	}
	writeError(w, http.StatusBadGateway, message, database.SQLState(err))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error("Failed to encode bridge response", map[string]interface{}{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, database.BridgeError{Error: message, Code: code})
}
