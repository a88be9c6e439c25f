package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/playhub/internal/database"
	"github.com/HammerMeetNail/playhub/internal/logging"
)

// openTx is a transaction held across HTTP requests. Statements on the same
// transaction run one at a time under mu.
type openTx struct {
	id string
	tx database.Tx

	mu       sync.Mutex
	lastUsed time.Time
	done     bool
}

// txRegistry tracks open transactions by id and rolls back the ones left idle
// past timeout.
type txRegistry struct {
	mu      sync.Mutex
	txs     map[string]*openTx
	timeout time.Duration
	now     func() time.Time
	metrics *metrics
	log     *logging.Logger
}

func newTxRegistry(timeout time.Duration, m *metrics, log *logging.Logger) *txRegistry {
	return &txRegistry{
		txs:     make(map[string]*openTx),
		timeout: timeout,
		now:     time.Now,
		metrics: m,
		log:     log,
	}
}

func (r *txRegistry) add(tx database.Tx) *openTx {
	ot := &openTx{id: uuid.NewString(), tx: tx, lastUsed: r.now()}

	r.mu.Lock()
	r.txs[ot.id] = ot
	r.mu.Unlock()

	r.metrics.openTxs.Inc()
	return ot
}

// acquire returns the transaction locked for exclusive use. The caller must
// call release.
func (r *txRegistry) acquire(id string) (*openTx, bool) {
	r.mu.Lock()
	ot, ok := r.txs[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	ot.mu.Lock()
	if ot.done {
		ot.mu.Unlock()
		return nil, false
	}
	ot.lastUsed = r.now()
	return ot, true
}

func (r *txRegistry) release(ot *openTx) {
	ot.lastUsed = r.now()
	ot.mu.Unlock()
}

// finish removes the transaction and commits or rolls it back. It reports
// false when id is unknown or already finished.
func (r *txRegistry) finish(ctx context.Context, id string, commit bool) (bool, error) {
	r.mu.Lock()
	ot, ok := r.txs[id]
	delete(r.txs, id)
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, r.end(ctx, ot, commit)
}

func (r *txRegistry) end(ctx context.Context, ot *openTx, commit bool) error {
	ot.mu.Lock()
	defer ot.mu.Unlock()
	if ot.done {
		return database.ErrTxClosed
	}
	ot.done = true
	r.metrics.openTxs.Dec()

	var err error
	result := "rollback"
	if commit {
		result = "commit"
		err = ot.tx.Commit(ctx)
	} else {
		err = ot.tx.Rollback(ctx)
	}
	if err != nil {
		result += "_failed"
	}
	r.metrics.transactions.WithLabelValues(result).Inc()
	return err
}

// reap rolls back every transaction idle for longer than the timeout and
// returns how many it closed.
func (r *txRegistry) reap(ctx context.Context) int {
	cutoff := r.now().Add(-r.timeout)

	r.mu.Lock()
	var stale []*openTx
	for id, ot := range r.txs {
		if ot.mu.TryLock() {
			idle := ot.lastUsed.Before(cutoff)
			ot.mu.Unlock()
			if idle {
				stale = append(stale, ot)
				delete(r.txs, id)
			}
		}
	}
	r.mu.Unlock()

	for _, ot := range stale {
		if err := r.end(ctx, ot, false); err != nil {
			r.log.Warn("Failed to roll back idle transaction", map[string]interface{}{
				"tx_id": ot.id,
				"error": err.Error(),
			})
			continue
		}
		r.metrics.reapedTxs.Inc()
		r.log.Info("Rolled back idle transaction", map[string]interface{}{
			"tx_id": ot.id,
		})
	}
	return len(stale)
}

// closeAll rolls back everything still open.
func (r *txRegistry) closeAll(ctx context.Context) {
	r.mu.Lock()
	all := make([]*openTx, 0, len(r.txs))
	for id, ot := range r.txs {
		all = append(all, ot)
		delete(r.txs, id)
	}
	r.mu.Unlock()

	for _, ot := range all {
		_ = r.end(ctx, ot, false)
	}
}

func (r *txRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}
