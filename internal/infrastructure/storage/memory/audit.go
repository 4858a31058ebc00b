package memory

import (
	"context"
	"time"

	corenumerator "paydocs/internal/core/numerator"
	"paydocs/internal/domain/audit"
)

// AuditRecorder appends audit entries to the store, inside the caller's transaction.
type AuditRecorder struct {
	store *Store
}

// NewAuditRecorder creates an audit recorder over store.
func NewAuditRecorder(store *Store) *AuditRecorder {
	return &AuditRecorder{store: store}
}

var _ audit.Recorder = (*AuditRecorder)(nil)

// Record implements audit.Recorder.
func (r *AuditRecorder) Record(ctx context.Context, e audit.Entry) error {
	return r.store.write(func(st *state) error {
		st.audit = append(st.audit, e)
		return nil
	})
}

// Numerator hands out gapless numbers from the store's sequences.
// Numbers taken inside a failed transaction are given back with the rollback.
type Numerator struct {
	store *Store
}

// NewNumerator creates a numerator over store.
func NewNumerator(store *Store) *Numerator {
	return &Numerator{store: store}
}

var _ corenumerator.Generator = (*Numerator)(nil)

// GetNextNumber implements numerator.Generator. Every strategy is strict here.
func (n *Numerator) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	key := cfg.Key(period)
	var num int64
	_ = n.store.write(func(st *state) error {
		st.sequences[key]++
		num = st.sequences[key]
		return nil
	})
	return cfg.Format(period, num), nil
}
