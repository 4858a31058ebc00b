// Package expiration runs the periodic jobs that settle overdue payment
// orders and payment documents.
package expiration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"paydocs/internal/core/clock"
	"paydocs/internal/core/id"
	"paydocs/internal/core/tx"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/ledger"
	"paydocs/pkg/logger"
)

var tracer = otel.Tracer("paydocs/expiration")

const (
	JobOrders    = "expire_orders"
	JobDocuments = "expire_documents"
)

// Documents is the payment document side of the jobs.
type Documents interface {
	Find(ctx context.Context, filter payment_document.ListFilter) ([]*payment_document.PaymentDocument, error)
	GetByID(ctx context.Context, docID id.ID) (*payment_document.PaymentDocument, error)
	Moves(ctx context.Context, docID id.ID) ([]*ledger.Move, error)
	OffsettingAccount(ctx context.Context, doc *payment_document.PaymentDocument, mode *catalog.PaymentMode) (id.ID, error)
	MarkExpired(ctx context.Context, docID, expirationMoveID id.ID) (*payment_document.PaymentDocument, error)
}

// Orders is the payment order side of the jobs.
type Orders interface {
	Find(ctx context.Context, filter payment_order.ListFilter) ([]*payment_order.PaymentOrder, error)
	GetByID(ctx context.Context, orderID id.ID) (*payment_order.PaymentOrder, error)
	ReconcileBankLines(ctx context.Context, o *payment_order.PaymentOrder, upTo *time.Time) error
	BankLineReconciled(ctx context.Context, o *payment_order.PaymentOrder, b *payment_order.BankPaymentLine) (bool, error)
	ActionDone(ctx context.Context, orderID id.ID) (*payment_order.PaymentOrder, error)
}

// Ledger creates and reconciles the expiration moves.
type Ledger interface {
	CreateMove(ctx context.Context, m *ledger.Move) error
	Post(ctx context.Context, moveID id.ID) error
	Reconcile(ctx context.Context, lineIDs []id.ID) (id.ID, error)
	Lines(ctx context.Context, f ledger.LineFilter) ([]*ledger.MoveLine, error)
}

// Catalog resolves modes and journals.
type Catalog interface {
	PaymentMode(ctx context.Context, modeID id.ID) (*catalog.PaymentMode, error)
	Journal(ctx context.Context, journalID id.ID) (*catalog.Journal, error)
}

// Locker grants exclusive job runs. ok is false when the key is held elsewhere.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// Metrics receives job health signals. A nil Metrics disables them.
type Metrics interface {
	IncJobRun(job string)
	ObserveJobDuration(job string, d time.Duration)
	IncJobTimeout(job string)
	IncJobError(job string, err error)
	AddItems(job, outcome string, n int)
	IncLockSkipped(job string)
}

// Config controls job timeouts and lock leases.
type Config struct {
	JobTimeout time.Duration
	LockTTL    time.Duration
}

// DefaultConfig returns a five minute timeout with a matching lease.
func DefaultConfig() Config {
	return Config{
		JobTimeout: 5 * time.Minute,
		LockTTL:    5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = c.JobTimeout
	}
	return c
}

// Params groups the scheduler dependencies.
type Params struct {
	Documents Documents
	Orders    Orders
	Ledger    Ledger
	Catalog   Catalog
	Clock     clock.Clock
	TxManager tx.Manager
	Locker    Locker
	Metrics   Metrics
	Config    Config
}

// Scheduler runs the order and document expiration jobs.
type Scheduler struct {
	documents Documents
	orders    Orders
	ledger    Ledger
	catalog   Catalog
	clock     clock.Clock
	txManager tx.Manager
	locker    Locker
	metrics   Metrics
	cfg       Config
}

// New creates a scheduler. Locker and Metrics are optional.
func New(p Params) *Scheduler {
	clk := p.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scheduler{
		documents: p.Documents,
		orders:    p.Orders,
		ledger:    p.Ledger,
		catalog:   p.Catalog,
		clock:     clk,
		txManager: p.TxManager,
		locker:    p.Locker,
		metrics:   p.Metrics,
		cfg:       p.Config.withDefaults(),
	}
}

// Result counts what a job run did.
type Result struct {
	Processed int
	Skipped   int
}

// RunOnce runs the order job and then the document job for today.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	today := clock.Today(s.clock)
	return errors.Join(
		s.runJob(ctx, JobOrders, func(ctx context.Context) (Result, error) { return s.RunOrders(ctx, today) }),
		s.runJob(ctx, JobDocuments, func(ctx context.Context) (Result, error) { return s.RunDocuments(ctx, today) }),
	)
}

// RunForever calls RunOnce every interval until ctx is done.
func (s *Scheduler) RunForever(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			logger.Warn(ctx, "expiration run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) (Result, error)) error {
	ctx, cancel := context.WithTimeout(logger.WithJob(parent, name), s.cfg.JobTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.String("job", name)))
	defer span.End()

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, name, s.cfg.LockTTL)
		if err != nil {
			s.incJobError(name, err)
			return fmt.Errorf("%s: %w", name, err)
		}
		if !ok {
			logger.Debug(ctx, "job held by another worker, skipped")
			if s.metrics != nil {
				s.metrics.IncLockSkipped(name)
			}
			return nil
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn(ctx, "failed to release job lock", "error", err)
			}
		}()
	}

	start := time.Now()
	if s.metrics != nil {
		s.metrics.IncJobRun(name)
	}
	res, err := fn(ctx)
	if s.metrics != nil {
		s.metrics.ObserveJobDuration(name, time.Since(start))
	}
	span.SetAttributes(
		attribute.Int("processed", res.Processed),
		attribute.Int("skipped", res.Skipped),
	)
	if err == nil {
		logger.Info(ctx, "expiration job finished", "processed", res.Processed, "skipped", res.Skipped)
		return nil
	}

	span.RecordError(err)
	s.incJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if s.metrics != nil {
			s.metrics.IncJobTimeout(name)
		}
		logger.Warn(ctx, "expiration job timed out", "timeout", s.cfg.JobTimeout, "error", err)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) incJobError(job string, err error) {
	if s.metrics != nil {
		s.metrics.IncJobError(job, err)
	}
}

func (s *Scheduler) addItems(job, outcome string, n int) {
	if s.metrics != nil {
		s.metrics.AddItems(job, outcome, n)
	}
}
