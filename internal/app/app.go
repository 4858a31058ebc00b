// Package app is the composition root: it builds the domain services over a
// storage backend and shares them between the server, worker and seed binaries.
package app

import (
	"fmt"

	"paydocs/internal/core/clock"
	"paydocs/internal/core/numerator"
	"paydocs/internal/core/tx"
	"paydocs/internal/domain/audit"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documentlink"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/expiration"
	"paydocs/internal/domain/ledger"
	"paydocs/internal/domain/linecreate"
	"paydocs/internal/infrastructure/storage/memory"
)

// Repositories is one storage backend.
type Repositories struct {
	Catalog   catalog.Repository
	Ledger    ledger.Repository
	Documents payment_document.Repository
	Orders    payment_order.Repository
	Numerator numerator.Generator
	Audit     audit.Recorder
	TxManager tx.Manager
}

// NewMemoryRepositories builds the in-process backend over a fresh store.
func NewMemoryRepositories() (Repositories, *memory.Store) {
	store := memory.NewStore()
	return Repositories{
		Catalog:   memory.NewCatalogRepo(store),
		Ledger:    memory.NewLedgerRepo(store),
		Documents: memory.NewDocumentRepo(store),
		Orders:    memory.NewOrderRepo(store),
		Numerator: memory.NewNumerator(store),
		Audit:     memory.NewAuditRecorder(store),
		TxManager: memory.NewTxManager(store),
	}, store
}

// Options carries the optional collaborators of the expiration scheduler.
type Options struct {
	Clock      clock.Clock
	Locker     expiration.Locker
	Metrics    expiration.Metrics
	Expiration expiration.Config
}

// Services are the domain services sharing one backend.
type Services struct {
	Catalog    *catalog.Service
	Ledger     *ledger.Service
	Documents  *payment_document.Service
	Orders     *payment_order.Service
	LineCreate *linecreate.Service
	Links      *documentlink.Service
	Expiration *expiration.Scheduler

	Clock     clock.Clock
	TxManager tx.Manager
}

// New wires the services.
func New(repos Repositories, opts Options) (*Services, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	catalogSvc := catalog.NewService(repos.Catalog, repos.TxManager)
	ledgerSvc := ledger.NewService(repos.Ledger, catalogSvc, repos.Numerator, repos.TxManager)
	docSvc := payment_document.NewService(repos.Documents, catalogSvc, ledgerSvc, clk, repos.TxManager, repos.Audit)
	orderSvc := payment_order.NewService(repos.Orders, catalogSvc, ledgerSvc, docSvc, clk, repos.TxManager, repos.Audit)

	lineSvc, err := linecreate.NewService(ledgerSvc, catalogSvc, docSvc, orderSvc)
	if err != nil {
		return nil, fmt.Errorf("line creation: %w", err)
	}

	scheduler := expiration.New(expiration.Params{
		Documents: docSvc,
		Orders:    orderSvc,
		Ledger:    ledgerSvc,
		Catalog:   catalogSvc,
		Clock:     clk,
		TxManager: repos.TxManager,
		Locker:    opts.Locker,
		Metrics:   opts.Metrics,
		Config:    opts.Expiration,
	})

	return &Services{
		Catalog:    catalogSvc,
		Ledger:     ledgerSvc,
		Documents:  docSvc,
		Orders:     orderSvc,
		LineCreate: lineSvc,
		Links:      documentlink.NewService(ledgerSvc, catalogSvc, docSvc, orderSvc, repos.TxManager),
		Expiration: scheduler,
		Clock:      clk,
		TxManager:  repos.TxManager,
	}, nil
}

// NewMemory wires the services over a fresh in-memory store.
func NewMemory(opts Options) (*Services, *memory.Store, error) {
	repos, store := NewMemoryRepositories()
	svc, err := New(repos, opts)
	if err != nil {
		return nil, nil, err
	}
	return svc, store, nil
}
