// Package memory provides an in-process storage backend with the same
// contracts as the PostgreSQL one. Transactions are serialised and roll back
// by restoring a snapshot, which makes it suitable for tests and local runs.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"paydocs/internal/core/id"
	"paydocs/internal/domain/audit"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/ledger"
)

type state struct {
	accounts map[id.ID]*catalog.Account
	journals map[id.ID]*catalog.Journal
	partners map[id.ID]*catalog.Partner
	methods  map[id.ID]*catalog.PaymentMethod
	modes    map[id.ID]*catalog.PaymentMode

	moves     map[id.ID]*ledger.Move
	moveLines map[id.ID]*ledger.MoveLine

	documents map[id.ID]*payment_document.PaymentDocument
	docLines  map[id.ID]*payment_document.DocumentLine

	orders       map[id.ID]*payment_order.PaymentOrder
	paymentLines map[id.ID]*payment_order.PaymentLine
	bankLines    map[id.ID]*payment_order.BankPaymentLine

	sequences map[string]int64
	audit     []audit.Entry
}

func newState() *state {
	return &state{
		accounts:     make(map[id.ID]*catalog.Account),
		journals:     make(map[id.ID]*catalog.Journal),
		partners:     make(map[id.ID]*catalog.Partner),
		methods:      make(map[id.ID]*catalog.PaymentMethod),
		modes:        make(map[id.ID]*catalog.PaymentMode),
		moves:        make(map[id.ID]*ledger.Move),
		moveLines:    make(map[id.ID]*ledger.MoveLine),
		documents:    make(map[id.ID]*payment_document.PaymentDocument),
		docLines:     make(map[id.ID]*payment_document.DocumentLine),
		orders:       make(map[id.ID]*payment_order.PaymentOrder),
		paymentLines: make(map[id.ID]*payment_order.PaymentLine),
		bankLines:    make(map[id.ID]*payment_order.BankPaymentLine),
		sequences:    make(map[string]int64),
	}
}

// copyOf returns a shallow copy of *v.
func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

func cloneTable[T any](m map[id.ID]*T, cp func(*T) *T) map[id.ID]*T {
	out := make(map[id.ID]*T, len(m))
	for k, v := range m {
		out[k] = cp(v)
	}
	return out
}

func copyMode(m *catalog.PaymentMode) *catalog.PaymentMode {
	c := *m
	c.VariableJournalIDs = slices.Clone(m.VariableJournalIDs)
	return &c
}

func copyMove(m *ledger.Move) *ledger.Move {
	c := *m
	c.Lines = nil
	return &c
}

func copyDocument(d *payment_document.PaymentDocument) *payment_document.PaymentDocument {
	c := *d
	c.Lines = nil
	return &c
}

func copyOrder(o *payment_order.PaymentOrder) *payment_order.PaymentOrder {
	c := *o
	c.PaymentLines, c.BankLines, c.DocumentIDs = nil, nil, nil
	return &c
}

func copyBankLine(b *payment_order.BankPaymentLine) *payment_order.BankPaymentLine {
	c := *b
	c.PaymentLineIDs = slices.Clone(b.PaymentLineIDs)
	return &c
}

func (s *state) clone() *state {
	return &state{
		accounts:     cloneTable(s.accounts, copyOf[catalog.Account]),
		journals:     cloneTable(s.journals, copyOf[catalog.Journal]),
		partners:     cloneTable(s.partners, copyOf[catalog.Partner]),
		methods:      cloneTable(s.methods, copyOf[catalog.PaymentMethod]),
		modes:        cloneTable(s.modes, copyMode),
		moves:        cloneTable(s.moves, copyMove),
		moveLines:    cloneTable(s.moveLines, copyOf[ledger.MoveLine]),
		documents:    cloneTable(s.documents, copyDocument),
		docLines:     cloneTable(s.docLines, copyOf[payment_document.DocumentLine]),
		orders:       cloneTable(s.orders, copyOrder),
		paymentLines: cloneTable(s.paymentLines, copyOf[payment_order.PaymentLine]),
		bankLines:    cloneTable(s.bankLines, copyBankLine),
		sequences:    maps.Clone(s.sequences),
		audit:        slices.Clone(s.audit),
	}
}

// Store holds all tables of the in-memory backend.
type Store struct {
	// txMu serialises transactions; mu guards data for every access.
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// AuditEntries returns the recorded audit trail.
func (s *Store) AuditEntries() []audit.Entry {
	var out []audit.Entry
	s.read(func(st *state) { out = slices.Clone(st.audit) })
	return out
}

type txKey struct{}

// TxManager implements tx.Manager for the memory store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager over store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction executes fn atomically. Nested calls join the outer
// transaction; an error restores the state captured when it began.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	var snapshot *state
	m.store.read(func(st *state) { snapshot = st.clone() })

	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		m.store.mu.Lock()
		m.store.data = snapshot
		m.store.mu.Unlock()
		return err
	}
	return nil
}

// ReadOnly runs fn without taking a snapshot.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
