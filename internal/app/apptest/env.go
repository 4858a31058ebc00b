// Package apptest builds a seeded in-memory environment for service tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydocs/internal/app"
	"paydocs/internal/core/clock"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/ledger"
	"paydocs/internal/infrastructure/storage/memory"
)

// Today is the evaluation date every environment starts at.
var Today = clock.DateOf(2026, time.March, 2)

// Env is a seeded environment over the memory backend.
type Env struct {
	Ctx   context.Context
	Svc   *app.Services
	Store *memory.Store
	Clock *clock.FakeClock
	Demo  *app.Demo
}

// New seeds a fresh environment. opts.Clock is replaced by the fake clock.
func New(t *testing.T, opts ...app.Options) *Env {
	t.Helper()
	var o app.Options
	if len(opts) > 0 {
		o = opts[0]
	}
	clk := clock.NewFakeClock(Today.Add(9 * time.Hour))
	o.Clock = clk

	svc, store, err := app.NewMemory(o)
	require.NoError(t, err)

	ctx := context.Background()
	demo, err := app.SeedDemo(ctx, svc)
	require.NoError(t, err)

	return &Env{Ctx: ctx, Svc: svc, Store: store, Clock: clk, Demo: demo}
}

// Days returns Today shifted by n days.
func Days(n int) time.Time {
	return Today.AddDate(0, 0, n)
}

// Invoice posts a customer invoice and returns its receivable line.
func (e *Env) Invoice(t *testing.T, ref, amount string, maturity time.Time) *ledger.MoveLine {
	t.Helper()
	_, line, err := e.Demo.CustomerInvoice(e.Ctx, e.Svc, ref, types.MustMoney(amount), Days(-10), maturity)
	require.NoError(t, err)
	return line
}

// Bill posts a supplier bill and returns its payable line.
func (e *Env) Bill(t *testing.T, ref, amount string, maturity time.Time) *ledger.MoveLine {
	t.Helper()
	_, line, err := e.Demo.SupplierBill(e.Ctx, e.Svc, ref, types.MustMoney(amount), Days(-10), maturity)
	require.NoError(t, err)
	return line
}

// Document creates a draft document on mode for partner and attaches the move lines.
func (e *Env) Document(t *testing.T, name string, mode *catalog.PaymentMode, partner *catalog.Partner, lines ...*ledger.MoveLine) *payment_document.PaymentDocument {
	t.Helper()
	doc := payment_document.NewPaymentDocument(name, partner.ID, mode.ID)
	require.NoError(t, e.Svc.Documents.Create(e.Ctx, doc))
	if len(lines) == 0 {
		return doc
	}
	doc, err := e.Svc.Documents.AttachMoveLines(e.Ctx, doc.ID, ledger.LineIDs(lines))
	require.NoError(t, err)
	return doc
}

// Line reloads a move line.
func (e *Env) Line(t *testing.T, lineID id.ID) *ledger.MoveLine {
	t.Helper()
	l, err := e.Svc.Ledger.Line(e.Ctx, lineID)
	require.NoError(t, err)
	return l
}

// AssertMoney compares amounts by value.
func AssertMoney(t *testing.T, want string, got types.Money) {
	t.Helper()
	assert.Truef(t, types.MustMoney(want).Equal(got), "want %s, got %s", want, got.String())
}
