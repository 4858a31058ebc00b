package payment_order_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydocs/internal/app/apptest"
	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/ledger"
)

func newOrder(t *testing.T, env *apptest.Env, name string, mode *catalog.PaymentMode, prefered catalog.DatePrefered) *payment_order.PaymentOrder {
	t.Helper()
	o := payment_order.NewPaymentOrder(name, mode.ID)
	o.DatePrefered = prefered
	require.NoError(t, env.Svc.Orders.Create(env.Ctx, o))
	return o
}

// upload walks an order from draft to uploaded.
func upload(t *testing.T, env *apptest.Env, orderID id.ID) *payment_order.PaymentOrder {
	t.Helper()
	_, err := env.Svc.Orders.Draft2Open(env.Ctx, orderID)
	require.NoError(t, err)
	_, err = env.Svc.Orders.Generate(env.Ctx, orderID)
	require.NoError(t, err)
	o, err := env.Svc.Orders.Generated2Uploaded(env.Ctx, orderID)
	require.NoError(t, err)
	return o
}

func TestCreate_DefaultsFromMode(t *testing.T) {
	env := apptest.New(t)
	o := payment_order.NewPaymentOrder("PO/000", env.Demo.OutboundMode.ID)
	o.DatePrefered = ""
	require.NoError(t, env.Svc.Orders.Create(env.Ctx, o))

	assert.Equal(t, catalog.PaymentTypeOutbound, o.PaymentType)
	require.NotNil(t, o.JournalID)
	assert.Equal(t, env.Demo.BankJournal.ID, *o.JournalID)
	assert.Equal(t, catalog.DatePreferedDue, o.DatePrefered)

	fixed := payment_order.NewPaymentOrder("PO/FIX", env.Demo.OutboundMode.ID)
	fixed.DatePrefered = catalog.DatePreferedFixed
	err := env.Svc.Orders.Create(env.Ctx, fixed)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestDraft2Open_WithoutLinesStaysDraft(t *testing.T) {
	env := apptest.New(t)
	o := newOrder(t, env, "PO/EMPTY", env.Demo.InboundMode, catalog.DatePreferedDue)

	_, err := env.Svc.Orders.Draft2Open(env.Ctx, o.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsUserError(err))
	assert.Contains(t, err.Error(), "There are no transactions on payment order PO/EMPTY.")

	got, err := env.Svc.Orders.GetByID(env.Ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_order.StateDraft, got.State)
}

func TestDraft2Open_GroupsBankLines(t *testing.T) {
	env := apptest.New(t)
	inv1 := env.Invoice(t, "SO001", "100", apptest.Days(3))
	inv2 := env.Invoice(t, "SO002", "50", apptest.Days(3))
	inv3 := env.Invoice(t, "SO003", "30", apptest.Days(-4))

	o := newOrder(t, env, "PO/001", env.Demo.InboundMode, catalog.DatePreferedDue)
	o, err := env.Svc.Orders.AddMoveLines(env.Ctx, o.ID, []id.ID{inv1.ID, inv2.ID, inv3.ID, inv1.ID})
	require.NoError(t, err)
	require.Len(t, o.PaymentLines, 3)
	assert.True(t, o.OnlyMoveLines())
	assert.Equal(t, []id.ID{env.Demo.Customer.ID}, o.PartnerIDs())

	opened, err := env.Svc.Orders.Draft2Open(env.Ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_order.StateOpen, opened.State)

	got, err := env.Svc.Orders.GetByID(env.Ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.BankLines, 2)
	byDate := map[string]*payment_order.BankPaymentLine{}
	for _, b := range got.BankLines {
		byDate[b.Date.Format("2006-01-02")] = b
	}
	due := byDate[apptest.Days(3).Format("2006-01-02")]
	require.NotNil(t, due)
	apptest.AssertMoney(t, "150", due.AmountCompanyCurrency)
	assert.Len(t, due.PaymentLineIDs, 2)

	// Overdue lines execute today.
	overdue := byDate[apptest.Today.Format("2006-01-02")]
	require.NotNil(t, overdue)
	apptest.AssertMoney(t, "30", overdue.AmountCompanyCurrency)

	for _, pl := range got.PaymentLines {
		assert.NotNil(t, pl.BankLineID)
		assert.NotNil(t, pl.Date)
	}
}

func TestDraft2Open_FixedDate(t *testing.T) {
	env := apptest.New(t)
	inv := env.Invoice(t, "SO001", "100", apptest.Days(30))

	o := payment_order.NewPaymentOrder("PO/FIXED", env.Demo.InboundMode.ID)
	o.DatePrefered = catalog.DatePreferedFixed
	scheduled := apptest.Days(4)
	o.DateScheduled = &scheduled
	require.NoError(t, env.Svc.Orders.Create(env.Ctx, o))
	_, err := env.Svc.Orders.AddMoveLines(env.Ctx, o.ID, []id.ID{inv.ID})
	require.NoError(t, err)
	_, err = env.Svc.Orders.Draft2Open(env.Ctx, o.ID)
	require.NoError(t, err)

	got, err := env.Svc.Orders.GetByID(env.Ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.BankLines, 1)
	assert.Equal(t, scheduled, got.BankLines[0].Date)
}

func TestGenerated2Uploaded_DueOrderMove(t *testing.T) {
	env := apptest.New(t)
	inv1 := env.Invoice(t, "SO001", "100", apptest.Days(3))
	inv2 := env.Invoice(t, "SO002", "50", apptest.Days(3))

	o := newOrder(t, env, "PO/001", env.Demo.InboundMode, catalog.DatePreferedDue)
	_, err := env.Svc.Orders.AddMoveLines(env.Ctx, o.ID, []id.ID{inv1.ID, inv2.ID})
	require.NoError(t, err)
	uploaded := upload(t, env, o.ID)
	assert.Equal(t, payment_order.StateUploaded, uploaded.State)
	require.NotNil(t, uploaded.DateGenerated)
	require.NotNil(t, uploaded.DateUploaded)

	moves, err := env.Svc.Orders.Moves(env.Ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	move := moves[0]
	assert.Equal(t, "Debit order PO/001 - PO/001/001", move.Ref)
	assert.Equal(t, apptest.Days(3), move.Date)
	assert.Equal(t, ledger.MovePosted, move.State)
	assert.True(t, move.TotalDebit().Equal(move.TotalCredit()))

	for _, l := range move.Lines {
		switch l.AccountID {
		case env.Demo.Receivable.ID:
			apptest.AssertMoney(t, "150", l.Credit)
			assert.Equal(t, "Debit bank line PO/001/001", l.Name)
			require.NotNil(t, l.BankPaymentLineID)
			assert.Equal(t, uploaded.BankLines[0].ID, *l.BankPaymentLineID)
		case env.Demo.Bank.ID:
			apptest.AssertMoney(t, "150", l.Debit)
			assert.Equal(t, apptest.Days(3), l.Date)
		default:
			t.Fatalf("unexpected account on line %q", l.Name)
		}
	}

	// Due orders wait for the expiration job.
	assert.False(t, env.Line(t, inv1.ID).Reconciled)
	ok, err := env.Svc.Orders.BankLineReconciled(env.Ctx, uploaded, uploaded.BankLines[0])
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, env.Svc.Orders.ReconcileBankLine(env.Ctx, o.ID, uploaded.BankLines[0].ID))
	assert.True(t, env.Line(t, inv1.ID).Reconciled)
	assert.True(t, env.Line(t, inv2.ID).Reconciled)
}

func TestGenerated2Uploaded_NowReconcilesImmediately(t *testing.T) {
	env := apptest.New(t)
	bill := env.Bill(t, "BILL-1", "80", apptest.Days(10))

	o := newOrder(t, env, "PO/NOW", env.Demo.OutboundMode, catalog.DatePreferedNow)
	_, err := env.Svc.Orders.AddMoveLines(env.Ctx, o.ID, []id.ID{bill.ID})
	require.NoError(t, err)
	uploaded := upload(t, env, o.ID)
	require.Len(t, uploaded.BankLines, 1)
	assert.Equal(t, apptest.Today, uploaded.BankLines[0].Date)

	assert.True(t, env.Line(t, bill.ID).Reconciled)
	move, err := env.Svc.Ledger.Move(env.Ctx, bill.MoveID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Paid, move.PaymentState)

	done, err := env.Svc.Orders.ActionDone(env.Ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_order.StateDone, done.State)
	assert.NotNil(t, done.DateDone)
}

func TestAttachDocuments_OnlyDocsOrder(t *testing.T) {
	env := apptest.New(t)
	inv := env.Invoice(t, "SO001", "100", apptest.Days(5))
	doc := env.Document(t, "PD/001", env.Demo.InboundMode, env.Demo.Customer, inv)
	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.NoError(t, err)

	o := newOrder(t, env, "PO/DOCS", env.Demo.InboundMode, catalog.DatePreferedDue)
	o, err = env.Svc.Orders.AttachDocuments(env.Ctx, o.ID, []id.ID{doc.ID})
	require.NoError(t, err)
	assert.Equal(t, []id.ID{doc.ID}, o.DocumentIDs)
	assert.True(t, o.OnlyDocs())

	advanced, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateAdvanced, advanced.State)
	require.NotNil(t, advanced.PaymentOrderID)
	assert.Equal(t, o.ID, *advanced.PaymentOrderID)

	uploaded := upload(t, env, o.ID)
	require.Len(t, uploaded.PaymentLines, 1)
	apptest.AssertMoney(t, "100", uploaded.PaymentLines[0].AmountCompanyCurrency)

	docMoves, err := env.Svc.Documents.Moves(env.Ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, docMoves, 1)
	var offset *ledger.MoveLine
	for _, l := range docMoves[0].Lines {
		if l.AccountID == env.Demo.Bank.ID {
			offset = l
		}
	}
	require.NotNil(t, offset)
	assert.Equal(t, offset.ID, *uploaded.PaymentLines[0].MoveLineID)
	assert.True(t, env.Line(t, offset.ID).Reconciled)

	// Reopening the same documents does not duplicate payment lines.
	lines, err := env.Svc.Orders.PaymentLinesForMoveLines(env.Ctx, []id.ID{offset.ID})
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestAttachDocuments_RejectsOtherPaymentType(t *testing.T) {
	env := apptest.New(t)
	bill := env.Bill(t, "BILL-1", "10", apptest.Days(5))
	doc := env.Document(t, "PD/OUT", env.Demo.OutboundMode, env.Demo.Supplier, bill)
	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.NoError(t, err)

	o := newOrder(t, env, "PO/IN", env.Demo.InboundMode, catalog.DatePreferedDue)
	_, err = env.Svc.Orders.AttachDocuments(env.Ctx, o.ID, []id.ID{doc.ID})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = env.Svc.Orders.AttachDocuments(env.Ctx, o.ID, []id.ID{id.New()})
	assert.True(t, apperror.IsNotFound(err))

	got, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateOpen, got.State)
	assert.Nil(t, got.PaymentOrderID)
}

func TestCancel_VoidsMovesAndBankLines(t *testing.T) {
	env := apptest.New(t)
	bill := env.Bill(t, "BILL-1", "80", apptest.Days(10))
	o := newOrder(t, env, "PO/CANCEL", env.Demo.OutboundMode, catalog.DatePreferedNow)
	_, err := env.Svc.Orders.AddMoveLines(env.Ctx, o.ID, []id.ID{bill.ID})
	require.NoError(t, err)
	upload(t, env, o.ID)
	require.True(t, env.Line(t, bill.ID).Reconciled)

	cancelled, err := env.Svc.Orders.Cancel(env.Ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_order.StateCancel, cancelled.State)

	got, err := env.Svc.Orders.GetByID(env.Ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, got.BankLines)
	require.Len(t, got.PaymentLines, 1)
	assert.Nil(t, got.PaymentLines[0].BankLineID)
	assert.Nil(t, got.PaymentLines[0].Date)

	moves, err := env.Svc.Orders.Moves(env.Ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, moves)
	assert.False(t, env.Line(t, bill.ID).Reconciled)

	// Cancelled orders release their move lines.
	claims, err := env.Svc.Orders.PaymentLinesForMoveLines(env.Ctx, []id.ID{bill.ID})
	require.NoError(t, err)
	assert.Empty(t, claims)

	again, err := env.Svc.Orders.Cancel(env.Ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_order.StateCancel, again.State)

	reset, err := env.Svc.Orders.Cancel2Draft(env.Ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_order.StateDraft, reset.State)
}

func TestTransitions_RejectWrongState(t *testing.T) {
	env := apptest.New(t)
	o := newOrder(t, env, "PO/STATE", env.Demo.InboundMode, catalog.DatePreferedDue)

	_, err := env.Svc.Orders.Generate(env.Ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	_, err = env.Svc.Orders.ActionDone(env.Ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}
