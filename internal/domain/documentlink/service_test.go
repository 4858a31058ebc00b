package documentlink_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydocs/internal/app/apptest"
	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documentlink"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/ledger"
)

func TestDocumentForMove(t *testing.T) {
	env := apptest.New(t)
	invoice := env.Invoice(t, "SO001", "100", apptest.Days(5))
	doc := env.Document(t, "PD/001", env.Demo.InboundMode, env.Demo.Customer, invoice)
	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.NoError(t, err)

	moves, err := env.Svc.Documents.Moves(env.Ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)

	got, err := env.Svc.Links.DocumentForMove(env.Ctx, moves[0].ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = env.Svc.Links.DocumentForMove(env.Ctx, invoice.MoveID)
	assert.True(t, apperror.IsNotFound(err))

	lines, err := env.Svc.Links.DocumentLinesForMoveLine(env.Ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, doc.ID, lines[0].DocumentID)
}

func TestPendingOnReceivables(t *testing.T) {
	env := apptest.New(t)
	claimedByDoc := env.Invoice(t, "SO001", "100", apptest.Days(5))
	claimedByOrder := env.Invoice(t, "SO002", "60", apptest.Days(5))
	unclaimed := env.Invoice(t, "SO003", "40", apptest.Days(5))
	bill := env.Bill(t, "BILL-1", "80", apptest.Days(5))
	claimedBill := env.Bill(t, "BILL-2", "30", apptest.Days(5))

	env.Document(t, "PD/IN", env.Demo.InboundMode, env.Demo.Customer, claimedByDoc)
	env.Document(t, "PD/OUT", env.Demo.OutboundMode, env.Demo.Supplier, claimedBill)

	o := payment_order.NewPaymentOrder("PO/001", env.Demo.InboundMode.ID)
	require.NoError(t, env.Svc.Orders.Create(env.Ctx, o))
	_, err := env.Svc.Orders.AddMoveLines(env.Ctx, o.ID, []id.ID{claimedByOrder.ID})
	require.NoError(t, err)

	tests := []struct {
		name string
		move id.ID
		want string
	}{
		{"invoice on document", claimedByDoc.MoveID, "0"},
		{"invoice on order", claimedByOrder.MoveID, "0"},
		{"free invoice", unclaimed.MoveID, "40"},
		{"free bill", bill.MoveID, "-80"},
		{"bill on document", claimedBill.MoveID, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Svc.Links.PendingOnReceivables(env.Ctx, tt.move)
			require.NoError(t, err)
			apptest.AssertMoney(t, tt.want, got)
		})
	}
}

func TestPendingOnReceivables_NonInvoiceIsZero(t *testing.T) {
	env := apptest.New(t)
	m := ledger.NewMove(env.Demo.MiscJournal.ID, apptest.Today, "misc")
	m.AddLine(&ledger.MoveLine{Name: "a", AccountID: env.Demo.Expense.ID, Debit: types.MustMoney("5")})
	m.AddLine(&ledger.MoveLine{Name: "b", AccountID: env.Demo.Bank.ID, Credit: types.MustMoney("5")})
	require.NoError(t, env.Svc.Ledger.CreateMove(env.Ctx, m))

	got, err := env.Svc.Links.PendingOnReceivables(env.Ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestProcessStatementReconciliation(t *testing.T) {
	env := apptest.New(t)
	invoice := env.Invoice(t, "SO001", "100", apptest.Days(5))
	doc := env.Document(t, "PD/001", env.Demo.InboundMode, env.Demo.Customer, invoice)
	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.NoError(t, err)

	move, err := env.Svc.Links.ProcessStatementReconciliation(env.Ctx,
		documentlink.StatementLine{
			JournalID: env.Demo.BankJournal.ID,
			Date:      apptest.Today,
			Ref:       "ST/001",
			PartnerID: id.Ptr(env.Demo.Customer.ID),
			Amount:    types.MustMoney("100"),
		},
		[]documentlink.Counterpart{{
			Name:       "Agrolait SO001",
			AccountID:  env.Demo.Receivable.ID,
			PartnerID:  id.Ptr(env.Demo.Customer.ID),
			Amount:     types.MustMoney("100"),
			MoveLineID: id.Ptr(invoice.ID),
			DocumentID: id.Ptr(doc.ID),
		}},
	)
	require.NoError(t, err)

	booked, err := env.Svc.Ledger.Move(env.Ctx, move.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.MovePosted, booked.State)
	require.Len(t, booked.Lines, 2)
	for _, l := range booked.Lines {
		switch l.AccountID {
		case env.Demo.Bank.ID:
			apptest.AssertMoney(t, "100", l.Debit)
		case env.Demo.Receivable.ID:
			apptest.AssertMoney(t, "100", l.Credit)
			assert.True(t, l.Reconciled)
		default:
			t.Fatalf("unexpected account on line %q", l.Name)
		}
	}
	assert.True(t, env.Line(t, invoice.ID).Reconciled)

	got, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateAdvanced, got.State)
}

func TestProcessStatementReconciliation_AdvancesOrderDocuments(t *testing.T) {
	env := apptest.New(t)
	open := func(name, ref string) *payment_document.PaymentDocument {
		doc := env.Document(t, name, env.Demo.InboundMode, env.Demo.Customer, env.Invoice(t, ref, "30", apptest.Days(5)))
		doc, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
		require.NoError(t, err)
		return doc
	}
	first, second, outside := open("PD/A", "SO001"), open("PD/B", "SO002"), open("PD/C", "SO003")

	o := payment_order.NewPaymentOrder("PO/ST", env.Demo.InboundMode.ID)
	require.NoError(t, env.Svc.Orders.Create(env.Ctx, o))
	_, err := env.Svc.Orders.AttachDocuments(env.Ctx, o.ID, []id.ID{first.ID, second.ID})
	require.NoError(t, err)

	_, err = env.Svc.Links.ProcessStatementReconciliation(env.Ctx,
		documentlink.StatementLine{JournalID: env.Demo.BankJournal.ID, Date: apptest.Today, Ref: "ST/004", Amount: types.MustMoney("60")},
		[]documentlink.Counterpart{{Name: "PO/ST", AccountID: env.Demo.Transfer.ID, Amount: types.MustMoney("60"), OrderID: id.Ptr(o.ID)}},
	)
	require.NoError(t, err)

	for _, doc := range []*payment_document.PaymentDocument{first, second} {
		got, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, payment_document.StateAdvanced, got.State, got.Name)
	}
	got, err := env.Svc.Documents.GetByID(env.Ctx, outside.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateOpen, got.State)
}

func TestProcessStatementReconciliation_OutgoingSkipsDraftDocument(t *testing.T) {
	env := apptest.New(t)
	bill := env.Bill(t, "BILL-1", "80", apptest.Days(5))
	doc := env.Document(t, "PD/OUT", env.Demo.OutboundMode, env.Demo.Supplier, bill)

	move, err := env.Svc.Links.ProcessStatementReconciliation(env.Ctx,
		documentlink.StatementLine{
			JournalID: env.Demo.BankJournal.ID,
			Date:      apptest.Today,
			Ref:       "ST/002",
			Amount:    types.MustMoney("-80"),
		},
		[]documentlink.Counterpart{{
			Name:       "Wood Corner BILL-1",
			AccountID:  env.Demo.Payable.ID,
			PartnerID:  id.Ptr(env.Demo.Supplier.ID),
			Amount:     types.MustMoney("-80"),
			MoveLineID: id.Ptr(bill.ID),
			DocumentID: id.Ptr(doc.ID),
		}},
	)
	require.NoError(t, err)

	for _, l := range move.Lines {
		switch l.AccountID {
		case env.Demo.Bank.ID:
			apptest.AssertMoney(t, "80", l.Credit)
		case env.Demo.Payable.ID:
			apptest.AssertMoney(t, "80", l.Debit)
		}
	}
	assert.True(t, env.Line(t, bill.ID).Reconciled)

	got, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateDraft, got.State)
}

func TestProcessStatementReconciliation_Rejects(t *testing.T) {
	env := apptest.New(t)
	bare := catalog.NewJournal("BNK3", "Petty cash")
	require.NoError(t, env.Svc.Catalog.SaveJournal(env.Ctx, bare))

	st := documentlink.StatementLine{JournalID: bare.ID, Date: apptest.Today, Ref: "ST/003", Amount: types.MustMoney("5")}
	cp := documentlink.Counterpart{Name: "misc", AccountID: env.Demo.Income.ID, Amount: types.MustMoney("5")}

	_, err := env.Svc.Links.ProcessStatementReconciliation(env.Ctx, st, nil)
	assert.True(t, apperror.IsValidation(err))

	_, err = env.Svc.Links.ProcessStatementReconciliation(env.Ctx, st, []documentlink.Counterpart{cp})
	require.Error(t, err)
	assert.True(t, apperror.IsUserError(err))
	assert.Contains(t, err.Error(), "Missing default debit account on journal '[BNK3] Petty cash'.")
}
