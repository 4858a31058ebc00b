package payment_document_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydocs/internal/app/apptest"
	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/audit"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/ledger"
)

func TestCreate_DefaultsFromMode(t *testing.T) {
	env := apptest.New(t)
	doc := env.Document(t, "PD/001", env.Demo.InboundMode, env.Demo.Customer)

	got, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.PaymentTypeInbound, got.PaymentType)
	assert.Equal(t, env.Demo.InboundMethod.ID, got.PaymentMethodID)
	require.NotNil(t, got.JournalID)
	assert.Equal(t, env.Demo.BankJournal.ID, *got.JournalID)
	assert.Equal(t, catalog.DatePreferedDue, got.DatePrefered)
	assert.Equal(t, apptest.Today, got.Date)
	assert.Equal(t, payment_document.StateDraft, got.State)
	assert.Equal(t, types.CurrencyCode("EUR"), got.CompanyCurrency)
}

func TestCreate_DatePreferedFromMode(t *testing.T) {
	env := apptest.New(t)

	tests := []struct {
		name string
		mode catalog.DatePrefered
		want catalog.DatePrefered
	}{
		{name: "now", mode: catalog.DatePreferedNow, want: catalog.DatePreferedNow},
		{name: "fixed falls back to due", mode: catalog.DatePreferedFixed, want: catalog.DatePreferedDue},
		{name: "unset falls back to due", mode: "", want: catalog.DatePreferedDue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode := catalog.NewPaymentMode("Debit "+tt.name, catalog.PaymentTypeInbound,
				env.Demo.InboundMethod.ID, env.Demo.BankJournal.ID)
			mode.DefaultDatePrefered = tt.mode
			require.NoError(t, env.Svc.Catalog.SavePaymentMode(env.Ctx, mode))

			doc := env.Document(t, "PD/"+tt.name, mode, env.Demo.Customer)
			assert.Equal(t, tt.want, doc.DatePrefered)
		})
	}
}

func TestCreate_RejectsPastDueDate(t *testing.T) {
	env := apptest.New(t)
	doc := payment_document.NewPaymentDocument("PD/LATE", env.Demo.Customer.ID, env.Demo.InboundMode.ID)
	yesterday := apptest.Days(-1)
	doc.DateDue = &yesterday

	err := env.Svc.Documents.Create(env.Ctx, doc)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Payment Due Date is in the past")
}

func TestUpdate_PaymentTypeMustMatchMode(t *testing.T) {
	env := apptest.New(t)
	doc := env.Document(t, "PD/002", env.Demo.InboundMode, env.Demo.Customer)

	doc.PaymentType = catalog.PaymentTypeOutbound
	err := env.Svc.Documents.Update(env.Ctx, doc)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "is not the same as the payment type of the payment mode")
}

func TestUpdate_DueDateCheckedOnlyWhenWritten(t *testing.T) {
	env := apptest.New(t)
	doc := payment_document.NewPaymentDocument("PD/003", env.Demo.Customer.ID, env.Demo.InboundMode.ID)
	due := apptest.Today
	doc.DateDue = &due
	require.NoError(t, env.Svc.Documents.Create(env.Ctx, doc))

	env.Clock.Advance(48 * time.Hour)

	doc.Description = "renamed"
	require.NoError(t, env.Svc.Documents.Update(env.Ctx, doc))

	past := apptest.Days(1)
	doc.DateDue = &past
	err := env.Svc.Documents.Update(env.Ctx, doc)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestDraft2Open_WithoutLinesStaysDraft(t *testing.T) {
	env := apptest.New(t)
	doc := env.Document(t, "PD/EMPTY", env.Demo.InboundMode, env.Demo.Customer)

	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsUserError(err))
	assert.Contains(t, err.Error(), "There are no transactions on payment document PD/EMPTY.")

	got, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateDraft, got.State)

	moves, err := env.Svc.Documents.Moves(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, moves)
}

func TestDraft2Open_WithoutJournalStaysDraft(t *testing.T) {
	env := apptest.New(t)
	mode := catalog.NewPaymentMode("Variable debit", catalog.PaymentTypeInbound, env.Demo.InboundMethod.ID, env.Demo.BankJournal.ID)
	mode.BankAccountLink = catalog.LinkVariable
	mode.FixedJournalID = nil
	require.NoError(t, env.Svc.Catalog.SavePaymentMode(env.Ctx, mode))

	line := env.Invoice(t, "SO001", "100", apptest.Days(10))
	doc := env.Document(t, "PD/NOJ", mode, env.Demo.Customer, line)
	assert.Nil(t, doc.JournalID)

	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsUserError(err))
	assert.Contains(t, err.Error(), "Missing Journal on payment document PD/NOJ.")

	got, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateDraft, got.State)
}

func TestDraft2Open_RequiresJournalBankAccount(t *testing.T) {
	env := apptest.New(t)
	journal := catalog.NewJournal("BNK2", "Cash box")
	journal.DefaultDebitAccountID = id.Ptr(env.Demo.Bank.ID)
	require.NoError(t, env.Svc.Catalog.SaveJournal(env.Ctx, journal))
	mode := catalog.NewPaymentMode("Transfer from cash", catalog.PaymentTypeOutbound, env.Demo.OutboundMethod.ID, journal.ID)
	require.NoError(t, env.Svc.Catalog.SavePaymentMode(env.Ctx, mode))

	line := env.Bill(t, "BILL-1", "80", apptest.Days(10))
	doc := env.Document(t, "PD/NOBANK", mode, env.Demo.Supplier, line)

	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsUserError(err))
	assert.Contains(t, err.Error(), "Missing bank account on journal '[BNK2] Cash box'.")
}

func TestDelete_DraftCascadesLines(t *testing.T) {
	env := apptest.New(t)
	line := env.Invoice(t, "SO001", "100", apptest.Days(10))
	doc := env.Document(t, "PD/DEL", env.Demo.InboundMode, env.Demo.Customer, line)
	require.Len(t, doc.Lines, 1)

	require.NoError(t, env.Svc.Documents.Delete(env.Ctx, doc.ID))

	_, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	assert.True(t, apperror.IsNotFound(err))
	claims, err := env.Svc.Documents.LinesForMoveLines(env.Ctx, []id.ID{line.ID}, nil)
	require.NoError(t, err)
	assert.Empty(t, claims)

	var deleted bool
	for _, e := range env.Store.AuditEntries() {
		if e.EntityID == doc.ID && e.Action == audit.ActionDelete {
			deleted = true
		}
	}
	assert.True(t, deleted)
}

func TestDelete_RejectsOpenDocument(t *testing.T) {
	env := apptest.New(t)
	line := env.Invoice(t, "SO001", "100", apptest.Days(10))
	doc := env.Document(t, "PD/OPEN", env.Demo.InboundMode, env.Demo.Customer, line)
	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.NoError(t, err)

	err = env.Svc.Documents.Delete(env.Ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsUserError(err))
	assert.Contains(t, err.Error(), "You cannot delete a non draft payment document")

	_, err = env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	assert.NoError(t, err)
}

func TestDraft2Open_OutboundBankAccountMove(t *testing.T) {
	env := apptest.New(t)
	bill1 := env.Bill(t, "BILL-100", "100", apptest.Days(5))
	bill2 := env.Bill(t, "BILL-50", "50", apptest.Days(7))

	doc := payment_document.NewPaymentDocument("PD/OUT", env.Demo.Supplier.ID, env.Demo.OutboundMode.ID)
	doc.Date = apptest.Days(-3)
	require.NoError(t, env.Svc.Documents.Create(env.Ctx, doc))
	_, err := env.Svc.Documents.AttachMoveLines(env.Ctx, doc.ID, []id.ID{bill1.ID, bill2.ID})
	require.NoError(t, err)

	opened, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateOpen, opened.State)
	apptest.AssertMoney(t, "150", opened.TotalCompanyCurrency)

	moves, err := env.Svc.Documents.Moves(env.Ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	move := moves[0]
	assert.Equal(t, ledger.MovePosted, move.State)
	assert.Equal(t, "Payment document PD/OUT", move.Ref)
	assert.Equal(t, env.Demo.BankJournal.ID, move.JournalID)
	assert.True(t, move.TotalDebit().Equal(move.TotalCredit()))
	require.Len(t, move.Lines, 3)

	var counterparts []*ledger.MoveLine
	var offset *ledger.MoveLine
	for _, l := range move.Lines {
		switch l.AccountID {
		case env.Demo.Payable.ID:
			counterparts = append(counterparts, l)
		case env.Demo.Bank.ID:
			offset = l
		}
	}
	require.Len(t, counterparts, 2)
	for _, l := range counterparts {
		assert.NotNil(t, l.DocumentLineID)
		assert.True(t, l.Credit.IsZero())
	}
	apptest.AssertMoney(t, "150", counterparts[0].Debit.Add(counterparts[1].Debit))

	require.NotNil(t, offset)
	apptest.AssertMoney(t, "150", offset.Credit)
	assert.Equal(t, apptest.Days(-3), offset.Date)
	assert.Nil(t, offset.DateMaturity)
	assert.Equal(t, "Payment document PD/OUT", offset.Name)
}

func TestDraft2Open_TransferAccountUsesMaturity(t *testing.T) {
	env := apptest.New(t)
	mode := catalog.NewPaymentMode("Debit via transfer", catalog.PaymentTypeInbound, env.Demo.InboundMethod.ID, env.Demo.BankJournal.ID)
	mode.OffsettingAccount = catalog.OffsetTransferAccount
	mode.TransferAccountID = id.Ptr(env.Demo.Transfer.ID)
	mode.TransferJournalID = id.Ptr(env.Demo.MiscJournal.ID)
	mode.GenerateMove = true
	require.NoError(t, env.Svc.Catalog.SavePaymentMode(env.Ctx, mode))

	line := env.Invoice(t, "SO002", "70", apptest.Days(5))
	doc := payment_document.NewPaymentDocument("PD/TR", env.Demo.Customer.ID, mode.ID)
	due := apptest.Days(5)
	doc.DateDue = &due
	require.NoError(t, env.Svc.Documents.Create(env.Ctx, doc))
	_, err := env.Svc.Documents.AttachMoveLines(env.Ctx, doc.ID, []id.ID{line.ID})
	require.NoError(t, err)

	_, err = env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.NoError(t, err)

	moves, err := env.Svc.Documents.Moves(env.Ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, env.Demo.MiscJournal.ID, moves[0].JournalID)
	assert.Equal(t, ledger.MoveDraft, moves[0].State)

	for _, l := range moves[0].Lines {
		switch l.AccountID {
		case env.Demo.Transfer.ID:
			apptest.AssertMoney(t, "70", l.Debit)
			require.NotNil(t, l.DateMaturity)
			assert.Equal(t, due, *l.DateMaturity)
		case env.Demo.Receivable.ID:
			apptest.AssertMoney(t, "70", l.Credit)
			assert.Equal(t, "Debit document line SO002", l.Name)
		default:
			t.Fatalf("unexpected account on line %q", l.Name)
		}
	}
}

func TestActionPaidCancel_VoidsMoves(t *testing.T) {
	env := apptest.New(t)
	bill := env.Bill(t, "BILL-9", "90", apptest.Days(5))
	doc := env.Document(t, "PD/CANCEL", env.Demo.OutboundMode, env.Demo.Supplier, bill)
	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.NoError(t, err)

	cancelled, err := env.Svc.Documents.ActionPaidCancel(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateCancel, cancelled.State)

	moves, err := env.Svc.Documents.Moves(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, moves)

	origin := env.Line(t, bill.ID)
	assert.False(t, origin.Reconciled)
	apptest.AssertMoney(t, "-90", origin.AmountResidual)

	again, err := env.Svc.Documents.ActionPaidCancel(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateCancel, again.State)

	var transitions int
	for _, e := range env.Store.AuditEntries() {
		if e.EntityID == doc.ID && e.Action == audit.ActionTransition && e.ToState == string(payment_document.StateCancel) {
			transitions++
			assert.Equal(t, string(payment_document.StateOpen), e.FromState)
		}
	}
	assert.Equal(t, 1, transitions)

	reset, err := env.Svc.Documents.Cancel2Draft(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateDraft, reset.State)
}

func TestAttachMoveLines_RejectsClaimedLines(t *testing.T) {
	env := apptest.New(t)
	line := env.Invoice(t, "SO003", "40", apptest.Days(5))
	first := env.Document(t, "PD/A", env.Demo.InboundMode, env.Demo.Customer, line)
	second := env.Document(t, "PD/B", env.Demo.InboundMode, env.Demo.Customer)

	_, err := env.Svc.Documents.AttachMoveLines(env.Ctx, second.ID, []id.ID{line.ID})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = env.Svc.Documents.ActionCancel(env.Ctx, first.ID)
	require.NoError(t, err)

	got, err := env.Svc.Documents.AttachMoveLines(env.Ctx, second.ID, []id.ID{line.ID})
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	apptest.AssertMoney(t, "40", got.Lines[0].AmountCompanyCurrency)
}

func TestAddLine_ForeignCurrency(t *testing.T) {
	env := apptest.New(t)
	line := env.Invoice(t, "SO004", "10", apptest.Days(5))
	doc := env.Document(t, "PD/FX", env.Demo.InboundMode, env.Demo.Customer, line)

	_, err := env.Svc.Documents.AddLine(env.Ctx, doc.ID, &payment_document.DocumentLine{
		Currency:       "USD",
		AmountCurrency: types.MustMoney("10"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = env.Svc.Documents.AddLine(env.Ctx, doc.ID, &payment_document.DocumentLine{
		Currency:              "USD",
		AmountCurrency:        types.MustMoney("10"),
		AmountCompanyCurrency: types.MustMoney("9"),
	})
	require.NoError(t, err)

	_, err = env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "mixes currencies")
}

func TestCopy(t *testing.T) {
	env := apptest.New(t)
	line := env.Invoice(t, "SO005", "25", apptest.Days(5))
	doc := env.Document(t, "PD/SRC", env.Demo.InboundMode, env.Demo.Customer, line)

	dup, err := env.Svc.Documents.Copy(env.Ctx, doc.ID, "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(dup.Name, " (copy)"), dup.Name)
	assert.Equal(t, "PD/SRC (copy)", dup.Name)
	assert.NotEqual(t, doc.ID, dup.ID)
	assert.Equal(t, payment_document.StateDraft, dup.State)
	assert.Equal(t, doc.PartnerID, dup.PartnerID)
	assert.Equal(t, doc.JournalID, dup.JournalID)
	assert.Empty(t, dup.Lines)
	assert.True(t, dup.TotalCompanyCurrency.IsZero())

	named, err := env.Svc.Documents.Copy(env.Ctx, doc.ID, "PD/NEXT")
	require.NoError(t, err)
	assert.Equal(t, "PD/NEXT", named.Name)

	claims, err := env.Svc.Documents.LinesForMoveLines(env.Ctx, []id.ID{line.ID}, payment_document.ActiveStates)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, doc.ID, claims[0].DocumentID)
}

func TestCopy_CannotReclaimSourceLines(t *testing.T) {
	env := apptest.New(t)
	line := env.Invoice(t, "SO006", "100", apptest.Days(5))
	doc := env.Document(t, "PD/SRC", env.Demo.InboundMode, env.Demo.Customer, line)
	_, err := env.Svc.Documents.Draft2Open(env.Ctx, doc.ID)
	require.NoError(t, err)

	dup, err := env.Svc.Documents.Copy(env.Ctx, doc.ID, "")
	require.NoError(t, err)

	_, err = env.Svc.Documents.AttachMoveLines(env.Ctx, dup.ID, []id.ID{line.ID})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = env.Svc.Documents.Draft2Open(env.Ctx, dup.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "There are no transactions on payment document PD/SRC (copy).")
}

func TestClaimedMoveLineRejected(t *testing.T) {
	env := apptest.New(t)
	line := env.Invoice(t, "SO007", "100", apptest.Days(5))
	owner := env.Document(t, "PD/OWNER", env.Demo.InboundMode, env.Demo.Customer, line)
	claimedLine := func() *payment_document.DocumentLine {
		return &payment_document.DocumentLine{
			MoveLineID:     id.Ptr(line.ID),
			PartnerID:      env.Demo.Customer.ID,
			AmountCurrency: types.MustMoney("100"),
		}
	}

	t.Run("create", func(t *testing.T) {
		doc := payment_document.NewPaymentDocument("PD/CREATE", env.Demo.Customer.ID, env.Demo.InboundMode.ID)
		doc.Lines = []*payment_document.DocumentLine{claimedLine()}
		err := env.Svc.Documents.Create(env.Ctx, doc)
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
		assert.Contains(t, err.Error(), "already claimed")

		_, err = env.Svc.Documents.GetByID(env.Ctx, doc.ID)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("add line", func(t *testing.T) {
		other := env.Document(t, "PD/ADD", env.Demo.InboundMode, env.Demo.Customer)
		_, err := env.Svc.Documents.AddLine(env.Ctx, other.ID, claimedLine())
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
		assert.Contains(t, err.Error(), "already claimed")
	})

	t.Run("add line twice on owner", func(t *testing.T) {
		_, err := env.Svc.Documents.AddLine(env.Ctx, owner.ID, claimedLine())
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
		assert.Contains(t, err.Error(), "already on this payment document")
	})

	t.Run("update", func(t *testing.T) {
		other := env.Document(t, "PD/UPDATE", env.Demo.InboundMode, env.Demo.Customer)
		other.Lines = []*payment_document.DocumentLine{claimedLine()}
		err := env.Svc.Documents.Update(env.Ctx, other)
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
		assert.Contains(t, err.Error(), "already claimed")
	})

	t.Run("update owner keeps its lines", func(t *testing.T) {
		doc, err := env.Svc.Documents.GetByID(env.Ctx, owner.ID)
		require.NoError(t, err)
		doc.Description = "renamed"
		require.NoError(t, env.Svc.Documents.Update(env.Ctx, doc))
	})

	claims, err := env.Svc.Documents.LinesForMoveLines(env.Ctx, []id.ID{line.ID}, payment_document.ActiveStates)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, owner.ID, claims[0].DocumentID)
}

func TestCancel2Draft_RejectsLineClaimedMeanwhile(t *testing.T) {
	env := apptest.New(t)
	line := env.Invoice(t, "SO008", "60", apptest.Days(5))
	first := env.Document(t, "PD/FIRST", env.Demo.InboundMode, env.Demo.Customer, line)
	_, err := env.Svc.Documents.ActionCancel(env.Ctx, first.ID)
	require.NoError(t, err)
	env.Document(t, "PD/SECOND", env.Demo.InboundMode, env.Demo.Customer, line)

	_, err = env.Svc.Documents.Cancel2Draft(env.Ctx, first.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	got, err := env.Svc.Documents.GetByID(env.Ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, payment_document.StateCancel, got.State)
}

func TestFixedModeForcesJournal(t *testing.T) {
	env := apptest.New(t)
	require.Equal(t, catalog.LinkFixed, env.Demo.InboundMode.BankAccountLink)

	doc := payment_document.NewPaymentDocument("PD/FIXED", env.Demo.Customer.ID, env.Demo.InboundMode.ID)
	doc.JournalID = id.Ptr(env.Demo.MiscJournal.ID)
	require.NoError(t, env.Svc.Documents.Create(env.Ctx, doc))
	require.NotNil(t, doc.JournalID)
	assert.Equal(t, env.Demo.BankJournal.ID, *doc.JournalID)

	doc.JournalID = id.Ptr(env.Demo.MiscJournal.ID)
	require.NoError(t, env.Svc.Documents.Update(env.Ctx, doc))

	got, err := env.Svc.Documents.GetByID(env.Ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got.JournalID)
	assert.Equal(t, env.Demo.BankJournal.ID, *got.JournalID)
}

func TestPrepareDocumentLine_Communication(t *testing.T) {
	doc := payment_document.NewPaymentDocument("PD", id.New(), id.New())
	doc.CompanyCurrency = "EUR"

	tests := []struct {
		name     string
		kind     ledger.MoveKind
		ref      string
		number   string
		refType  ledger.ReferenceType
		outbound bool
		want     string
		wantType payment_document.CommunicationType
	}{
		{name: "entry uses ref", kind: ledger.KindEntry, ref: "REF", number: "MISC/1", want: "REF", wantType: payment_document.CommunicationNormal},
		{name: "entry without ref uses number", kind: ledger.KindEntry, number: "MISC/2", want: "MISC/2", wantType: payment_document.CommunicationNormal},
		{name: "customer invoice uses number", kind: ledger.KindOutInvoice, ref: "SO001", number: "INV/1", want: "INV/1", wantType: payment_document.CommunicationNormal},
		{name: "supplier bill uses ref", kind: ledger.KindInInvoice, ref: "BILL-77", number: "BILL/1", outbound: true, want: "BILL-77", wantType: payment_document.CommunicationNormal},
		{name: "structured reference", kind: ledger.KindOutInvoice, ref: "+++123/4567/89012+++", number: "INV/2", refType: ledger.ReferenceStructured, want: "+++123/4567/89012+++", wantType: payment_document.CommunicationStructured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc.PaymentType = catalog.PaymentTypeInbound
			residual := types.MustMoney("100")
			if tt.outbound {
				doc.PaymentType = catalog.PaymentTypeOutbound
				residual = residual.Neg()
			}
			move := ledger.NewMove(id.New(), apptest.Today, tt.ref)
			move.Kind = tt.kind
			move.Number = tt.number
			if tt.refType != "" {
				move.ReferenceType = tt.refType
			}
			ml := &ledger.MoveLine{ID: id.New(), MoveID: move.ID, AmountResidual: residual}

			dl := payment_document.PrepareDocumentLine(doc, move, ml)
			assert.Equal(t, tt.want, dl.Communication)
			assert.Equal(t, tt.wantType, dl.CommunicationType)
			assert.Equal(t, doc.PartnerID, dl.PartnerID)
			apptest.AssertMoney(t, "100", dl.AmountCompanyCurrency)
			apptest.AssertMoney(t, "100", dl.AmountCurrency)
			assert.Equal(t, types.CurrencyCode("EUR"), dl.Currency)
		})
	}
}
