package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydocs/internal/app/apptest"
	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/ledger"
)

// payment books money received from the customer on the bank journal.
func payment(t *testing.T, env *apptest.Env, amount string) (*ledger.Move, *ledger.MoveLine) {
	t.Helper()
	m := ledger.NewMove(env.Demo.BankJournal.ID, apptest.Today, "Customer payment")
	m.AddLine(&ledger.MoveLine{Name: "Bank", AccountID: env.Demo.Bank.ID, Debit: types.MustMoney(amount)})
	counterpart := m.AddLine(&ledger.MoveLine{
		Name:      "Customer payment",
		AccountID: env.Demo.Receivable.ID,
		PartnerID: id.Ptr(env.Demo.Customer.ID),
		Credit:    types.MustMoney(amount),
	})
	require.NoError(t, env.Svc.Ledger.CreateMove(env.Ctx, m))
	require.NoError(t, env.Svc.Ledger.Post(env.Ctx, m.ID))
	return m, counterpart
}

func TestCreateMove_RejectsUnbalanced(t *testing.T) {
	env := apptest.New(t)
	m := ledger.NewMove(env.Demo.MiscJournal.ID, apptest.Today, "broken")
	m.AddLine(&ledger.MoveLine{Name: "a", AccountID: env.Demo.Bank.ID, Debit: types.MustMoney("10")})
	m.AddLine(&ledger.MoveLine{Name: "b", AccountID: env.Demo.Income.ID, Credit: types.MustMoney("9")})

	err := env.Svc.Ledger.CreateMove(env.Ctx, m)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "unbalanced")

	_, err = env.Svc.Ledger.Move(env.Ctx, m.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPost_NumbersPerJournal(t *testing.T) {
	env := apptest.New(t)
	first, _ := payment(t, env, "10")
	second, _ := payment(t, env, "20")

	got1, err := env.Svc.Ledger.Move(env.Ctx, first.ID)
	require.NoError(t, err)
	got2, err := env.Svc.Ledger.Move(env.Ctx, second.ID)
	require.NoError(t, err)

	assert.Equal(t, ledger.MovePosted, got1.State)
	assert.Equal(t, "BNK1-2026-00001", got1.Number)
	assert.Equal(t, "BNK1-2026-00002", got2.Number)
	assert.Equal(t, got1.Number, got1.DisplayName())

	// Posting again keeps the number.
	require.NoError(t, env.Svc.Ledger.Post(env.Ctx, first.ID))
	again, err := env.Svc.Ledger.Move(env.Ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, got1.Number, again.Number)
}

func TestDelete_RejectsPostedMove(t *testing.T) {
	env := apptest.New(t)
	m, _ := payment(t, env, "10")

	err := env.Svc.Ledger.Delete(env.Ctx, m.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsUserError(err))

	require.NoError(t, env.Svc.Ledger.Cancel(env.Ctx, m.ID))
	require.NoError(t, env.Svc.Ledger.Delete(env.Ctx, m.ID))
	lines, err := env.Svc.Ledger.Lines(env.Ctx, ledger.LineFilter{MoveIDs: []id.ID{m.ID}})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReconcile_FullMarksInvoicePaid(t *testing.T) {
	env := apptest.New(t)
	invoice := env.Invoice(t, "SO100", "100", apptest.Days(5))
	_, counterpart := payment(t, env, "100")

	group, err := env.Svc.Ledger.Reconcile(env.Ctx, []id.ID{invoice.ID, counterpart.ID})
	require.NoError(t, err)
	assert.False(t, id.IsNil(group))

	for _, lineID := range []id.ID{invoice.ID, counterpart.ID} {
		l := env.Line(t, lineID)
		assert.True(t, l.Reconciled)
		assert.True(t, l.AmountResidual.IsZero())
		require.NotNil(t, l.ReconcileID)
		assert.Equal(t, group, *l.ReconcileID)
	}
	move, err := env.Svc.Ledger.Move(env.Ctx, invoice.MoveID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Paid, move.PaymentState)

	require.NoError(t, env.Svc.Ledger.RemoveMoveReconcile(env.Ctx, []id.ID{counterpart.ID}))
	restored := env.Line(t, invoice.ID)
	assert.False(t, restored.Reconciled)
	assert.Nil(t, restored.ReconcileID)
	apptest.AssertMoney(t, "100", restored.AmountResidual)
	move, err = env.Svc.Ledger.Move(env.Ctx, invoice.MoveID)
	require.NoError(t, err)
	assert.Equal(t, ledger.NotPaid, move.PaymentState)
}

func TestReconcile_Partial(t *testing.T) {
	env := apptest.New(t)
	invoice := env.Invoice(t, "SO101", "100", apptest.Days(5))
	_, counterpart := payment(t, env, "40")

	_, err := env.Svc.Ledger.Reconcile(env.Ctx, []id.ID{invoice.ID, counterpart.ID})
	require.NoError(t, err)

	open := env.Line(t, invoice.ID)
	assert.False(t, open.Reconciled)
	apptest.AssertMoney(t, "60", open.AmountResidual)
	assert.True(t, env.Line(t, counterpart.ID).Reconciled)
}

func TestReconcile_PartialChainKeepsGroup(t *testing.T) {
	env := apptest.New(t)
	m := ledger.NewMove(env.Demo.MiscJournal.ID, apptest.Today, "USD receivable")
	receivable := m.AddLine(&ledger.MoveLine{
		Name:           "USD receivable",
		AccountID:      env.Demo.Receivable.ID,
		PartnerID:      id.Ptr(env.Demo.Customer.ID),
		Debit:          types.MustMoney("100"),
		Currency:       "USD",
		AmountCurrency: types.MustMoney("120"),
	})
	m.AddLine(&ledger.MoveLine{Name: "Income", AccountID: env.Demo.Income.ID, Credit: types.MustMoney("100")})
	require.NoError(t, env.Svc.Ledger.CreateMove(env.Ctx, m))

	_, first := payment(t, env, "40")
	_, second := payment(t, env, "20")

	group, err := env.Svc.Ledger.Reconcile(env.Ctx, []id.ID{receivable.ID, first.ID})
	require.NoError(t, err)
	got := env.Line(t, receivable.ID)
	apptest.AssertMoney(t, "60", got.AmountResidual)
	apptest.AssertMoney(t, "72", got.AmountResidualCurrency)

	again, err := env.Svc.Ledger.Reconcile(env.Ctx, []id.ID{receivable.ID, second.ID})
	require.NoError(t, err)
	assert.Equal(t, group, again)

	got = env.Line(t, receivable.ID)
	assert.False(t, got.Reconciled)
	apptest.AssertMoney(t, "40", got.AmountResidual)
	apptest.AssertMoney(t, "48", got.AmountResidualCurrency)
	for _, lineID := range []id.ID{receivable.ID, first.ID, second.ID} {
		l := env.Line(t, lineID)
		require.NotNil(t, l.ReconcileID)
		assert.Equal(t, group, *l.ReconcileID)
	}

	// Undoing one payment undoes the whole chain.
	require.NoError(t, env.Svc.Ledger.RemoveMoveReconcile(env.Ctx, []id.ID{second.ID}))
	restored := env.Line(t, receivable.ID)
	apptest.AssertMoney(t, "100", restored.AmountResidual)
	apptest.AssertMoney(t, "120", restored.AmountResidualCurrency)
	assert.False(t, env.Line(t, first.ID).Reconciled)
}

func TestReconcile_Rejects(t *testing.T) {
	env := apptest.New(t)
	invoice := env.Invoice(t, "SO102", "100", apptest.Days(5))
	bill := env.Bill(t, "BILL-1", "100", apptest.Days(5))

	_, err := env.Svc.Ledger.Reconcile(env.Ctx, []id.ID{invoice.ID, bill.ID})
	require.Error(t, err)
	assert.True(t, apperror.IsUserError(err))
	assert.Contains(t, err.Error(), "Entries are not from the same account.")

	_, err = env.Svc.Ledger.Reconcile(env.Ctx, []id.ID{invoice.ID})
	assert.True(t, apperror.IsValidation(err))
}

func TestLines_Filters(t *testing.T) {
	env := apptest.New(t)
	early := env.Invoice(t, "SO103", "10", apptest.Days(2))
	late := env.Invoice(t, "SO104", "20", apptest.Days(20))

	cutoff := apptest.Days(5)
	lines, err := env.Svc.Ledger.Lines(env.Ctx, ledger.LineFilter{
		AccountIDs:       []id.ID{env.Demo.Receivable.ID},
		MaturityTo:       &cutoff,
		OnlyPosted:       true,
		OnlyUnreconciled: true,
	})
	require.NoError(t, err)
	ids := ledger.LineIDs(lines)
	assert.Contains(t, ids, early.ID)
	assert.NotContains(t, ids, late.ID)
}
