package linecreate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydocs/internal/app/apptest"
	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/ledger"
	"paydocs/internal/domain/linecreate"
)

type fixture struct {
	env      *apptest.Env
	free     *ledger.MoveLine
	onDoc    *ledger.MoveLine
	onOrder  *ledger.MoveLine
	draft    *ledger.MoveLine
	customer *id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := apptest.New(t)
	f := &fixture{env: env, customer: id.Ptr(env.Demo.Customer.ID)}
	f.free = env.Invoice(t, "SO001", "100", apptest.Days(5))
	f.onDoc = env.Invoice(t, "SO002", "30", apptest.Days(5))
	f.onOrder = env.Invoice(t, "SO003", "70", apptest.Days(5))

	env.Document(t, "PD/001", env.Demo.InboundMode, env.Demo.Customer, f.onDoc)
	o := payment_order.NewPaymentOrder("PO/001", env.Demo.InboundMode.ID)
	require.NoError(t, env.Svc.Orders.Create(env.Ctx, o))
	_, err := env.Svc.Orders.AddMoveLines(env.Ctx, o.ID, []id.ID{f.onOrder.ID})
	require.NoError(t, err)

	m := ledger.NewMove(env.Demo.SaleJournal.ID, apptest.Today, "SO004")
	m.Kind = ledger.KindOutInvoice
	m.PartnerID = f.customer
	maturity := apptest.Days(40)
	f.draft = m.AddLine(&ledger.MoveLine{
		Name:         "SO004",
		AccountID:    env.Demo.Receivable.ID,
		PartnerID:    f.customer,
		Debit:        types.MustMoney("20"),
		DateMaturity: &maturity,
	})
	m.AddLine(&ledger.MoveLine{Name: "SO004", AccountID: env.Demo.Income.ID, Credit: types.MustMoney("20")})
	require.NoError(t, env.Svc.Ledger.CreateMove(env.Ctx, m))
	return f
}

func (f *fixture) candidates(t *testing.T, filter linecreate.Filter) []id.ID {
	t.Helper()
	lines, err := f.env.Svc.LineCreate.Candidates(f.env.Ctx, filter)
	require.NoError(t, err)
	return ledger.LineIDs(lines)
}

func TestCandidates(t *testing.T) {
	f := newFixture(t)
	dueDate := apptest.Days(10)

	tests := []struct {
		name   string
		filter linecreate.Filter
		want   []id.ID
	}{
		{
			name:   "claimed and draft lines excluded",
			filter: linecreate.Filter{PaymentType: catalog.PaymentTypeInbound, PartnerID: f.customer},
			want:   []id.ID{f.free.ID},
		},
		{
			name:   "draft lines on request",
			filter: linecreate.Filter{PaymentType: catalog.PaymentTypeInbound, PartnerID: f.customer, IncludeDraft: true},
			want:   []id.ID{f.free.ID, f.draft.ID},
		},
		{
			name:   "due date",
			filter: linecreate.Filter{PaymentType: catalog.PaymentTypeInbound, PartnerID: f.customer, IncludeDraft: true, DueDate: &dueDate},
			want:   []id.ID{f.free.ID},
		},
		{
			name: "expression",
			filter: linecreate.Filter{
				PaymentType:  catalog.PaymentTypeInbound,
				PartnerID:    f.customer,
				IncludeDraft: true,
				Expression:   `line.amount_residual < 50.0 && line.account_code == "430000"`,
			},
			want: []id.ID{f.draft.ID},
		},
		{
			name:   "payables",
			filter: linecreate.Filter{PaymentType: catalog.PaymentTypeOutbound, PartnerID: f.customer},
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, f.candidates(t, tt.filter))
		})
	}
}

func TestCandidates_ReleasedByCancelledOrder(t *testing.T) {
	f := newFixture(t)
	orders, err := f.env.Svc.Orders.Find(f.env.Ctx, payment_order.ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	_, err = f.env.Svc.Orders.Cancel(f.env.Ctx, orders[0].ID)
	require.NoError(t, err)

	got := f.candidates(t, linecreate.Filter{PaymentType: catalog.PaymentTypeInbound, PartnerID: f.customer})
	assert.ElementsMatch(t, []id.ID{f.free.ID, f.onOrder.ID}, got)
}

func TestCandidates_RejectsBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		filter linecreate.Filter
	}{
		{"payment type", linecreate.Filter{PaymentType: "sideways"}},
		{"syntax", linecreate.Filter{PaymentType: catalog.PaymentTypeInbound, Expression: "line.name =="}},
		{"not boolean", linecreate.Filter{PaymentType: catalog.PaymentTypeInbound, Expression: "line.name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.Svc.LineCreate.Candidates(f.env.Ctx, tt.filter)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
		})
	}
}
