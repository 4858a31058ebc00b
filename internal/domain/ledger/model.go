// Package ledger is the accounting kernel: journal entries (moves), their
// lines, posting with sequential numbers, and reconciliation of lines.
package ledger

import (
	"context"
	"time"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/entity"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
)

// MoveState is the lifecycle state of a move.
type MoveState string

const (
	MoveDraft  MoveState = "draft"
	MovePosted MoveState = "posted"
	MoveCancel MoveState = "cancel"
)

// MoveKind distinguishes invoices from plain journal entries.
type MoveKind string

const (
	KindEntry      MoveKind = "entry"
	KindOutInvoice MoveKind = "out_invoice"
	KindOutRefund  MoveKind = "out_refund"
	KindInInvoice  MoveKind = "in_invoice"
	KindInRefund   MoveKind = "in_refund"
)

// IsInvoice reports whether k is a customer or supplier invoice or refund.
func (k MoveKind) IsInvoice() bool {
	switch k {
	case KindOutInvoice, KindOutRefund, KindInInvoice, KindInRefund:
		return true
	}
	return false
}

// IsSupplier reports whether k is a supplier invoice or refund.
func (k MoveKind) IsSupplier() bool {
	return k == KindInInvoice || k == KindInRefund
}

// ReferenceType is the kind of payment reference printed on an invoice.
type ReferenceType string

const (
	ReferenceNone       ReferenceType = "none"
	ReferenceStructured ReferenceType = "structured"
)

// PaymentState tracks whether an invoice is settled.
type PaymentState string

const (
	NotPaid PaymentState = "not_paid"
	Paid    PaymentState = "paid"
)

// DraftNumber is the placeholder number of a move that was never posted.
const DraftNumber = "/"

// Move is a journal entry.
type Move struct {
	entity.BaseDocument

	Number        string        `db:"number" json:"number"`
	Ref           string        `db:"ref" json:"ref"`
	JournalID     id.ID         `db:"journal_id" json:"journalId"`
	Date          time.Time     `db:"date" json:"date"`
	State         MoveState     `db:"state" json:"state"`
	Kind          MoveKind      `db:"kind" json:"kind"`
	ReferenceType ReferenceType `db:"reference_type" json:"referenceType"`
	PaymentState  PaymentState  `db:"payment_state" json:"paymentState"`

	// AmountTotalSigned is positive for customer invoices and negative for supplier ones.
	AmountTotalSigned types.Money `db:"amount_total_signed" json:"amountTotalSigned"`

	PartnerID         *id.ID `db:"partner_id" json:"partnerId,omitempty"`
	PaymentDocumentID *id.ID `db:"payment_document_id" json:"paymentDocumentId,omitempty"`
	PaymentOrderID    *id.ID `db:"payment_order_id" json:"paymentOrderId,omitempty"`

	Lines []*MoveLine `db:"-" json:"lines"`
}

// NewMove creates a draft entry.
func NewMove(journalID id.ID, date time.Time, ref string) *Move {
	return &Move{
		BaseDocument:  entity.NewBaseDocument(),
		Number:        DraftNumber,
		Ref:           ref,
		JournalID:     journalID,
		Date:          date,
		State:         MoveDraft,
		Kind:          KindEntry,
		ReferenceType: ReferenceNone,
		PaymentState:  NotPaid,
	}
}

// AddLine appends a line owned by m.
func (m *Move) AddLine(l *MoveLine) *MoveLine {
	if id.IsNil(l.ID) {
		l.ID = id.New()
	}
	l.MoveID = m.ID
	if l.Date.IsZero() {
		l.Date = m.Date
	}
	l.AmountResidual = l.Balance()
	l.AmountResidualCurrency = l.AmountCurrency
	m.Lines = append(m.Lines, l)
	return l
}

// TotalDebit sums the debit column.
func (m *Move) TotalDebit() types.Money {
	return types.Sum(m.Lines, func(l *MoveLine) types.Money { return l.Debit })
}

// TotalCredit sums the credit column.
func (m *Move) TotalCredit() types.Money {
	return types.Sum(m.Lines, func(l *MoveLine) types.Money { return l.Credit })
}

// DisplayName is the number once posted, otherwise the ref.
func (m *Move) DisplayName() string {
	if m.Number != "" && m.Number != DraftNumber {
		return m.Number
	}
	return m.Ref
}

// Validate implements entity.Validatable.
func (m *Move) Validate(ctx context.Context) error {
	if id.IsNil(m.JournalID) {
		return apperror.NewValidation("journal is required").WithDetail("field", "journalId")
	}
	if m.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	if len(m.Lines) == 0 {
		return apperror.NewValidation("a journal entry needs at least one line")
	}
	for i, l := range m.Lines {
		if err := l.Validate(ctx); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("line", i+1)
			}
			return err
		}
	}
	if debit, credit := m.TotalDebit(), m.TotalCredit(); !debit.Equal(credit) {
		return apperror.NewValidation("cannot create unbalanced journal entry").
			WithDetail("debit", debit.String()).
			WithDetail("credit", credit.String())
	}
	return nil
}

// MoveLine is one debit or credit of a move.
type MoveLine struct {
	ID        id.ID  `db:"id" json:"id"`
	MoveID    id.ID  `db:"move_id" json:"moveId"`
	Name      string `db:"name" json:"name"`
	AccountID id.ID  `db:"account_id" json:"accountId"`
	PartnerID *id.ID `db:"partner_id" json:"partnerId,omitempty"`

	Debit  types.Money `db:"debit" json:"debit"`
	Credit types.Money `db:"credit" json:"credit"`

	// Currency is empty for company-currency lines.
	Currency       types.CurrencyCode `db:"currency" json:"currency,omitempty"`
	AmountCurrency types.Money        `db:"amount_currency" json:"amountCurrency"`

	Date         time.Time  `db:"date" json:"date"`
	DateMaturity *time.Time `db:"date_maturity" json:"dateMaturity,omitempty"`

	AmountResidual         types.Money `db:"amount_residual" json:"amountResidual"`
	AmountResidualCurrency types.Money `db:"amount_residual_currency" json:"amountResidualCurrency"`
	Reconciled             bool        `db:"reconciled" json:"reconciled"`
	ReconcileID            *id.ID      `db:"reconcile_id" json:"reconcileId,omitempty"`

	DocumentLineID    *id.ID `db:"document_line_id" json:"documentLineId,omitempty"`
	BankPaymentLineID *id.ID `db:"bank_payment_line_id" json:"bankPaymentLineId,omitempty"`
}

// Balance is debit minus credit.
func (l *MoveLine) Balance() types.Money {
	return l.Debit.Sub(l.Credit)
}

// Validate implements entity.Validatable.
func (l *MoveLine) Validate(ctx context.Context) error {
	if id.IsNil(l.AccountID) {
		return apperror.NewValidation("account is required").WithDetail("field", "accountId")
	}
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return apperror.NewValidation("debit and credit must not be negative")
	}
	if l.Debit.IsPositive() && l.Credit.IsPositive() {
		return apperror.NewValidation("a line cannot carry both debit and credit")
	}
	return nil
}

// resetResidual restores the unreconciled amounts.
func (l *MoveLine) resetResidual() {
	l.AmountResidual = l.Balance()
	l.AmountResidualCurrency = l.AmountCurrency
	l.Reconciled = false
	l.ReconcileID = nil
}
