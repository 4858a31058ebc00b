// Package payment_order provides payment orders: batches of payment lines
// grouped into bank payment lines for delivery to a bank, optionally fed by
// payment documents.
package payment_order

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/entity"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/ledger"
)

// EntityName is used in errors and the audit trail.
const EntityName = "payment_order"

// State is the lifecycle state of a payment order.
type State string

const (
	StateDraft     State = "draft"
	StateOpen      State = "open"
	StateGenerated State = "generated"
	StateUploaded  State = "uploaded"
	StateDone      State = "done"
	StateCancel    State = "cancel"
)

// PaymentOrder batches payment lines of one payment mode.
type PaymentOrder struct {
	entity.BaseDocument

	Name          string              `db:"name" json:"name"`
	PaymentModeID id.ID               `db:"payment_mode_id" json:"paymentModeId"`
	PaymentType   catalog.PaymentType `db:"payment_type" json:"paymentType"`
	JournalID     *id.ID              `db:"journal_id" json:"journalId,omitempty"`
	State         State               `db:"state" json:"state"`

	DatePrefered  catalog.DatePrefered `db:"date_prefered" json:"datePrefered"`
	DateScheduled *time.Time           `db:"date_scheduled" json:"dateScheduled,omitempty"`
	DateGenerated *time.Time           `db:"date_generated" json:"dateGenerated,omitempty"`
	DateUploaded  *time.Time           `db:"date_uploaded" json:"dateUploaded,omitempty"`
	DateDone      *time.Time           `db:"date_done" json:"dateDone,omitempty"`

	CompanyCurrency types.CurrencyCode `db:"company_currency" json:"companyCurrency"`

	PaymentLines []*PaymentLine     `db:"-" json:"paymentLines"`
	BankLines    []*BankPaymentLine `db:"-" json:"bankLines"`

	// DocumentIDs are the payment documents attached to the order.
	DocumentIDs []id.ID `db:"-" json:"documentIds"`
}

// NewPaymentOrder creates a draft order.
func NewPaymentOrder(name string, modeID id.ID) *PaymentOrder {
	return &PaymentOrder{
		BaseDocument:  entity.NewBaseDocument(),
		Name:          name,
		PaymentModeID: modeID,
		State:         StateDraft,
		DatePrefered:  catalog.DatePreferedDue,
	}
}

// Validate implements entity.Validatable.
func (o *PaymentOrder) Validate(ctx context.Context) error {
	if strings.TrimSpace(o.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if id.IsNil(o.PaymentModeID) {
		return apperror.NewValidation("payment mode is required").WithDetail("field", "paymentModeId")
	}
	if !o.PaymentType.IsValid() {
		return apperror.NewValidation("invalid payment type").WithDetail("field", "paymentType")
	}
	if !o.DatePrefered.IsValid() {
		return apperror.NewValidation("invalid date prefered").WithDetail("field", "datePrefered")
	}
	if o.DatePrefered == catalog.DatePreferedFixed && o.DateScheduled == nil {
		return apperror.NewValidation("scheduled date is required when date prefered is fixed").
			WithDetail("field", "dateScheduled")
	}
	return nil
}

// CanModify reports whether payment lines may still change.
func (o *PaymentOrder) CanModify() error {
	if o.State != StateDraft {
		return apperror.NewInvalidState(EntityName, string(o.State), "modify")
	}
	return nil
}

// OnlyDocs reports whether payment documents are attached.
func (o *PaymentOrder) OnlyDocs() bool {
	return len(o.DocumentIDs) > 0
}

// OnlyMoveLines reports whether the order has payment lines and no documents.
func (o *PaymentOrder) OnlyMoveLines() bool {
	return len(o.PaymentLines) > 0 && len(o.DocumentIDs) == 0
}

// PartnerIDs is the union of payment line partners.
func (o *PaymentOrder) PartnerIDs() []id.ID {
	ids := make([]id.ID, 0, len(o.PaymentLines))
	for _, l := range o.PaymentLines {
		ids = append(ids, l.PartnerID)
	}
	return id.Unique(ids)
}

// MoveLineIDs returns the originating move lines of the payment lines.
func (o *PaymentOrder) MoveLineIDs() []id.ID {
	var ids []id.ID
	for _, l := range o.PaymentLines {
		if l.MoveLineID != nil {
			ids = append(ids, *l.MoveLineID)
		}
	}
	return ids
}

// PaymentLine returns the line with the given ID.
func (o *PaymentOrder) PaymentLine(lineID id.ID) *PaymentLine {
	for _, l := range o.PaymentLines {
		if l.ID == lineID {
			return l
		}
	}
	return nil
}

// BankLine returns the bank line with the given ID.
func (o *PaymentOrder) BankLine(lineID id.ID) *BankPaymentLine {
	for _, b := range o.BankLines {
		if b.ID == lineID {
			return b
		}
	}
	return nil
}

// MoveRef is the ref of moves generated for the order.
func (o *PaymentOrder) MoveRef() string {
	if o.PaymentType == catalog.PaymentTypeOutbound {
		return fmt.Sprintf("Payment order %s", o.Name)
	}
	return fmt.Sprintf("Debit order %s", o.Name)
}

// PaymentLine is one amount to pay or collect.
type PaymentLine struct {
	ID         id.ID  `db:"id" json:"id"`
	OrderID    id.ID  `db:"order_id" json:"orderId"`
	MoveLineID *id.ID `db:"move_line_id" json:"moveLineId,omitempty"`
	PartnerID  id.ID  `db:"partner_id" json:"partnerId"`

	Communication string `db:"communication" json:"communication"`

	Currency              types.CurrencyCode `db:"currency" json:"currency"`
	AmountCurrency        types.Money        `db:"amount_currency" json:"amountCurrency"`
	AmountCompanyCurrency types.Money        `db:"amount_company_currency" json:"amountCompanyCurrency"`

	// Date is the execution date, computed when the order opens.
	Date         *time.Time `db:"date" json:"date,omitempty"`
	DateMaturity *time.Time `db:"date_maturity" json:"dateMaturity,omitempty"`

	BankLineID *id.ID `db:"bank_line_id" json:"bankLineId,omitempty"`
}

// PaymentLineFromMoveLine builds a payment line claiming ml.
// Outbound residuals are negative and get flipped.
func PaymentLineFromMoveLine(o *PaymentOrder, move *ledger.Move, ml *ledger.MoveLine) *PaymentLine {
	communication := move.Ref
	if communication == "" || (move.Kind.IsInvoice() && !move.Kind.IsSupplier()) {
		communication = move.DisplayName()
	}

	currency := o.CompanyCurrency
	amountCurrency := ml.AmountResidual
	if ml.Currency.IsForeign(o.CompanyCurrency) {
		currency = ml.Currency
		amountCurrency = ml.AmountResidualCurrency
	}
	amountCompany := ml.AmountResidual
	if o.PaymentType == catalog.PaymentTypeOutbound {
		amountCurrency = amountCurrency.Neg()
		amountCompany = amountCompany.Neg()
	}

	var partnerID id.ID
	switch {
	case ml.PartnerID != nil:
		partnerID = *ml.PartnerID
	case move.PartnerID != nil:
		partnerID = *move.PartnerID
	}

	return &PaymentLine{
		ID:                    id.New(),
		OrderID:               o.ID,
		MoveLineID:            id.Ptr(ml.ID),
		PartnerID:             partnerID,
		Communication:         communication,
		Currency:              currency,
		AmountCurrency:        amountCurrency,
		AmountCompanyCurrency: amountCompany,
		DateMaturity:          ml.DateMaturity,
	}
}

// BankPaymentLine groups payment lines of one partner, currency and date
// into a single bank transfer.
type BankPaymentLine struct {
	ID        id.ID  `db:"id" json:"id"`
	OrderID   id.ID  `db:"order_id" json:"orderId"`
	Name      string `db:"name" json:"name"`
	PartnerID id.ID  `db:"partner_id" json:"partnerId"`

	Currency              types.CurrencyCode `db:"currency" json:"currency"`
	AmountCurrency        types.Money        `db:"amount_currency" json:"amountCurrency"`
	AmountCompanyCurrency types.Money        `db:"amount_company_currency" json:"amountCompanyCurrency"`

	Date time.Time `db:"date" json:"date"`

	PaymentLineIDs []id.ID `db:"-" json:"paymentLineIds"`
}

// bankLineKey groups payment lines into bank lines.
type bankLineKey struct {
	partner  id.ID
	currency types.CurrencyCode
	date     time.Time
}

// groupBankLines builds one bank line per partner, currency and date, in
// first-seen order, and links the payment lines to it.
func groupBankLines(o *PaymentOrder) []*BankPaymentLine {
	var (
		order  []bankLineKey
		groups = make(map[bankLineKey]*BankPaymentLine)
	)
	for _, pl := range o.PaymentLines {
		k := bankLineKey{partner: pl.PartnerID, currency: pl.Currency, date: *pl.Date}
		b, ok := groups[k]
		if !ok {
			b = &BankPaymentLine{
				ID:        id.New(),
				OrderID:   o.ID,
				Name:      fmt.Sprintf("%s/%03d", o.Name, len(order)+1),
				PartnerID: pl.PartnerID,
				Currency:  pl.Currency,
				Date:      *pl.Date,
			}
			groups[k] = b
			order = append(order, k)
		}
		b.AmountCurrency = b.AmountCurrency.Add(pl.AmountCurrency)
		b.AmountCompanyCurrency = b.AmountCompanyCurrency.Add(pl.AmountCompanyCurrency)
		b.PaymentLineIDs = append(b.PaymentLineIDs, pl.ID)
		pl.BankLineID = id.Ptr(b.ID)
	}

	out := make([]*BankPaymentLine, 0, len(order))
	for _, k := range order {
		out = append(out, groups[k])
	}
	return out
}

// linesOf returns the payment lines of bank line b.
func (o *PaymentOrder) linesOf(b *BankPaymentLine) []*PaymentLine {
	var out []*PaymentLine
	for _, pl := range o.PaymentLines {
		if slices.Contains(b.PaymentLineIDs, pl.ID) {
			out = append(out, pl)
		}
	}
	return out
}
