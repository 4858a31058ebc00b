// Package payment_document provides the payment document aggregate: a group
// of receivable or payable move lines collected for payment or collection.
package payment_document

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
)

// EntityName is used in errors and the audit trail.
const EntityName = "payment_document"

// State is the lifecycle state of a payment document.
type State string

const (
	StateDraft    State = "draft"
	StateOpen     State = "open"
	StateAdvanced State = "advanced" // imported into a payment order
	StatePaid     State = "paid"
	StateUnpaid   State = "unpaid"
	StateCancel   State = "cancel"
)

// ActiveStates are the states in which a document claims its move lines.
var ActiveStates = []State{StateDraft, StateOpen, StateAdvanced}

// PaymentDocument groups document lines for one partner and payment mode.
type PaymentDocument struct {
	entity.BaseDocument

	Name        string              `db:"name" json:"name"`
	PaymentType catalog.PaymentType `db:"payment_type" json:"paymentType"`

	PartnerID       id.ID  `db:"partner_id" json:"partnerId"`
	PaymentModeID   id.ID  `db:"payment_mode_id" json:"paymentModeId"`
	PaymentMethodID id.ID  `db:"payment_method_id" json:"paymentMethodId"`
	JournalID       *id.ID `db:"journal_id" json:"journalId,omitempty"`
	PaymentOrderID  *id.ID `db:"payment_order_id" json:"paymentOrderId,omitempty"`

	// Date is the transaction date.
	Date         time.Time            `db:"date" json:"date"`
	DatePrefered catalog.DatePrefered `db:"date_prefered" json:"datePrefered"`
	DateDue      *time.Time           `db:"date_due" json:"dateDue,omitempty"`
	DatePaid     *time.Time           `db:"date_paid" json:"datePaid,omitempty"`

	Description string `db:"description" json:"description,omitempty"`
	State       State  `db:"state" json:"state"`

	TotalCompanyCurrency types.Money        `db:"total_company_currency" json:"totalCompanyCurrency"`
	CompanyCurrency      types.CurrencyCode `db:"company_currency" json:"companyCurrency"`

	// DocumentDueMoveAccountID is the debit account of the expiration move.
	DocumentDueMoveAccountID *id.ID `db:"document_due_move_account_id" json:"documentDueMoveAccountId,omitempty"`
	ExpirationMoveJournalID  *id.ID `db:"expiration_move_journal_id" json:"expirationMoveJournalId,omitempty"`
	ExpirationMoveID         *id.ID `db:"expiration_move_id" json:"expirationMoveId,omitempty"`

	Lines []*DocumentLine `db:"-" json:"lines"`
}

// NewPaymentDocument creates a draft document. Mode-derived fields are filled by Service.Create.
func NewPaymentDocument(name string, partnerID, modeID id.ID) *PaymentDocument {
	return &PaymentDocument{
		BaseDocument:  entity.NewBaseDocument(),
		Name:          name,
		PartnerID:     partnerID,
		PaymentModeID: modeID,
		State:         StateDraft,
	}
}

// Validate implements entity.Validatable.
func (d *PaymentDocument) Validate(ctx context.Context) error {
	if strings.TrimSpace(d.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if id.IsNil(d.PartnerID) {
		return apperror.NewValidation("partner is required").WithDetail("field", "partnerId")
	}
	if id.IsNil(d.PaymentModeID) {
		return apperror.NewValidation("payment mode is required").WithDetail("field", "paymentModeId")
	}
	if !d.PaymentType.IsValid() {
		return apperror.NewValidation("invalid payment type").WithDetail("field", "paymentType")
	}
	switch d.DatePrefered {
	case catalog.DatePreferedNow, catalog.DatePreferedDue:
	default:
		return apperror.NewValidation("date prefered must be now or due").WithDetail("field", "datePrefered")
	}
	for i, l := range d.Lines {
		if err := l.Validate(ctx, d.CompanyCurrency); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("line", i+1)
			}
			return err
		}
	}
	return nil
}

// CheckPaymentType enforces that the document direction matches its mode.
func (d *PaymentDocument) CheckPaymentType(mode *catalog.PaymentMode) error {
	if mode.PaymentType != "" && mode.PaymentType != d.PaymentType {
		return apperror.NewValidation(fmt.Sprintf(
			"The payment type (%s) is not the same as the payment type of the payment mode (%s)",
			d.PaymentType, mode.PaymentType)).
			WithDetail("field", "paymentType")
	}
	return nil
}

// CheckDateDue rejects due dates before today.
func (d *PaymentDocument) CheckDateDue(today time.Time) error {
	if d.DateDue != nil && d.DateDue.Before(today) {
		return apperror.NewValidation(fmt.Sprintf(
			"On payment document %s, the Payment Due Date is in the past (%s).",
			d.Name, d.DateDue.Format(time.DateOnly))).
			WithDetail("field", "dateDue")
	}
	return nil
}

// CanModify reports whether header and lines may still change.
func (d *PaymentDocument) CanModify() error {
	if d.State != StateDraft {
		return apperror.NewInvalidState(EntityName, string(d.State), "modify")
	}
	return nil
}

// ComputeTotal refreshes TotalCompanyCurrency from the lines.
func (d *PaymentDocument) ComputeTotal() {
	d.TotalCompanyCurrency = types.Sum(d.Lines, func(l *DocumentLine) types.Money {
		return l.AmountCompanyCurrency
	})
}

// TotalCurrency sums the line amounts in their own currency.
func (d *PaymentDocument) TotalCurrency() types.Money {
	return types.Sum(d.Lines, func(l *DocumentLine) types.Money { return l.AmountCurrency })
}

// Currencies returns the distinct line currencies in line order.
func (d *PaymentDocument) Currencies() []types.CurrencyCode {
	var out []types.CurrencyCode
	for _, l := range d.Lines {
		c := l.EffectiveCurrency(d.CompanyCurrency)
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// CheckSingleCurrency rejects documents whose lines mix currencies, since the
// aggregate offsetting line can only carry one.
func (d *PaymentDocument) CheckSingleCurrency() error {
	if cur := d.Currencies(); len(cur) > 1 {
		names := make([]string, len(cur))
		for i, c := range cur {
			names[i] = string(c)
		}
		return apperror.NewValidation(fmt.Sprintf(
			"Payment document %s mixes currencies (%s).", d.Name, strings.Join(names, ", "))).
			WithDetail("currencies", names)
	}
	return nil
}

// MoveLineIDs returns the originating move lines of the document lines.
func (d *PaymentDocument) MoveLineIDs() []id.ID {
	var ids []id.ID
	for _, l := range d.Lines {
		if l.MoveLineID != nil {
			ids = append(ids, *l.MoveLineID)
		}
	}
	return ids
}

// FindLine returns the line with the given ID.
func (d *PaymentDocument) FindLine(lineID id.ID) *DocumentLine {
	for _, l := range d.Lines {
		if l.ID == lineID {
			return l
		}
	}
	return nil
}

// MoveRef is the ref of generated moves and the name of their offsetting line.
func (d *PaymentDocument) MoveRef() string {
	if d.PaymentType == catalog.PaymentTypeOutbound {
		return fmt.Sprintf("Payment document %s", d.Name)
	}
	return fmt.Sprintf("Debit document %s", d.Name)
}

// ExpirationRef is the ref of the expiration move.
func (d *PaymentDocument) ExpirationRef() string {
	if d.PaymentType == catalog.PaymentTypeOutbound {
		return fmt.Sprintf("Expired Payment document %s", d.Name)
	}
	return fmt.Sprintf("Expired Debit document %s", d.Name)
}

// IsActive reports whether the document still claims its move lines.
func (d *PaymentDocument) IsActive() bool {
	return slices.Contains(ActiveStates, d.State)
}
