package payment_document

import (
	"context"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/ledger"
)

// CommunicationType classifies the payment reference.
type CommunicationType string

const (
	CommunicationNormal     CommunicationType = "normal"
	CommunicationStructured CommunicationType = "structured"
)

// CommunicationTypeFor maps an invoice reference type to a communication type.
func CommunicationTypeFor(rt ledger.ReferenceType) CommunicationType {
	if rt == ledger.ReferenceStructured {
		return CommunicationStructured
	}
	return CommunicationNormal
}

// DocumentLine is one move line's claim within a payment document.
// Amounts are positive for both payment types.
type DocumentLine struct {
	ID         id.ID  `db:"id" json:"id"`
	DocumentID id.ID  `db:"document_id" json:"documentId"`
	MoveLineID *id.ID `db:"move_line_id" json:"moveLineId,omitempty"`
	PartnerID  id.ID  `db:"partner_id" json:"partnerId"`

	Communication     string            `db:"communication" json:"communication"`
	CommunicationType CommunicationType `db:"communication_type" json:"communicationType"`

	Currency              types.CurrencyCode `db:"currency" json:"currency"`
	AmountCurrency        types.Money        `db:"amount_currency" json:"amountCurrency"`
	AmountCompanyCurrency types.Money        `db:"amount_company_currency" json:"amountCompanyCurrency"`
}

// EffectiveCurrency is the line currency, defaulting to the company currency.
func (l *DocumentLine) EffectiveCurrency(company types.CurrencyCode) types.CurrencyCode {
	if l.Currency == "" {
		return company
	}
	return l.Currency
}

// Validate checks the line against the document's company currency.
func (l *DocumentLine) Validate(ctx context.Context, company types.CurrencyCode) error {
	if id.IsNil(l.PartnerID) {
		return apperror.NewValidation("line partner is required").WithDetail("field", "partnerId")
	}
	if l.AmountCurrency.IsNegative() || l.AmountCompanyCurrency.IsNegative() {
		return apperror.NewValidation("line amounts must not be negative")
	}
	if l.CommunicationType == "" {
		l.CommunicationType = CommunicationNormal
	}
	if l.EffectiveCurrency(company).IsForeign(company) {
		if l.AmountCompanyCurrency.IsZero() && !l.AmountCurrency.IsZero() {
			return apperror.NewValidation("amount in company currency is required for foreign currency lines").
				WithDetail("field", "amountCompanyCurrency")
		}
		return nil
	}
	if l.AmountCompanyCurrency.IsZero() {
		l.AmountCompanyCurrency = l.AmountCurrency
	}
	return nil
}

// PrepareDocumentLine builds the claim of move line ml (belonging to move)
// for a document of the given payment type. Outbound residuals are negative
// and get flipped.
func PrepareDocumentLine(doc *PaymentDocument, move *ledger.Move, ml *ledger.MoveLine) *DocumentLine {
	communicationType := CommunicationNormal
	communication := move.Ref
	if communication == "" {
		communication = move.Number
	}
	if move.Kind.IsInvoice() {
		switch {
		case move.ReferenceType != ledger.ReferenceNone && move.ReferenceType != "":
			communication = move.Ref
			communicationType = CommunicationTypeFor(move.ReferenceType)
		case move.Kind.IsSupplier() && move.Ref != "":
			communication = move.Ref
		case !move.Kind.IsSupplier():
			communication = move.Number
		}
	}

	currency := doc.CompanyCurrency
	amountCurrency := ml.AmountResidual
	if ml.Currency.IsForeign(doc.CompanyCurrency) {
		currency = ml.Currency
		amountCurrency = ml.AmountResidualCurrency
	}
	amountCompany := ml.AmountResidual
	if doc.PaymentType == catalog.PaymentTypeOutbound {
		amountCurrency = amountCurrency.Neg()
		amountCompany = amountCompany.Neg()
	}

	partnerID := doc.PartnerID
	if ml.PartnerID != nil {
		partnerID = *ml.PartnerID
	}

	return &DocumentLine{
		ID:                    id.New(),
		DocumentID:            doc.ID,
		MoveLineID:            id.Ptr(ml.ID),
		PartnerID:             partnerID,
		Communication:         communication,
		CommunicationType:     communicationType,
		Currency:              currency,
		AmountCurrency:        amountCurrency,
		AmountCompanyCurrency: amountCompany,
	}
}
