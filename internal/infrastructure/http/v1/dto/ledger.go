package dto

import (
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/documentlink"
	"paydocs/internal/domain/ledger"
)

// MoveLineRequest is one line of a new move.
type MoveLineRequest struct {
	Name           string             `json:"name"`
	AccountID      id.ID              `json:"accountId" binding:"required"`
	PartnerID      *id.ID             `json:"partnerId"`
	Debit          types.Money        `json:"debit"`
	Credit         types.Money        `json:"credit"`
	Currency       types.CurrencyCode `json:"currency"`
	AmountCurrency types.Money        `json:"amountCurrency"`
	DateMaturity   *Date              `json:"dateMaturity"`
}

// CreateMoveRequest creates a draft move.
type CreateMoveRequest struct {
	JournalID     id.ID                `json:"journalId" binding:"required"`
	Date          Date                 `json:"date"`
	Ref           string               `json:"ref"`
	Kind          ledger.MoveKind      `json:"kind"`
	ReferenceType ledger.ReferenceType `json:"referenceType"`
	PartnerID     *id.ID               `json:"partnerId"`
	Lines         []MoveLineRequest    `json:"lines" binding:"required,min=1,dive"`

	// Post posts the move right after creating it.
	Post bool `json:"post"`
}

// ToMove builds the draft move.
func (r CreateMoveRequest) ToMove() *ledger.Move {
	m := ledger.NewMove(r.JournalID, r.Date.Time, r.Ref)
	if r.Kind != "" {
		m.Kind = r.Kind
	}
	if r.ReferenceType != "" {
		m.ReferenceType = r.ReferenceType
	}
	m.PartnerID = r.PartnerID
	for _, l := range r.Lines {
		m.AddLine(&ledger.MoveLine{
			Name:           l.Name,
			AccountID:      l.AccountID,
			PartnerID:      l.PartnerID,
			Debit:          l.Debit,
			Credit:         l.Credit,
			Currency:       l.Currency,
			AmountCurrency: l.AmountCurrency,
			DateMaturity:   DatePtr(l.DateMaturity),
		})
	}
	m.AmountTotalSigned = invoiceTotal(m)
	return m
}

// invoiceTotal is the invoice amount, positive for customer invoices and
// supplier refunds.
func invoiceTotal(m *ledger.Move) types.Money {
	switch m.Kind {
	case ledger.KindOutInvoice, ledger.KindInRefund:
		return m.TotalDebit()
	case ledger.KindOutRefund, ledger.KindInInvoice:
		return m.TotalDebit().Neg()
	}
	return types.Zero()
}

// MoveQuery filters moves.
type MoveQuery struct {
	PaymentDocumentID string `form:"paymentDocumentId"`
	PaymentOrderID    string `form:"paymentOrderId"`
	State             string `form:"state"`
}

// ToFilter builds a ledger.MoveFilter.
func (q MoveQuery) ToFilter() (ledger.MoveFilter, error) {
	var (
		f   ledger.MoveFilter
		err error
	)
	if f.PaymentDocumentID, err = ParseOptionalID("paymentDocumentId", q.PaymentDocumentID); err != nil {
		return f, err
	}
	if f.PaymentOrderID, err = ParseOptionalID("paymentOrderId", q.PaymentOrderID); err != nil {
		return f, err
	}
	if q.State != "" {
		f.States = []ledger.MoveState{ledger.MoveState(q.State)}
	}
	return f, nil
}

// LineQuery filters move lines.
type LineQuery struct {
	MoveID           string `form:"moveId"`
	AccountID        string `form:"accountId"`
	PartnerID        string `form:"partnerId"`
	MaturityTo       string `form:"maturityTo"`
	OnlyPosted       bool   `form:"onlyPosted"`
	OnlyUnreconciled bool   `form:"onlyUnreconciled"`
}

// ToFilter builds a ledger.LineFilter.
func (q LineQuery) ToFilter() (ledger.LineFilter, error) {
	f := ledger.LineFilter{OnlyPosted: q.OnlyPosted, OnlyUnreconciled: q.OnlyUnreconciled}
	moveID, err := ParseOptionalID("moveId", q.MoveID)
	if err != nil {
		return f, err
	}
	if moveID != nil {
		f.MoveIDs = []id.ID{*moveID}
	}
	accountID, err := ParseOptionalID("accountId", q.AccountID)
	if err != nil {
		return f, err
	}
	if accountID != nil {
		f.AccountIDs = []id.ID{*accountID}
	}
	if f.PartnerID, err = ParseOptionalID("partnerId", q.PartnerID); err != nil {
		return f, err
	}
	if f.MaturityTo, err = ParseOptionalDate(q.MaturityTo); err != nil {
		return f, err
	}
	return f, nil
}

// ReconcileRequest names the move lines to match.
type ReconcileRequest struct {
	LineIDs []id.ID `json:"lineIds" binding:"required,min=1"`
}

// ReconcileResponse carries the reconciliation group.
type ReconcileResponse struct {
	ReconcileID string `json:"reconcileId"`
}

// PendingResponse is the amount still awaiting payment documents.
type PendingResponse struct {
	MoveID  string      `json:"moveId"`
	Pending types.Money `json:"pending"`
}

// CounterpartRequest is one side of a statement booking.
type CounterpartRequest struct {
	Name       string      `json:"name"`
	AccountID  id.ID       `json:"accountId" binding:"required"`
	PartnerID  *id.ID      `json:"partnerId"`
	Amount     types.Money `json:"amount"`
	MoveLineID *id.ID      `json:"moveLineId"`
	OrderID    *id.ID      `json:"orderId"`
	DocumentID *id.ID      `json:"documentId"`
}

// StatementReconciliationRequest books one bank statement line.
type StatementReconciliationRequest struct {
	JournalID    id.ID                `json:"journalId" binding:"required"`
	Date         Date                 `json:"date"`
	Ref          string               `json:"ref"`
	PartnerID    *id.ID               `json:"partnerId"`
	Amount       types.Money          `json:"amount"`
	Counterparts []CounterpartRequest `json:"counterparts" binding:"required,min=1,dive"`
}

// ToDomain splits the request into the statement line and its counterparts.
func (r StatementReconciliationRequest) ToDomain() (documentlink.StatementLine, []documentlink.Counterpart) {
	st := documentlink.StatementLine{
		JournalID: r.JournalID,
		Date:      r.Date.Time,
		Ref:       r.Ref,
		PartnerID: r.PartnerID,
		Amount:    r.Amount,
	}
	cps := make([]documentlink.Counterpart, 0, len(r.Counterparts))
	for _, c := range r.Counterparts {
		cps = append(cps, documentlink.Counterpart{
			Name:       c.Name,
			AccountID:  c.AccountID,
			PartnerID:  c.PartnerID,
			Amount:     c.Amount,
			MoveLineID: c.MoveLineID,
			OrderID:    c.OrderID,
			DocumentID: c.DocumentID,
		})
	}
	return st, cps
}
