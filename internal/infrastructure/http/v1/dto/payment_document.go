package dto

import (
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
)

// DocumentLineRequest is a manually entered document line.
type DocumentLineRequest struct {
	MoveLineID            *id.ID                             `json:"moveLineId"`
	PartnerID             id.ID                              `json:"partnerId"`
	Communication         string                             `json:"communication"`
	CommunicationType     payment_document.CommunicationType `json:"communicationType"`
	Currency              types.CurrencyCode                 `json:"currency"`
	AmountCurrency        types.Money                        `json:"amountCurrency"`
	AmountCompanyCurrency types.Money                        `json:"amountCompanyCurrency"`
}

// ToLine builds the document line.
func (r DocumentLineRequest) ToLine() *payment_document.DocumentLine {
	return &payment_document.DocumentLine{
		MoveLineID:            r.MoveLineID,
		PartnerID:             r.PartnerID,
		Communication:         r.Communication,
		CommunicationType:     r.CommunicationType,
		Currency:              r.Currency,
		AmountCurrency:        r.AmountCurrency,
		AmountCompanyCurrency: r.AmountCompanyCurrency,
	}
}

// PaymentDocumentRequest creates a draft document or rewrites one.
type PaymentDocumentRequest struct {
	Name          string               `json:"name" binding:"required"`
	PartnerID     id.ID                `json:"partnerId" binding:"required"`
	PaymentModeID id.ID                `json:"paymentModeId" binding:"required"`
	PaymentType   catalog.PaymentType  `json:"paymentType"`
	JournalID     *id.ID               `json:"journalId"`
	Date          *Date                `json:"date"`
	DatePrefered  catalog.DatePrefered `json:"datePrefered"`
	DateDue       *Date                `json:"dateDue"`
	Description   string               `json:"description"`

	DocumentDueMoveAccountID *id.ID `json:"documentDueMoveAccountId"`
	ExpirationMoveJournalID  *id.ID `json:"expirationMoveJournalId"`

	Lines []DocumentLineRequest `json:"lines" binding:"dive"`

	// Version is required on update for optimistic locking.
	Version int `json:"version"`
}

// ToDocument builds a new draft document.
func (r PaymentDocumentRequest) ToDocument() *payment_document.PaymentDocument {
	doc := payment_document.NewPaymentDocument(r.Name, r.PartnerID, r.PaymentModeID)
	r.apply(doc)
	return doc
}

// ApplyTo rewrites existing with the request, keeping identity and state.
func (r PaymentDocumentRequest) ApplyTo(existing *payment_document.PaymentDocument) *payment_document.PaymentDocument {
	doc := *existing
	doc.Name = r.Name
	doc.PartnerID = r.PartnerID
	doc.PaymentModeID = r.PaymentModeID
	doc.Version = r.Version
	r.apply(&doc)
	return &doc
}

func (r PaymentDocumentRequest) apply(doc *payment_document.PaymentDocument) {
	if r.PaymentType != "" {
		doc.PaymentType = r.PaymentType
	}
	if r.JournalID != nil {
		doc.JournalID = r.JournalID
	}
	if r.Date != nil {
		doc.Date = r.Date.Time
	}
	if r.DatePrefered != "" {
		doc.DatePrefered = r.DatePrefered
	}
	doc.DateDue = DatePtr(r.DateDue)
	doc.Description = r.Description
	if r.DocumentDueMoveAccountID != nil {
		doc.DocumentDueMoveAccountID = r.DocumentDueMoveAccountID
	}
	if r.ExpirationMoveJournalID != nil {
		doc.ExpirationMoveJournalID = r.ExpirationMoveJournalID
	}
	doc.Lines = make([]*payment_document.DocumentLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		doc.Lines = append(doc.Lines, l.ToLine())
	}
}

// DocumentListQuery filters payment documents.
type DocumentListQuery struct {
	ListQuery

	State          string `form:"state"`
	PartnerID      string `form:"partnerId"`
	PaymentOrderID string `form:"paymentOrderId"`
	PaymentType    string `form:"paymentType"`
	DueFrom        string `form:"dueFrom"`
	DueTo          string `form:"dueTo"`
}

// ToFilter builds a payment_document.ListFilter.
func (q DocumentListQuery) ToFilter() (payment_document.ListFilter, error) {
	var (
		f   payment_document.ListFilter
		err error
	)
	if f.ListFilter, err = q.ListQuery.ToFilter("-date"); err != nil {
		return f, err
	}
	if q.State != "" {
		f.States = []payment_document.State{payment_document.State(q.State)}
	}
	if f.PartnerID, err = ParseOptionalID("partnerId", q.PartnerID); err != nil {
		return f, err
	}
	if f.PaymentOrderID, err = ParseOptionalID("paymentOrderId", q.PaymentOrderID); err != nil {
		return f, err
	}
	f.PaymentType = catalog.PaymentType(q.PaymentType)
	if f.DueFrom, err = ParseOptionalDate(q.DueFrom); err != nil {
		return f, err
	}
	if f.DueTo, err = ParseOptionalDate(q.DueTo); err != nil {
		return f, err
	}
	return f, nil
}

// AttachMoveLinesRequest claims move lines for a draft document.
type AttachMoveLinesRequest struct {
	MoveLineIDs []id.ID `json:"moveLineIds" binding:"required,min=1"`
}

// RemoveLinesRequest drops document lines.
type RemoveLinesRequest struct {
	LineIDs []id.ID `json:"lineIds" binding:"required,min=1"`
}

// CopyRequest names the duplicate; empty gives "<name> (copy)".
type CopyRequest struct {
	Name string `json:"name"`
}

// AttachOrderRequest imports a document into a payment order.
type AttachOrderRequest struct {
	OrderID id.ID `json:"orderId" binding:"required"`
}
