package dto

import (
	"paydocs/internal/core/id"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/linecreate"
)

// CreatePaymentOrderRequest creates a draft order.
type CreatePaymentOrderRequest struct {
	Name          string               `json:"name" binding:"required"`
	PaymentModeID id.ID                `json:"paymentModeId" binding:"required"`
	PaymentType   catalog.PaymentType  `json:"paymentType"`
	JournalID     *id.ID               `json:"journalId"`
	DatePrefered  catalog.DatePrefered `json:"datePrefered"`
	DateScheduled *Date                `json:"dateScheduled"`
	MoveLineIDs   []id.ID              `json:"moveLineIds"`
	DocumentIDs   []id.ID              `json:"documentIds"`
}

// ToOrder builds the draft order. An empty date preference takes the mode's.
func (r CreatePaymentOrderRequest) ToOrder() *payment_order.PaymentOrder {
	o := payment_order.NewPaymentOrder(r.Name, r.PaymentModeID)
	o.PaymentType = r.PaymentType
	o.JournalID = r.JournalID
	o.DatePrefered = r.DatePrefered
	o.DateScheduled = DatePtr(r.DateScheduled)
	return o
}

// OrderListQuery filters payment orders.
type OrderListQuery struct {
	ListQuery

	State string `form:"state"`
}

// ToFilter builds a payment_order.ListFilter.
func (q OrderListQuery) ToFilter() (payment_order.ListFilter, error) {
	var (
		f   payment_order.ListFilter
		err error
	)
	if f.ListFilter, err = q.ListQuery.ToFilter("-created_at"); err != nil {
		return f, err
	}
	if q.State != "" {
		f.States = []payment_order.State{payment_order.State(q.State)}
	}
	return f, nil
}

// AddMoveLinesRequest adds payment lines from move lines.
type AddMoveLinesRequest struct {
	MoveLineIDs []id.ID `json:"moveLineIds" binding:"required,min=1"`
}

// AttachDocumentsRequest attaches open payment documents.
type AttachDocumentsRequest struct {
	DocumentIDs []id.ID `json:"documentIds" binding:"required,min=1"`
}

// CandidateQuery selects move lines offered for payment.
type CandidateQuery struct {
	PaymentType  string `form:"paymentType" binding:"required"`
	PartnerID    string `form:"partnerId"`
	DueDate      string `form:"dueDate"`
	IncludeDraft bool   `form:"includeDraft"`
	Expression   string `form:"expression"`
}

// ToFilter builds a linecreate.Filter.
func (q CandidateQuery) ToFilter() (linecreate.Filter, error) {
	f := linecreate.Filter{
		PaymentType:  catalog.PaymentType(q.PaymentType),
		IncludeDraft: q.IncludeDraft,
		Expression:   q.Expression,
	}
	var err error
	if f.PartnerID, err = ParseOptionalID("partnerId", q.PartnerID); err != nil {
		return f, err
	}
	if f.DueDate, err = ParseOptionalDate(q.DueDate); err != nil {
		return f, err
	}
	return f, nil
}
