package dto

import (
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
)

// AccountRequest creates or replaces an account.
type AccountRequest struct {
	Code      string              `json:"code" binding:"required"`
	Name      string              `json:"name" binding:"required"`
	Type      catalog.AccountType `json:"type" binding:"required"`
	Reconcile *bool               `json:"reconcile"`
}

// ToAccount applies the request onto existing, or onto a new account when nil.
func (r AccountRequest) ToAccount(existing *catalog.Account) *catalog.Account {
	a := existing
	if a == nil {
		a = catalog.NewAccount(r.Code, r.Name, r.Type)
	}
	a.Code, a.Name, a.Type = r.Code, r.Name, r.Type
	if r.Reconcile != nil {
		a.Reconcile = *r.Reconcile
	}
	return a
}

// JournalRequest creates or replaces a journal.
type JournalRequest struct {
	Code                   string `json:"code" binding:"required"`
	Name                   string `json:"name" binding:"required"`
	BankAccount            string `json:"bankAccount"`
	DefaultDebitAccountID  *id.ID `json:"defaultDebitAccountId"`
	DefaultCreditAccountID *id.ID `json:"defaultCreditAccountId"`
}

// ToJournal applies the request onto existing, or onto a new journal when nil.
func (r JournalRequest) ToJournal(existing *catalog.Journal) *catalog.Journal {
	j := existing
	if j == nil {
		j = catalog.NewJournal(r.Code, r.Name)
	}
	j.Code, j.Name = r.Code, r.Name
	j.BankAccount = r.BankAccount
	j.DefaultDebitAccountID = r.DefaultDebitAccountID
	j.DefaultCreditAccountID = r.DefaultCreditAccountID
	return j
}

// PartnerRequest creates or replaces a partner.
type PartnerRequest struct {
	Code                string `json:"code"`
	Name                string `json:"name" binding:"required"`
	ReceivableAccountID *id.ID `json:"receivableAccountId"`
	PayableAccountID    *id.ID `json:"payableAccountId"`
}

// ToPartner applies the request onto existing, or onto a new partner when nil.
func (r PartnerRequest) ToPartner(existing *catalog.Partner) *catalog.Partner {
	p := existing
	if p == nil {
		p = catalog.NewPartner(r.Name)
	}
	p.Code, p.Name = r.Code, r.Name
	p.ReceivableAccountID = r.ReceivableAccountID
	p.PayableAccountID = r.PayableAccountID
	return p
}

// PaymentMethodRequest creates or replaces a payment method.
type PaymentMethodRequest struct {
	Code                string              `json:"code" binding:"required"`
	Name                string              `json:"name" binding:"required"`
	PaymentType         catalog.PaymentType `json:"paymentType" binding:"required"`
	BankAccountRequired bool                `json:"bankAccountRequired"`
}

// ToPaymentMethod applies the request onto existing, or onto a new method when nil.
func (r PaymentMethodRequest) ToPaymentMethod(existing *catalog.PaymentMethod) *catalog.PaymentMethod {
	m := existing
	if m == nil {
		m = catalog.NewPaymentMethod(r.Code, r.Name, r.PaymentType)
	}
	m.Code, m.Name, m.PaymentType = r.Code, r.Name, r.PaymentType
	m.BankAccountRequired = r.BankAccountRequired
	return m
}

// PaymentModeRequest creates or replaces a payment mode.
type PaymentModeRequest struct {
	Code            string              `json:"code"`
	Name            string              `json:"name" binding:"required"`
	PaymentType     catalog.PaymentType `json:"paymentType"`
	PaymentMethodID id.ID               `json:"paymentMethodId" binding:"required"`

	BankAccountLink    catalog.BankAccountLink `json:"bankAccountLink"`
	FixedJournalID     *id.ID                  `json:"fixedJournalId"`
	VariableJournalIDs []id.ID                 `json:"variableJournalIds"`

	OffsettingAccount catalog.OffsettingAccount `json:"offsettingAccount"`
	TransferAccountID *id.ID                    `json:"transferAccountId"`
	TransferJournalID *id.ID                    `json:"transferJournalId"`

	DefaultDatePrefered catalog.DatePrefered `json:"defaultDatePrefered"`
	GenerateMove        bool                 `json:"generateMove"`
	PostMove            bool                 `json:"postMove"`
	CompanyCurrency     types.CurrencyCode   `json:"companyCurrency"`
}

// ToPaymentMode applies the request onto existing, or onto a new mode when nil.
// Empty enums take the defaults of a new mode.
func (r PaymentModeRequest) ToPaymentMode(existing *catalog.PaymentMode) *catalog.PaymentMode {
	m := existing
	if m == nil {
		m = catalog.NewPaymentMode(r.Name, r.PaymentType, r.PaymentMethodID, id.Nil())
	}
	m.Code, m.Name = r.Code, r.Name
	m.PaymentType = r.PaymentType
	m.PaymentMethodID = r.PaymentMethodID
	if r.BankAccountLink != "" {
		m.BankAccountLink = r.BankAccountLink
	}
	m.FixedJournalID = r.FixedJournalID
	m.VariableJournalIDs = r.VariableJournalIDs
	if r.OffsettingAccount != "" {
		m.OffsettingAccount = r.OffsettingAccount
	}
	m.TransferAccountID = r.TransferAccountID
	m.TransferJournalID = r.TransferJournalID
	m.DefaultDatePrefered = r.DefaultDatePrefered
	m.GenerateMove = r.GenerateMove
	m.PostMove = r.PostMove
	if r.CompanyCurrency != "" {
		m.CompanyCurrency = r.CompanyCurrency
	}
	return m
}
