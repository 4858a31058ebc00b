// Package catalog provides the reference data consumed by payment documents
// and orders: accounts, journals, partners, payment methods and payment modes.
package catalog

import (
	"context"
	"slices"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/entity"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
)

// PaymentType is the direction of money flow.
type PaymentType string

const (
	PaymentTypeInbound  PaymentType = "inbound"  // money received from customers
	PaymentTypeOutbound PaymentType = "outbound" // money paid to suppliers
)

// IsValid reports whether t is a known payment type.
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeInbound || t == PaymentTypeOutbound
}

// DatePrefered selects which date drives execution of a payment.
type DatePrefered string

const (
	DatePreferedNow   DatePrefered = "now"
	DatePreferedDue   DatePrefered = "due"
	DatePreferedFixed DatePrefered = "fixed"
)

// IsValid reports whether d is a known value.
func (d DatePrefered) IsValid() bool {
	switch d {
	case DatePreferedNow, DatePreferedDue, DatePreferedFixed:
		return true
	}
	return false
}

// AccountType classifies accounts.
type AccountType string

const (
	AccountReceivable AccountType = "receivable"
	AccountPayable    AccountType = "payable"
	AccountLiquidity  AccountType = "liquidity"
	AccountOther      AccountType = "other"
)

// Account is a general ledger account.
type Account struct {
	entity.Catalog

	Type AccountType `db:"account_type" json:"type"`

	// Reconcile marks accounts whose lines can be matched against each other.
	Reconcile bool `db:"reconcile" json:"reconcile"`
}

// NewAccount creates an account.
func NewAccount(code, name string, t AccountType) *Account {
	return &Account{
		Catalog:   entity.NewCatalog(code, name),
		Type:      t,
		Reconcile: t == AccountReceivable || t == AccountPayable,
	}
}

// Validate implements entity.Validatable.
func (a *Account) Validate(ctx context.Context) error {
	if err := a.Catalog.Validate(ctx); err != nil {
		return err
	}
	switch a.Type {
	case AccountReceivable, AccountPayable, AccountLiquidity, AccountOther:
		return nil
	}
	return apperror.NewValidation("invalid account type").WithDetail("field", "type")
}

// Journal holds entries of one kind (bank, misc) and numbers them.
type Journal struct {
	entity.Catalog

	// BankAccount is the IBAN or account number; empty for non-bank journals
	BankAccount string `db:"bank_account" json:"bankAccount,omitempty"`

	DefaultDebitAccountID  *id.ID `db:"default_debit_account_id" json:"defaultDebitAccountId,omitempty"`
	DefaultCreditAccountID *id.ID `db:"default_credit_account_id" json:"defaultCreditAccountId,omitempty"`
}

// NewJournal creates a journal.
func NewJournal(code, name string) *Journal {
	return &Journal{Catalog: entity.NewCatalog(code, name)}
}

// Validate implements entity.Validatable.
func (j *Journal) Validate(ctx context.Context) error {
	if err := j.Catalog.Validate(ctx); err != nil {
		return err
	}
	if j.Code == "" {
		return apperror.NewValidation("journal code is required").WithDetail("field", "code")
	}
	return nil
}

// Partner is a customer or supplier.
type Partner struct {
	entity.Catalog

	ReceivableAccountID *id.ID `db:"receivable_account_id" json:"receivableAccountId,omitempty"`
	PayableAccountID    *id.ID `db:"payable_account_id" json:"payableAccountId,omitempty"`
}

// NewPartner creates a partner.
func NewPartner(name string) *Partner {
	return &Partner{Catalog: entity.NewCatalog("", name)}
}

// Validate implements entity.Validatable.
func (p *Partner) Validate(ctx context.Context) error {
	return p.Catalog.Validate(ctx)
}

// AccountFor returns the receivable account for inbound flows and the payable
// account for outbound ones.
func (p *Partner) AccountFor(t PaymentType) *id.ID {
	if t == PaymentTypeInbound {
		return p.ReceivableAccountID
	}
	return p.PayableAccountID
}

// PaymentMethod is a means of payment (SEPA credit transfer, direct debit...).
type PaymentMethod struct {
	entity.Catalog

	PaymentType         PaymentType `db:"payment_type" json:"paymentType"`
	BankAccountRequired bool        `db:"bank_account_required" json:"bankAccountRequired"`
}

// NewPaymentMethod creates a payment method.
func NewPaymentMethod(code, name string, t PaymentType) *PaymentMethod {
	return &PaymentMethod{Catalog: entity.NewCatalog(code, name), PaymentType: t}
}

// Validate implements entity.Validatable.
func (m *PaymentMethod) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}
	if !m.PaymentType.IsValid() {
		return apperror.NewValidation("invalid payment type").WithDetail("field", "paymentType")
	}
	return nil
}

// BankAccountLink tells how a mode selects its journal.
type BankAccountLink string

const (
	LinkFixed    BankAccountLink = "fixed"
	LinkVariable BankAccountLink = "variable"
)

// OffsettingAccount tells where generated moves put the aggregate line.
type OffsettingAccount string

const (
	OffsetBankAccount     OffsettingAccount = "bank_account"
	OffsetTransferAccount OffsettingAccount = "transfer_account"
)

// PaymentMode is the configuration applied to payment documents and orders.
type PaymentMode struct {
	entity.Catalog

	// PaymentType may be empty when the mode does not constrain direction.
	PaymentType     PaymentType `db:"payment_type" json:"paymentType,omitempty"`
	PaymentMethodID id.ID       `db:"payment_method_id" json:"paymentMethodId"`

	BankAccountLink    BankAccountLink `db:"bank_account_link" json:"bankAccountLink"`
	FixedJournalID     *id.ID          `db:"fixed_journal_id" json:"fixedJournalId,omitempty"`
	VariableJournalIDs []id.ID         `db:"variable_journal_ids" json:"variableJournalIds,omitempty"`

	OffsettingAccount OffsettingAccount `db:"offsetting_account" json:"offsettingAccount"`
	TransferAccountID *id.ID            `db:"transfer_account_id" json:"transferAccountId,omitempty"`
	TransferJournalID *id.ID            `db:"transfer_journal_id" json:"transferJournalId,omitempty"`

	DefaultDatePrefered DatePrefered `db:"default_date_prefered" json:"defaultDatePrefered,omitempty"`

	GenerateMove bool `db:"generate_move" json:"generateMove"`
	PostMove     bool `db:"post_move" json:"postMove"`

	CompanyCurrency types.CurrencyCode `db:"company_currency" json:"companyCurrency"`
}

// NewPaymentMode creates a mode with a fixed journal and bank-account offsetting.
func NewPaymentMode(name string, t PaymentType, methodID, journalID id.ID) *PaymentMode {
	return &PaymentMode{
		Catalog:           entity.NewCatalog("", name),
		PaymentType:       t,
		PaymentMethodID:   methodID,
		BankAccountLink:   LinkFixed,
		FixedJournalID:    id.Ptr(journalID),
		OffsettingAccount: OffsetBankAccount,
		CompanyCurrency:   "EUR",
	}
}

// Validate implements entity.Validatable.
func (m *PaymentMode) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}
	if m.PaymentType != "" && !m.PaymentType.IsValid() {
		return apperror.NewValidation("invalid payment type").WithDetail("field", "paymentType")
	}
	if id.IsNil(m.PaymentMethodID) {
		return apperror.NewValidation("payment method is required").WithDetail("field", "paymentMethodId")
	}
	switch m.BankAccountLink {
	case LinkFixed:
		if !id.IsSet(m.FixedJournalID) {
			return apperror.NewValidation("fixed journal is required for a fixed bank account link").
				WithDetail("field", "fixedJournalId")
		}
	case LinkVariable:
	default:
		return apperror.NewValidation("invalid bank account link").WithDetail("field", "bankAccountLink")
	}
	switch m.OffsettingAccount {
	case OffsetBankAccount:
	case OffsetTransferAccount:
		if !id.IsSet(m.TransferAccountID) || !id.IsSet(m.TransferJournalID) {
			return apperror.NewValidation("transfer account and journal are required for transfer offsetting").
				WithDetail("field", "transferAccountId")
		}
	default:
		return apperror.NewValidation("invalid offsetting account").WithDetail("field", "offsettingAccount")
	}
	if m.DefaultDatePrefered != "" && !m.DefaultDatePrefered.IsValid() {
		return apperror.NewValidation("invalid default date prefered").WithDetail("field", "defaultDatePrefered")
	}
	return nil
}

// AllowedJournals returns the journals a document or order on this mode may use.
func (m *PaymentMode) AllowedJournals() []id.ID {
	switch m.BankAccountLink {
	case LinkFixed:
		if id.IsSet(m.FixedJournalID) {
			return []id.ID{*m.FixedJournalID}
		}
	case LinkVariable:
		return slices.Clone(m.VariableJournalIDs)
	}
	return nil
}

// DefaultJournal is the journal preselected for new documents: the fixed
// journal, or the only allowed one.
func (m *PaymentMode) DefaultJournal() *id.ID {
	if m.BankAccountLink == LinkFixed {
		return m.FixedJournalID
	}
	if allowed := m.AllowedJournals(); len(allowed) == 1 {
		return id.Ptr(allowed[0])
	}
	return nil
}

// DocumentDatePrefered is the default for documents: the mode's own default
// unless it is unset or fixed, which documents do not support.
func (m *PaymentMode) DocumentDatePrefered() DatePrefered {
	if m.DefaultDatePrefered == "" || m.DefaultDatePrefered == DatePreferedFixed {
		return DatePreferedDue
	}
	return m.DefaultDatePrefered
}

// UsesTransferAccount reports whether generated moves offset on the transfer account.
func (m *PaymentMode) UsesTransferAccount() bool {
	return m.OffsettingAccount == OffsetTransferAccount
}
