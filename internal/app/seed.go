package app

import (
	"context"
	"fmt"
	"time"

	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/ledger"
)

// Demo is a small chart of accounts with one customer, one supplier and an
// inbound and an outbound payment mode, both generating posted moves on the
// bank journal.
type Demo struct {
	Receivable *catalog.Account
	Payable    *catalog.Account
	Income     *catalog.Account
	Expense    *catalog.Account
	Bank       *catalog.Account
	Transfer   *catalog.Account
	DueMove    *catalog.Account

	BankJournal     *catalog.Journal
	MiscJournal     *catalog.Journal
	SaleJournal     *catalog.Journal
	PurchaseJournal *catalog.Journal

	Customer *catalog.Partner
	Supplier *catalog.Partner

	InboundMethod  *catalog.PaymentMethod
	OutboundMethod *catalog.PaymentMethod

	InboundMode  *catalog.PaymentMode
	OutboundMode *catalog.PaymentMode
}

// SeedDemo stores the demo catalog.
func SeedDemo(ctx context.Context, svc *Services) (*Demo, error) {
	d := &Demo{
		Receivable: catalog.NewAccount("430000", "Customers", catalog.AccountReceivable),
		Payable:    catalog.NewAccount("400000", "Suppliers", catalog.AccountPayable),
		Income:     catalog.NewAccount("700000", "Sales", catalog.AccountOther),
		Expense:    catalog.NewAccount("600000", "Purchases", catalog.AccountOther),
		Bank:       catalog.NewAccount("572000", "Bank", catalog.AccountLiquidity),
		Transfer:   catalog.NewAccount("572900", "Transfers in transit", catalog.AccountLiquidity),
		DueMove:    catalog.NewAccount("431500", "Discounted bills", catalog.AccountOther),
	}
	d.Transfer.Reconcile = true
	d.Bank.Reconcile = true

	for _, a := range []*catalog.Account{d.Receivable, d.Payable, d.Income, d.Expense, d.Bank, d.Transfer, d.DueMove} {
		if err := svc.Catalog.SaveAccount(ctx, a); err != nil {
			return nil, fmt.Errorf("seed account %s: %w", a.Code, err)
		}
	}

	d.BankJournal = catalog.NewJournal("BNK1", "Bank")
	d.BankJournal.BankAccount = "ES7921000813610123456789"
	d.BankJournal.DefaultDebitAccountID = id.Ptr(d.Bank.ID)
	d.BankJournal.DefaultCreditAccountID = id.Ptr(d.Bank.ID)
	d.MiscJournal = catalog.NewJournal("MISC", "Miscellaneous")
	d.SaleJournal = catalog.NewJournal("INV", "Customer invoices")
	d.PurchaseJournal = catalog.NewJournal("BILL", "Vendor bills")
	for _, j := range []*catalog.Journal{d.BankJournal, d.MiscJournal, d.SaleJournal, d.PurchaseJournal} {
		if err := svc.Catalog.SaveJournal(ctx, j); err != nil {
			return nil, fmt.Errorf("seed journal %s: %w", j.Code, err)
		}
	}

	d.Customer = catalog.NewPartner("Agrolait")
	d.Customer.ReceivableAccountID = id.Ptr(d.Receivable.ID)
	d.Customer.PayableAccountID = id.Ptr(d.Payable.ID)
	d.Supplier = catalog.NewPartner("Wood Corner")
	d.Supplier.ReceivableAccountID = id.Ptr(d.Receivable.ID)
	d.Supplier.PayableAccountID = id.Ptr(d.Payable.ID)
	for _, p := range []*catalog.Partner{d.Customer, d.Supplier} {
		if err := svc.Catalog.SavePartner(ctx, p); err != nil {
			return nil, fmt.Errorf("seed partner %s: %w", p.Name, err)
		}
	}

	d.InboundMethod = catalog.NewPaymentMethod("sepa_direct_debit", "SEPA Direct Debit", catalog.PaymentTypeInbound)
	d.OutboundMethod = catalog.NewPaymentMethod("sepa_credit_transfer", "SEPA Credit Transfer", catalog.PaymentTypeOutbound)
	d.OutboundMethod.BankAccountRequired = true
	for _, m := range []*catalog.PaymentMethod{d.InboundMethod, d.OutboundMethod} {
		if err := svc.Catalog.SavePaymentMethod(ctx, m); err != nil {
			return nil, fmt.Errorf("seed payment method %s: %w", m.Code, err)
		}
	}

	d.InboundMode = catalog.NewPaymentMode("Direct debit", catalog.PaymentTypeInbound, d.InboundMethod.ID, d.BankJournal.ID)
	d.OutboundMode = catalog.NewPaymentMode("Credit transfer", catalog.PaymentTypeOutbound, d.OutboundMethod.ID, d.BankJournal.ID)
	for _, m := range []*catalog.PaymentMode{d.InboundMode, d.OutboundMode} {
		m.GenerateMove = true
		m.PostMove = true
		if err := svc.Catalog.SavePaymentMode(ctx, m); err != nil {
			return nil, fmt.Errorf("seed payment mode %s: %w", m.Name, err)
		}
	}
	return d, nil
}

// CustomerInvoice books and posts an invoice of amount for the customer,
// due at maturity.
func (d *Demo) CustomerInvoice(ctx context.Context, svc *Services, ref string, amount types.Money, date, maturity time.Time) (*ledger.Move, *ledger.MoveLine, error) {
	m := ledger.NewMove(d.SaleJournal.ID, date, ref)
	m.Kind = ledger.KindOutInvoice
	m.PartnerID = id.Ptr(d.Customer.ID)
	m.AmountTotalSigned = amount
	open := m.AddLine(&ledger.MoveLine{
		Name:         ref,
		AccountID:    d.Receivable.ID,
		PartnerID:    id.Ptr(d.Customer.ID),
		Debit:        amount,
		DateMaturity: &maturity,
	})
	m.AddLine(&ledger.MoveLine{
		Name:      ref,
		AccountID: d.Income.ID,
		PartnerID: id.Ptr(d.Customer.ID),
		Credit:    amount,
	})
	if err := d.book(ctx, svc, m); err != nil {
		return nil, nil, err
	}
	return m, open, nil
}

// SupplierBill books and posts a bill of amount from the supplier, due at maturity.
func (d *Demo) SupplierBill(ctx context.Context, svc *Services, ref string, amount types.Money, date, maturity time.Time) (*ledger.Move, *ledger.MoveLine, error) {
	m := ledger.NewMove(d.PurchaseJournal.ID, date, ref)
	m.Kind = ledger.KindInInvoice
	m.PartnerID = id.Ptr(d.Supplier.ID)
	m.AmountTotalSigned = amount.Neg()
	m.AddLine(&ledger.MoveLine{
		Name:      ref,
		AccountID: d.Expense.ID,
		PartnerID: id.Ptr(d.Supplier.ID),
		Debit:     amount,
	})
	open := m.AddLine(&ledger.MoveLine{
		Name:         ref,
		AccountID:    d.Payable.ID,
		PartnerID:    id.Ptr(d.Supplier.ID),
		Credit:       amount,
		DateMaturity: &maturity,
	})
	if err := d.book(ctx, svc, m); err != nil {
		return nil, nil, err
	}
	return m, open, nil
}

func (d *Demo) book(ctx context.Context, svc *Services, m *ledger.Move) error {
	if err := svc.Ledger.CreateMove(ctx, m); err != nil {
		return fmt.Errorf("book %s: %w", m.Ref, err)
	}
	if err := svc.Ledger.Post(ctx, m.ID); err != nil {
		return fmt.Errorf("post %s: %w", m.Ref, err)
	}
	return nil
}
