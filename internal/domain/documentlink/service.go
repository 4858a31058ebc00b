// Package documentlink joins moves, payment documents and payment orders:
// navigation from moves to documents, amounts still pending on invoices, and
// bank statement reconciliation that advances the documents it settles.
package documentlink

import (
	"context"
	"fmt"
	"time"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/ledger"
	"paydocs/pkg/logger"
)

// Ledger reads and books moves.
type Ledger interface {
	Move(ctx context.Context, moveID id.ID) (*ledger.Move, error)
	CreateMove(ctx context.Context, m *ledger.Move) error
	Post(ctx context.Context, moveID id.ID) error
	Reconcile(ctx context.Context, lineIDs []id.ID) (id.ID, error)
}

// Catalog resolves accounts and journals.
type Catalog interface {
	Account(ctx context.Context, accountID id.ID) (*catalog.Account, error)
	Journal(ctx context.Context, journalID id.ID) (*catalog.Journal, error)
}

// Documents is the payment document side.
type Documents interface {
	GetByID(ctx context.Context, docID id.ID) (*payment_document.PaymentDocument, error)
	Find(ctx context.Context, filter payment_document.ListFilter) ([]*payment_document.PaymentDocument, error)
	LinesForMoveLines(ctx context.Context, moveLineIDs []id.ID, states []payment_document.State) ([]*payment_document.DocumentLine, error)
	Open2Advanced(ctx context.Context, docID id.ID) (*payment_document.PaymentDocument, error)
}

// Orders is the payment order side.
type Orders interface {
	PaymentLinesForMoveLines(ctx context.Context, moveLineIDs []id.ID) ([]*payment_order.PaymentLine, error)
}

// TxManager runs a function in one transaction.
type TxManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements the cross-entity operations.
type Service struct {
	ledger    Ledger
	catalog   Catalog
	documents Documents
	orders    Orders
	txManager TxManager
}

// NewService creates the service.
func NewService(led Ledger, cat Catalog, docs Documents, orders Orders, txManager TxManager) *Service {
	return &Service{
		ledger:    led,
		catalog:   cat,
		documents: docs,
		orders:    orders,
		txManager: txManager,
	}
}

// DocumentForMove returns the payment document that generated moveID.
func (s *Service) DocumentForMove(ctx context.Context, moveID id.ID) (*payment_document.PaymentDocument, error) {
	m, err := s.ledger.Move(ctx, moveID)
	if err != nil {
		return nil, err
	}
	if !id.IsSet(m.PaymentDocumentID) {
		return nil, apperror.NewNotFound(payment_document.EntityName, "move "+moveID.String())
	}
	return s.documents.GetByID(ctx, *m.PaymentDocumentID)
}

// DocumentLinesForMoveLine returns every document line, in any state, claiming moveLineID.
func (s *Service) DocumentLinesForMoveLine(ctx context.Context, moveLineID id.ID) ([]*payment_document.DocumentLine, error) {
	return s.documents.LinesForMoveLines(ctx, []id.ID{moveLineID}, nil)
}

// PendingOnReceivables is the part of an invoice total not yet put on a
// payment order or a payment document. Paid invoices and other moves yield zero.
func (s *Service) PendingOnReceivables(ctx context.Context, moveID id.ID) (types.Money, error) {
	m, err := s.ledger.Move(ctx, moveID)
	if err != nil {
		return types.Zero(), err
	}
	if !m.Kind.IsInvoice() || m.PaymentState == ledger.Paid {
		return types.Zero(), nil
	}

	var (
		accountType catalog.AccountType
		sign        types.Money
	)
	switch m.Kind {
	case ledger.KindInInvoice:
		accountType, sign = catalog.AccountPayable, types.NewMoneyFromInt(1)
	case ledger.KindOutInvoice:
		accountType, sign = catalog.AccountReceivable, types.NewMoneyFromInt(-1)
	default:
		return m.AmountTotalSigned, nil
	}

	amount := m.AmountTotalSigned
	for _, l := range m.Lines {
		account, err := s.catalog.Account(ctx, l.AccountID)
		if err != nil {
			return types.Zero(), err
		}
		if account.Type != accountType {
			continue
		}

		payLines, err := s.orders.PaymentLinesForMoveLines(ctx, []id.ID{l.ID})
		if err != nil {
			return types.Zero(), err
		}
		if len(payLines) > 0 {
			claimed := types.Sum(payLines, func(pl *payment_order.PaymentLine) types.Money { return pl.AmountCurrency })
			amount = amount.Add(claimed.Mul(sign))
			continue
		}
		docLines, err := s.documents.LinesForMoveLines(ctx, []id.ID{l.ID}, nil)
		if err != nil {
			return types.Zero(), err
		}
		claimed := types.Sum(docLines, func(dl *payment_document.DocumentLine) types.Money { return dl.AmountCurrency })
		amount = amount.Add(claimed.Mul(sign))
	}
	return amount, nil
}

// StatementLine is one bank statement entry to book.
type StatementLine struct {
	JournalID id.ID
	Date      time.Time
	Ref       string
	PartnerID *id.ID

	// Amount is positive for money received and negative for money paid.
	Amount types.Money
}

// Counterpart is one side of the statement booking.
type Counterpart struct {
	Name      string
	AccountID id.ID
	PartnerID *id.ID

	// Amount is credited when positive and debited when negative.
	Amount types.Money

	// MoveLineID, when set, is reconciled with the booked counterpart.
	MoveLineID *id.ID

	// OrderID advances every document of the order; DocumentID advances one document.
	OrderID    *id.ID
	DocumentID *id.ID
}

// ProcessStatementReconciliation advances the documents named by the
// counterparts, then books and posts the statement move.
func (s *Service) ProcessStatementReconciliation(ctx context.Context, st StatementLine, counterparts []Counterpart) (*ledger.Move, error) {
	if len(counterparts) == 0 {
		return nil, apperror.NewValidation("at least one counterpart is required")
	}
	var move *ledger.Move
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, cp := range counterparts {
			if err := s.advance(ctx, cp); err != nil {
				return err
			}
		}

		journal, err := s.catalog.Journal(ctx, st.JournalID)
		if err != nil {
			return err
		}
		if !id.IsSet(journal.DefaultDebitAccountID) {
			return apperror.NewUserError(fmt.Sprintf(
				"Missing default debit account on journal '%s'.", journal.DisplayName()))
		}

		move = ledger.NewMove(st.JournalID, st.Date, st.Ref)
		move.PartnerID = st.PartnerID
		bank := &ledger.MoveLine{
			Name:      st.Ref,
			AccountID: *journal.DefaultDebitAccountID,
			PartnerID: st.PartnerID,
		}
		if st.Amount.IsNegative() {
			bank.Credit = st.Amount.Neg()
		} else {
			bank.Debit = st.Amount
		}
		move.AddLine(bank)

		booked := make([]*ledger.MoveLine, len(counterparts))
		for i, cp := range counterparts {
			l := &ledger.MoveLine{
				Name:      cp.Name,
				AccountID: cp.AccountID,
				PartnerID: cp.PartnerID,
			}
			if cp.Amount.IsNegative() {
				l.Debit = cp.Amount.Neg()
			} else {
				l.Credit = cp.Amount
			}
			booked[i] = move.AddLine(l)
		}

		if err := s.ledger.CreateMove(ctx, move); err != nil {
			return err
		}
		if err := s.ledger.Post(ctx, move.ID); err != nil {
			return err
		}
		for i, cp := range counterparts {
			if cp.MoveLineID == nil {
				continue
			}
			if _, err := s.ledger.Reconcile(ctx, []id.ID{*cp.MoveLineID, booked[i].ID}); err != nil {
				return fmt.Errorf("reconcile counterpart %q: %w", cp.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "bank statement line booked", "move_id", move.ID, "counterparts", len(counterparts))
	return move, nil
}

func (s *Service) advance(ctx context.Context, cp Counterpart) error {
	var docs []*payment_document.PaymentDocument
	switch {
	case cp.OrderID != nil:
		var err error
		docs, err = s.documents.Find(ctx, payment_document.ListFilter{PaymentOrderID: cp.OrderID})
		if err != nil {
			return err
		}
	case cp.DocumentID != nil:
		doc, err := s.documents.GetByID(ctx, *cp.DocumentID)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	default:
		return nil
	}

	for _, d := range docs {
		if d.State != payment_document.StateOpen && d.State != payment_document.StateAdvanced {
			logger.Debug(ctx, "document not advanced by statement", "document_id", d.ID, "state", d.State)
			continue
		}
		if _, err := s.documents.Open2Advanced(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}
