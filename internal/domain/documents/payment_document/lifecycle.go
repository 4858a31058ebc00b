package payment_document

import (
	"context"
	"fmt"
	"slices"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain/audit"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/ledger"
	"paydocs/pkg/logger"
)

// transition loads a document, checks its state is one of from (any state
// when from is empty), lets mutate adjust it and stores it in state to.
func (s *Service) transition(
	ctx context.Context,
	docID id.ID,
	action string,
	from []State,
	to State,
	mutate func(ctx context.Context, doc *PaymentDocument) error,
) (*PaymentDocument, error) {
	ctx = logger.WithDocument(ctx, docID)
	var doc *PaymentDocument
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if len(from) > 0 && !slices.Contains(from, doc.State) {
			return apperror.NewInvalidState(EntityName, string(doc.State), action)
		}
		if mutate != nil {
			if err := mutate(ctx, doc); err != nil {
				return err
			}
		}

		prev := doc.State
		doc.State = to
		audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)
		doc.Touch()
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("%s: %w", action, err)
		}
		if err := s.audit.Record(ctx, audit.Transition(EntityName, doc.ID, string(prev), string(to))); err != nil {
			return err
		}
		if err := s.hooks.RunAfterTransition(ctx, doc); err != nil {
			return err
		}
		logger.Info(ctx, "payment document state changed",
			"name", doc.Name,
			"from", prev,
			"to", to)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Draft2Open validates a draft document, refreshes its total, generates its
// move when the payment mode asks for it and opens it.
func (s *Service) Draft2Open(ctx context.Context, docID id.ID) (*PaymentDocument, error) {
	return s.transition(ctx, docID, "open", []State{StateDraft}, StateOpen,
		func(ctx context.Context, doc *PaymentDocument) error {
			mode, err := s.catalog.PaymentMode(ctx, doc.PaymentModeID)
			if err != nil {
				return err
			}
			if err := s.checkOpenable(ctx, doc); err != nil {
				return err
			}
			doc.ComputeTotal()
			if err := doc.CheckSingleCurrency(); err != nil {
				return err
			}
			if mode.GenerateMove {
				if _, err := s.generateMove(ctx, doc, mode); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *Service) checkOpenable(ctx context.Context, doc *PaymentDocument) error {
	if !id.IsSet(doc.JournalID) {
		return apperror.NewUserError(fmt.Sprintf("Missing Journal on payment document %s.", doc.Name)).
			WithDetail("field", "journalId")
	}
	method, err := s.catalog.PaymentMethod(ctx, doc.PaymentMethodID)
	if err != nil {
		return err
	}
	if method.BankAccountRequired {
		journal, err := s.catalog.Journal(ctx, *doc.JournalID)
		if err != nil {
			return err
		}
		if journal.BankAccount == "" {
			return apperror.NewUserError(fmt.Sprintf("Missing bank account on journal '%s'.", journal.DisplayName())).
				WithDetail("journalId", journal.ID)
		}
	}
	if len(doc.Lines) == 0 {
		return apperror.NewUserError(fmt.Sprintf("There are no transactions on payment document %s.", doc.Name))
	}
	return nil
}

// GenerateMove creates the move that pays off the document lines.
func (s *Service) GenerateMove(ctx context.Context, docID id.ID) (*ledger.Move, error) {
	var move *ledger.Move
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if doc.State == StateCancel || doc.State == StatePaid {
			return apperror.NewInvalidState(EntityName, string(doc.State), "generate move")
		}
		mode, err := s.catalog.PaymentMode(ctx, doc.PaymentModeID)
		if err != nil {
			return err
		}
		move, err = s.generateMove(ctx, doc, mode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return move, nil
}

func (s *Service) generateMove(ctx context.Context, doc *PaymentDocument, mode *catalog.PaymentMode) (*ledger.Move, error) {
	move, err := s.prepareMove(ctx, doc, mode)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.CreateMove(ctx, move); err != nil {
		return nil, err
	}
	if mode.PostMove {
		if err := s.ledger.Post(ctx, move.ID); err != nil {
			return nil, err
		}
	}
	logger.Info(ctx, "payment document move generated",
		"document_id", doc.ID,
		"move_id", move.ID,
		"posted", mode.PostMove)
	return move, nil
}

// PrepareMove builds, without storing it, the move GenerateMove would create.
func (s *Service) PrepareMove(ctx context.Context, docID id.ID) (*ledger.Move, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	mode, err := s.catalog.PaymentMode(ctx, doc.PaymentModeID)
	if err != nil {
		return nil, err
	}
	return s.prepareMove(ctx, doc, mode)
}

// prepareMove builds one counterpart line per document line on the partner
// side and one aggregate offsetting line.
func (s *Service) prepareMove(ctx context.Context, doc *PaymentDocument, mode *catalog.PaymentMode) (*ledger.Move, error) {
	if len(doc.Lines) == 0 {
		return nil, apperror.NewUserError(fmt.Sprintf("There are no transactions on payment document %s.", doc.Name))
	}
	if err := doc.CheckSingleCurrency(); err != nil {
		return nil, err
	}

	var journalID id.ID
	switch mode.OffsettingAccount {
	case catalog.OffsetTransferAccount:
		journalID = id.Deref(mode.TransferJournalID)
	default:
		journalID = id.Deref(doc.JournalID)
	}
	if id.IsNil(journalID) {
		return nil, apperror.NewUserError(fmt.Sprintf("Missing Journal on payment document %s.", doc.Name))
	}

	move := ledger.NewMove(journalID, s.today(), doc.MoveRef())
	move.PaymentDocumentID = id.Ptr(doc.ID)
	move.PartnerID = id.Ptr(doc.PartnerID)

	inbound := doc.PaymentType == catalog.PaymentTypeInbound
	for _, dl := range doc.Lines {
		ml, err := s.counterpartLine(ctx, doc, dl, inbound)
		if err != nil {
			return nil, err
		}
		move.AddLine(ml)
	}

	offset, err := s.offsettingLine(ctx, doc, mode, inbound)
	if err != nil {
		return nil, err
	}
	move.AddLine(offset)

	return move, nil
}

func (s *Service) counterpartLine(ctx context.Context, doc *PaymentDocument, dl *DocumentLine, inbound bool) (*ledger.MoveLine, error) {
	var (
		accountID  id.ID
		originName string
	)
	if dl.MoveLineID != nil {
		lines, err := s.ledger.Lines(ctx, ledger.LineFilter{IDs: []id.ID{*dl.MoveLineID}})
		if err != nil {
			return nil, err
		}
		if len(lines) == 0 {
			return nil, apperror.NewNotFound("move_line", dl.MoveLineID.String())
		}
		accountID = lines[0].AccountID
		originName = lines[0].Name
	} else {
		partner, err := s.catalog.Partner(ctx, dl.PartnerID)
		if err != nil {
			return nil, err
		}
		accountID = id.Deref(partner.AccountFor(doc.PaymentType))
		if id.IsNil(accountID) {
			return nil, apperror.NewUserError(fmt.Sprintf(
				"Missing %s account on partner '%s'.", partnerAccountKind(doc.PaymentType), partner.Name))
		}
	}

	name := fmt.Sprintf("Debit document line %s", originName)
	if !inbound {
		name = fmt.Sprintf("Payment document line %s", originName)
	}
	ml := &ledger.MoveLine{
		Name:           name,
		PartnerID:      id.Ptr(dl.PartnerID),
		DocumentLineID: id.Ptr(dl.ID),
		AccountID:      accountID,
	}
	if inbound {
		ml.Credit = dl.AmountCompanyCurrency
	} else {
		ml.Debit = dl.AmountCompanyCurrency
	}
	if cur := dl.EffectiveCurrency(doc.CompanyCurrency); cur.IsForeign(doc.CompanyCurrency) {
		ml.Currency = cur
		ml.AmountCurrency = dl.AmountCurrency
		if inbound {
			ml.AmountCurrency = ml.AmountCurrency.Neg()
		}
	}
	return ml, nil
}

func (s *Service) offsettingLine(ctx context.Context, doc *PaymentDocument, mode *catalog.PaymentMode, inbound bool) (*ledger.MoveLine, error) {
	accountID, err := s.OffsettingAccount(ctx, doc, mode)
	if err != nil {
		return nil, err
	}

	ml := &ledger.MoveLine{
		Name:      doc.MoveRef(),
		PartnerID: id.Ptr(doc.PartnerID),
		AccountID: accountID,
	}
	if mode.OffsettingAccount == catalog.OffsetBankAccount {
		ml.Date = doc.Date
	} else {
		maturity := doc.Date
		if doc.DatePrefered == catalog.DatePreferedDue && doc.DateDue != nil {
			maturity = *doc.DateDue
		}
		ml.DateMaturity = &maturity
	}

	total := doc.TotalCompanyCurrency
	if inbound {
		ml.Debit = total
	} else {
		ml.Credit = total
	}
	if cur := doc.Lines[0].EffectiveCurrency(doc.CompanyCurrency); cur.IsForeign(doc.CompanyCurrency) {
		ml.Currency = cur
		ml.AmountCurrency = doc.TotalCurrency()
		if !inbound {
			ml.AmountCurrency = ml.AmountCurrency.Neg()
		}
	}
	return ml, nil
}

// OffsettingAccount resolves the account of the aggregate line: the journal's
// default debit account, or the mode's transfer account.
func (s *Service) OffsettingAccount(ctx context.Context, doc *PaymentDocument, mode *catalog.PaymentMode) (id.ID, error) {
	if mode.OffsettingAccount == catalog.OffsetTransferAccount {
		if !id.IsSet(mode.TransferAccountID) {
			return id.Nil(), apperror.NewUserError(fmt.Sprintf(
				"Missing transfer account on payment mode '%s'.", mode.Name))
		}
		return *mode.TransferAccountID, nil
	}
	if !id.IsSet(doc.JournalID) {
		return id.Nil(), apperror.NewUserError(fmt.Sprintf("Missing Journal on payment document %s.", doc.Name))
	}
	journal, err := s.catalog.Journal(ctx, *doc.JournalID)
	if err != nil {
		return id.Nil(), err
	}
	if !id.IsSet(journal.DefaultDebitAccountID) {
		return id.Nil(), apperror.NewUserError(fmt.Sprintf(
			"Missing default debit account on journal '%s'.", journal.DisplayName()))
	}
	return *journal.DefaultDebitAccountID, nil
}

func partnerAccountKind(t catalog.PaymentType) string {
	if t == catalog.PaymentTypeInbound {
		return "receivable"
	}
	return "payable"
}

// Open2Advanced marks a document as imported into a payment order.
func (s *Service) Open2Advanced(ctx context.Context, docID id.ID) (*PaymentDocument, error) {
	return s.transition(ctx, docID, "advance", []State{StateOpen, StateAdvanced}, StateAdvanced, nil)
}

// AttachToOrder links an open document to a payment order and advances it.
func (s *Service) AttachToOrder(ctx context.Context, docID, orderID id.ID) (*PaymentDocument, error) {
	return s.transition(ctx, docID, "attach", []State{StateOpen}, StateAdvanced,
		func(ctx context.Context, doc *PaymentDocument) error {
			if id.IsSet(doc.PaymentOrderID) && *doc.PaymentOrderID != orderID {
				return apperror.NewUserError(fmt.Sprintf(
					"Payment document %s already belongs to another payment order.", doc.Name))
			}
			doc.PaymentOrderID = id.Ptr(orderID)
			return nil
		})
}

// ActionPaid closes a document as paid today.
func (s *Service) ActionPaid(ctx context.Context, docID id.ID) (*PaymentDocument, error) {
	return s.transition(ctx, docID, "mark paid", []State{StateOpen, StateAdvanced, StateUnpaid}, StatePaid,
		func(ctx context.Context, doc *PaymentDocument) error {
			today := s.today()
			doc.DatePaid = &today
			return nil
		})
}

// MarkExpired closes a document as paid and records its expiration move.
func (s *Service) MarkExpired(ctx context.Context, docID, expirationMoveID id.ID) (*PaymentDocument, error) {
	return s.transition(ctx, docID, "expire", []State{StateOpen, StateAdvanced}, StatePaid,
		func(ctx context.Context, doc *PaymentDocument) error {
			today := s.today()
			doc.DatePaid = &today
			doc.ExpirationMoveID = id.Ptr(expirationMoveID)
			return nil
		})
}

// ActionUnpaid marks a document as returned unpaid.
func (s *Service) ActionUnpaid(ctx context.Context, docID id.ID) (*PaymentDocument, error) {
	return s.transition(ctx, docID, "mark unpaid", []State{StateOpen, StateAdvanced}, StateUnpaid, nil)
}

// ActionCancel voids the generated moves and cancels the document.
func (s *Service) ActionCancel(ctx context.Context, docID id.ID) (*PaymentDocument, error) {
	return s.ActionPaidCancel(ctx, docID)
}

// ActionPaidCancel cancels every generated move, removes its reconciliations,
// deletes it and cancels the document. Cancelled documents are left as is.
func (s *Service) ActionPaidCancel(ctx context.Context, docID id.ID) (*PaymentDocument, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.State == StateCancel {
		return doc, nil
	}
	return s.transition(ctx, docID, "cancel", nil, StateCancel,
		func(ctx context.Context, doc *PaymentDocument) error {
			moves, err := s.Moves(ctx, doc.ID)
			if err != nil {
				return err
			}
			if id.IsSet(doc.ExpirationMoveID) {
				m, err := s.ledger.Move(ctx, *doc.ExpirationMoveID)
				switch {
				case apperror.IsNotFound(err):
				case err != nil:
					return err
				default:
					moves = append(moves, m)
				}
			}
			for _, m := range moves {
				if err := s.voidMove(ctx, m); err != nil {
					return err
				}
				logger.Info(ctx, "payment document move voided", "move_id", m.ID)
			}
			doc.ExpirationMoveID = nil
			return nil
		})
}

func (s *Service) voidMove(ctx context.Context, m *ledger.Move) error {
	if err := s.ledger.Cancel(ctx, m.ID); err != nil {
		return err
	}
	if err := s.ledger.RemoveMoveReconcile(ctx, ledger.LineIDs(m.Lines)); err != nil {
		return err
	}
	return s.ledger.Delete(ctx, m.ID)
}

// Cancel2Draft reopens a cancelled document for editing. Voided moves are not restored.
func (s *Service) Cancel2Draft(ctx context.Context, docID id.ID) (*PaymentDocument, error) {
	return s.transition(ctx, docID, "reset to draft", []State{StateCancel}, StateDraft,
		func(ctx context.Context, doc *PaymentDocument) error {
			if err := s.checkUnclaimed(ctx, doc.ID, doc.MoveLineIDs()); err != nil {
				return err
			}
			doc.DatePaid = nil
			return nil
		})
}
