package expiration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/domain/ledger"
	"paydocs/pkg/logger"
)

// RunDocuments settles open and advanced documents due on or before today:
// it books the expiration move, marks the document paid and reconciles every
// originating move line with its transit line.
func (s *Scheduler) RunDocuments(ctx context.Context, today time.Time) (Result, error) {
	var res Result
	docs, err := s.documents.Find(ctx, payment_document.ListFilter{
		States: []payment_document.State{payment_document.StateAdvanced, payment_document.StateOpen},
		DueTo:  &today,
	})
	if err != nil {
		return res, fmt.Errorf("find documents: %w", err)
	}

	var errs []error
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		expired, err := s.expireDocument(ctx, d.ID, today)
		switch {
		case err != nil:
			logger.Error(ctx, "document expiration failed", "document_id", d.ID, "name", d.Name, "error", err)
			errs = append(errs, fmt.Errorf("document %s: %w", d.Name, err))
			s.addItems(JobDocuments, "failed", 1)
		case expired:
			res.Processed++
			s.addItems(JobDocuments, "paid", 1)
		default:
			res.Skipped++
			s.addItems(JobDocuments, "skipped", 1)
		}
	}
	return res, errors.Join(errs...)
}

func (s *Scheduler) expireDocument(ctx context.Context, docID id.ID, today time.Time) (bool, error) {
	ctx = logger.WithDocument(ctx, docID)
	var expired bool
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.documents.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if !doc.IsActive() || doc.State == payment_document.StateDraft {
			return nil
		}
		mode, err := s.catalog.PaymentMode(ctx, doc.PaymentModeID)
		if err != nil {
			return err
		}

		moves, err := s.documents.Moves(ctx, doc.ID)
		if err != nil {
			return err
		}
		if len(moves) == 0 {
			logger.Warn(ctx, "document has no generated move, expiration skipped")
			return nil
		}
		move, err := s.prepareExpirationMove(ctx, doc, moves, today)
		if err != nil {
			if apperror.IsUserError(err) {
				logger.Warn(ctx, "expiration accounts unresolved, skipped", "error", err)
				return nil
			}
			return err
		}

		if err := s.ledger.CreateMove(ctx, move); err != nil {
			return err
		}
		if _, err := s.documents.MarkExpired(ctx, doc.ID, move.ID); err != nil {
			return err
		}
		if mode.PostMove {
			if err := s.ledger.Post(ctx, move.ID); err != nil {
				return err
			}
		}
		if err := s.reconcileTransitLines(ctx, doc, moves); err != nil {
			return err
		}

		expired = true
		logger.Info(ctx, "payment document expired",
			"expiration_move_id", move.ID,
			"posted", mode.PostMove)
		return nil
	})
	return expired, err
}

// prepareExpirationMove books, per generated move, its totals from the due
// move account to the offsetting account.
func (s *Scheduler) prepareExpirationMove(ctx context.Context, doc *payment_document.PaymentDocument, moves []*ledger.Move, today time.Time) (*ledger.Move, error) {
	if !id.IsSet(doc.DocumentDueMoveAccountID) {
		return nil, apperror.NewUserError(fmt.Sprintf("Missing due move account on payment document %s.", doc.Name))
	}
	if !id.IsSet(doc.ExpirationMoveJournalID) {
		return nil, apperror.NewUserError(fmt.Sprintf("Missing expiration journal on payment document %s.", doc.Name))
	}
	creditAccountID, err := s.creditAccount(ctx, doc)
	if err != nil {
		return nil, err
	}

	ref := doc.ExpirationRef()
	move := ledger.NewMove(*doc.ExpirationMoveJournalID, today, ref)
	move.PartnerID = id.Ptr(doc.PartnerID)

	for _, m := range moves {
		debit := &ledger.MoveLine{
			Name:      ref,
			PartnerID: id.Ptr(doc.PartnerID),
			AccountID: *doc.DocumentDueMoveAccountID,
			Debit:     m.TotalDebit(),
		}
		credit := &ledger.MoveLine{
			Name:      ref,
			PartnerID: id.Ptr(doc.PartnerID),
			AccountID: creditAccountID,
			Credit:    m.TotalCredit(),
		}
		// Foreign amounts follow the generated line booked on the credit account.
		for _, l := range m.Lines {
			if l.AccountID == creditAccountID && l.Currency != "" {
				debit.Currency, credit.Currency = l.Currency, l.Currency
				debit.AmountCurrency = l.AmountCurrency.Abs()
				credit.AmountCurrency = l.AmountCurrency.Abs().Neg()
				break
			}
		}
		move.AddLine(debit)
		move.AddLine(credit)
	}
	return move, nil
}

// creditAccount is the offsetting account of the order the document was
// imported into, or of the document's own mode.
func (s *Scheduler) creditAccount(ctx context.Context, doc *payment_document.PaymentDocument) (id.ID, error) {
	if id.IsSet(doc.PaymentOrderID) {
		o, err := s.orders.GetByID(ctx, *doc.PaymentOrderID)
		if err != nil {
			return id.Nil(), err
		}
		return s.orderOffsettingAccount(ctx, o)
	}
	mode, err := s.catalog.PaymentMode(ctx, doc.PaymentModeID)
	if err != nil {
		return id.Nil(), err
	}
	return s.documents.OffsettingAccount(ctx, doc, mode)
}

func (s *Scheduler) orderOffsettingAccount(ctx context.Context, o *payment_order.PaymentOrder) (id.ID, error) {
	mode, err := s.catalog.PaymentMode(ctx, o.PaymentModeID)
	if err != nil {
		return id.Nil(), err
	}
	if mode.OffsettingAccount == catalog.OffsetTransferAccount {
		if !id.IsSet(mode.TransferAccountID) {
			return id.Nil(), apperror.NewUserError(fmt.Sprintf(
				"Missing transfer account on payment mode '%s'.", mode.Name))
		}
		return *mode.TransferAccountID, nil
	}
	if !id.IsSet(o.JournalID) {
		return id.Nil(), apperror.NewUserError(fmt.Sprintf("Missing Journal on payment order %s.", o.Name))
	}
	journal, err := s.catalog.Journal(ctx, *o.JournalID)
	if err != nil {
		return id.Nil(), err
	}
	if !id.IsSet(journal.DefaultDebitAccountID) {
		return id.Nil(), apperror.NewUserError(fmt.Sprintf(
			"Missing default debit account on journal '%s'.", journal.DisplayName()))
	}
	return *journal.DefaultDebitAccountID, nil
}

// reconcileTransitLines matches each line's originating move line with the
// single generated line that carries the document line.
func (s *Scheduler) reconcileTransitLines(ctx context.Context, doc *payment_document.PaymentDocument, moves []*ledger.Move) error {
	generated := ledger.AllLines(moves)
	for _, dl := range doc.Lines {
		if dl.MoveLineID == nil {
			continue
		}
		var transit []*ledger.MoveLine
		for _, ml := range generated {
			if id.Equal(ml.DocumentLineID, &dl.ID) {
				transit = append(transit, ml)
			}
		}
		if len(transit) != 1 {
			return apperror.NewIntegrity(fmt.Sprintf(
				"payment document %s: line %s has %d transit lines, expected exactly one",
				doc.Name, dl.ID, len(transit))).
				WithDetail("document_id", doc.ID.String()).
				WithDetail("document_line_id", dl.ID.String())
		}
		if transit[0].Reconciled {
			continue
		}

		origin, err := s.ledger.Lines(ctx, ledger.LineFilter{IDs: []id.ID{*dl.MoveLineID}})
		if err != nil {
			return err
		}
		if len(origin) == 0 {
			return apperror.NewNotFound("move_line", dl.MoveLineID.String())
		}
		if origin[0].Reconciled {
			return apperror.NewIntegrity(fmt.Sprintf(
				"payment document %s: originating line %s is already reconciled",
				doc.Name, origin[0].ID)).
				WithDetail("document_id", doc.ID.String()).
				WithDetail("move_line_id", origin[0].ID.String())
		}
		if _, err := s.ledger.Reconcile(ctx, []id.ID{origin[0].ID, transit[0].ID}); err != nil {
			return fmt.Errorf("reconcile document line %s: %w", dl.ID, err)
		}
	}
	return nil
}
