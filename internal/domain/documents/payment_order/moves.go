package payment_order

import (
	"context"
	"fmt"
	"time"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/ledger"
	"paydocs/pkg/logger"
)

// generateMoves creates one move per bank line execution date.
func (s *Service) generateMoves(ctx context.Context, o *PaymentOrder, mode *catalog.PaymentMode) error {
	var (
		dates  []time.Time
		groups = make(map[time.Time][]*BankPaymentLine)
	)
	for _, b := range o.BankLines {
		if _, ok := groups[b.Date]; !ok {
			dates = append(dates, b.Date)
		}
		groups[b.Date] = append(groups[b.Date], b)
	}

	for _, date := range dates {
		blines := groups[date]
		move, err := s.prepareMove(ctx, o, mode, blines)
		if err != nil {
			return err
		}
		if err := s.ledger.CreateMove(ctx, move); err != nil {
			return err
		}
		if o.DatePrefered == catalog.DatePreferedNow {
			for _, b := range blines {
				if err := s.reconcileBankLine(ctx, o, b); err != nil {
					return err
				}
			}
		}
		if mode.PostMove {
			if err := s.ledger.Post(ctx, move.ID); err != nil {
				return err
			}
		}
		logger.Info(ctx, "payment order move generated",
			"move_id", move.ID,
			"bank_lines", len(blines))
	}
	return nil
}

// prepareMove builds a transit line per bank line and one offsetting line.
func (s *Service) prepareMove(ctx context.Context, o *PaymentOrder, mode *catalog.PaymentMode, blines []*BankPaymentLine) (*ledger.Move, error) {
	var journalID id.ID
	if mode.OffsettingAccount == catalog.OffsetTransferAccount {
		journalID = id.Deref(mode.TransferJournalID)
	} else {
		journalID = id.Deref(o.JournalID)
	}
	if id.IsNil(journalID) {
		return nil, apperror.NewUserError(fmt.Sprintf("Missing Journal on payment order %s.", o.Name))
	}

	ref := o.MoveRef()
	if len(blines) == 1 {
		ref = fmt.Sprintf("%s - %s", ref, blines[0].Name)
	}
	move := ledger.NewMove(journalID, blines[0].Date, ref)
	move.PaymentOrderID = id.Ptr(o.ID)

	inbound := o.PaymentType == catalog.PaymentTypeInbound
	total := types.Zero()
	totalCurrency := types.Zero()
	for _, b := range blines {
		ml, err := s.transitLine(ctx, o, b, inbound)
		if err != nil {
			return nil, err
		}
		move.AddLine(ml)
		total = total.Add(b.AmountCompanyCurrency)
		totalCurrency = totalCurrency.Add(b.AmountCurrency)
	}

	accountID, err := s.offsettingAccount(ctx, o, mode)
	if err != nil {
		return nil, err
	}
	offset := &ledger.MoveLine{
		Name:      ref,
		AccountID: accountID,
	}
	if len(blines) == 1 {
		offset.PartnerID = id.Ptr(blines[0].PartnerID)
	}
	if mode.OffsettingAccount == catalog.OffsetBankAccount {
		offset.Date = blines[0].Date
	} else {
		maturity := blines[0].Date
		offset.DateMaturity = &maturity
	}
	if inbound {
		offset.Debit = total
	} else {
		offset.Credit = total
	}
	if cur := blines[0].Currency; cur.IsForeign(o.CompanyCurrency) {
		offset.Currency = cur
		offset.AmountCurrency = totalCurrency
		if !inbound {
			offset.AmountCurrency = offset.AmountCurrency.Neg()
		}
	}
	move.AddLine(offset)
	return move, nil
}

// transitLine moves the bank line amount off the account of the paid lines.
func (s *Service) transitLine(ctx context.Context, o *PaymentOrder, b *BankPaymentLine, inbound bool) (*ledger.MoveLine, error) {
	accountID, err := s.bankLineAccount(ctx, o, b)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("Debit bank line %s", b.Name)
	if !inbound {
		name = fmt.Sprintf("Payment bank line %s", b.Name)
	}
	maturity := b.Date
	ml := &ledger.MoveLine{
		Name:              name,
		AccountID:         accountID,
		PartnerID:         id.Ptr(b.PartnerID),
		DateMaturity:      &maturity,
		BankPaymentLineID: id.Ptr(b.ID),
	}
	if inbound {
		ml.Credit = b.AmountCompanyCurrency
	} else {
		ml.Debit = b.AmountCompanyCurrency
	}
	if b.Currency.IsForeign(o.CompanyCurrency) {
		ml.Currency = b.Currency
		ml.AmountCurrency = b.AmountCurrency
		if inbound {
			ml.AmountCurrency = ml.AmountCurrency.Neg()
		}
	}
	return ml, nil
}

// bankLineAccount is the account of the first paid move line, or the
// partner's receivable or payable account for manual lines.
func (s *Service) bankLineAccount(ctx context.Context, o *PaymentOrder, b *BankPaymentLine) (id.ID, error) {
	for _, pl := range o.linesOf(b) {
		if pl.MoveLineID == nil {
			continue
		}
		lines, err := s.ledger.Lines(ctx, ledger.LineFilter{IDs: []id.ID{*pl.MoveLineID}})
		if err != nil {
			return id.Nil(), err
		}
		if len(lines) > 0 {
			return lines[0].AccountID, nil
		}
	}
	partner, err := s.catalog.Partner(ctx, b.PartnerID)
	if err != nil {
		return id.Nil(), err
	}
	accountID := id.Deref(partner.AccountFor(o.PaymentType))
	if id.IsNil(accountID) {
		return id.Nil(), apperror.NewUserError(fmt.Sprintf("Missing account on partner '%s'.", partner.Name))
	}
	return accountID, nil
}

func (s *Service) offsettingAccount(ctx context.Context, o *PaymentOrder, mode *catalog.PaymentMode) (id.ID, error) {
	if mode.OffsettingAccount == catalog.OffsetTransferAccount {
		if !id.IsSet(mode.TransferAccountID) {
			return id.Nil(), apperror.NewUserError(fmt.Sprintf(
				"Missing transfer account on payment mode '%s'.", mode.Name))
		}
		return *mode.TransferAccountID, nil
	}
	journal, err := s.catalog.Journal(ctx, id.Deref(o.JournalID))
	if err != nil {
		return id.Nil(), err
	}
	if !id.IsSet(journal.DefaultDebitAccountID) {
		return id.Nil(), apperror.NewUserError(fmt.Sprintf(
			"Missing default debit account on journal '%s'.", journal.DisplayName()))
	}
	return *journal.DefaultDebitAccountID, nil
}

// ReconcileBankLine matches the transit line of a bank line with the move
// lines its payment lines pay.
func (s *Service) ReconcileBankLine(ctx context.Context, orderID, bankLineID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		b := o.BankLine(bankLineID)
		if b == nil {
			return apperror.NewNotFound("bank_payment_line", bankLineID)
		}
		return s.reconcileBankLine(ctx, o, b)
	})
}

// ReconcileBankLines reconciles every bank line of o dated on or before upTo.
// A nil upTo reconciles all of them.
func (s *Service) ReconcileBankLines(ctx context.Context, o *PaymentOrder, upTo *time.Time) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, b := range o.BankLines {
			if upTo != nil && b.Date.After(*upTo) {
				continue
			}
			if err := s.reconcileBankLine(ctx, o, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) reconcileBankLine(ctx context.Context, o *PaymentOrder, b *BankPaymentLine) error {
	transit, err := s.ledger.Lines(ctx, ledger.LineFilter{
		BankPaymentLineIDs: []id.ID{b.ID},
		OnlyUnreconciled:   true,
	})
	if err != nil {
		return err
	}
	if len(transit) == 0 {
		return nil
	}

	var paidIDs []id.ID
	for _, pl := range o.linesOf(b) {
		if pl.MoveLineID != nil {
			paidIDs = append(paidIDs, *pl.MoveLineID)
		}
	}
	if len(paidIDs) == 0 {
		return nil
	}
	paid, err := s.ledger.Lines(ctx, ledger.LineFilter{IDs: paidIDs, OnlyUnreconciled: true})
	if err != nil {
		return err
	}

	for _, t := range transit {
		group := []id.ID{t.ID}
		for _, ml := range paid {
			if ml.AccountID == t.AccountID {
				group = append(group, ml.ID)
			}
		}
		if len(group) < 2 {
			continue
		}
		if _, err := s.ledger.Reconcile(ctx, group); err != nil {
			return fmt.Errorf("reconcile bank line %s: %w", b.Name, err)
		}
		logger.Debug(ctx, "bank line reconciled", "bank_line", b.Name, "lines", len(group))
	}
	return nil
}

// BankLineReconciled reports whether every move line paid by b is fully reconciled.
func (s *Service) BankLineReconciled(ctx context.Context, o *PaymentOrder, b *BankPaymentLine) (bool, error) {
	var paidIDs []id.ID
	for _, pl := range o.linesOf(b) {
		if pl.MoveLineID != nil {
			paidIDs = append(paidIDs, *pl.MoveLineID)
		}
	}
	if len(paidIDs) == 0 {
		return true, nil
	}
	lines, err := s.ledger.Lines(ctx, ledger.LineFilter{IDs: paidIDs})
	if err != nil {
		return false, err
	}
	for _, l := range lines {
		if !l.Reconciled {
			return false, nil
		}
	}
	return true, nil
}
