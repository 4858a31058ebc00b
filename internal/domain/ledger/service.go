package ledger

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/core/numerator"
	"paydocs/internal/core/tx"
	"paydocs/internal/core/types"
	"paydocs/internal/domain"
	"paydocs/internal/domain/catalog"
	"paydocs/pkg/logger"
)

// NumeratorStrategy numbers posted entries without gaps.
var NumeratorStrategy = numerator.StrategyStrict

// Catalog is the reference data the ledger reads.
type Catalog interface {
	Journal(ctx context.Context, journalID id.ID) (*catalog.Journal, error)
	Account(ctx context.Context, accountID id.ID) (*catalog.Account, error)
}

// Service provides journal entry operations.
type Service struct {
	repo      Repository
	catalog   Catalog
	numerator numerator.Generator
	txManager tx.Manager
}

// NewService creates a ledger service.
func NewService(repo Repository, cat Catalog, gen numerator.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		catalog:   cat,
		numerator: gen,
		txManager: txManager,
	}
}

// CreateMove validates and stores a draft move with its lines.
func (s *Service) CreateMove(ctx context.Context, m *Move) error {
	for _, l := range m.Lines {
		if id.IsNil(l.ID) {
			l.ID = id.New()
		}
		l.MoveID = m.ID
		if l.Date.IsZero() {
			l.Date = m.Date
		}
		l.resetResidual()
	}
	if err := m.Validate(ctx); err != nil {
		return err
	}
	if m.Number == "" {
		m.Number = DraftNumber
	}
	if m.State == "" {
		m.State = MoveDraft
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.catalog.Journal(ctx, m.JournalID); err != nil {
			return err
		}
		if err := s.repo.CreateMove(ctx, m); err != nil {
			return fmt.Errorf("create move: %w", err)
		}
		logger.Debug(ctx, "move created", "move_id", m.ID, "ref", m.Ref, "lines", len(m.Lines))
		return nil
	})
}

// Post validates the move again and assigns its journal sequence number.
func (s *Service) Post(ctx context.Context, moveID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.Move(ctx, moveID)
		if err != nil {
			return err
		}
		if m.State == MovePosted {
			return nil
		}
		if m.State != MoveDraft {
			return apperror.NewInvalidState("move", string(m.State), "post")
		}
		if err := m.Validate(ctx); err != nil {
			return err
		}

		if m.Number == "" || m.Number == DraftNumber {
			journal, err := s.catalog.Journal(ctx, m.JournalID)
			if err != nil {
				return err
			}
			number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(journal.Code),
				&numerator.Options{Strategy: NumeratorStrategy}, m.Date)
			if err != nil {
				return fmt.Errorf("generate move number: %w", err)
			}
			m.Number = number
		}
		m.State = MovePosted
		m.Touch()
		if err := s.repo.UpdateMove(ctx, m); err != nil {
			return fmt.Errorf("post move: %w", err)
		}

		logger.Info(ctx, "move posted", "move_id", m.ID, "number", m.Number)
		return nil
	})
}

// Cancel moves a draft or posted entry to cancel.
func (s *Service) Cancel(ctx context.Context, moveID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.Move(ctx, moveID)
		if err != nil {
			return err
		}
		if m.State == MoveCancel {
			return nil
		}
		m.State = MoveCancel
		m.Touch()
		if err := s.repo.UpdateMove(ctx, m); err != nil {
			return fmt.Errorf("cancel move: %w", err)
		}
		return nil
	})
}

// Delete removes a draft or cancelled move that has no reconciled line.
func (s *Service) Delete(ctx context.Context, moveID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.Move(ctx, moveID)
		if err != nil {
			return err
		}
		if m.State == MovePosted {
			return apperror.NewUserError(fmt.Sprintf(
				"You cannot delete the posted journal entry %s.", m.DisplayName()))
		}
		for _, l := range m.Lines {
			if l.ReconcileID != nil {
				return apperror.NewUserError(fmt.Sprintf(
					"You cannot delete the journal entry %s: line %q is reconciled.", m.DisplayName(), l.Name))
			}
		}
		if err := s.repo.DeleteMove(ctx, moveID); err != nil {
			return fmt.Errorf("delete move: %w", err)
		}
		return nil
	})
}

// Reconcile matches lines of one account against each other and returns the
// reconcile group. A zero residual balance reconciles all lines fully;
// otherwise opposite residuals are offset in maturity order.
func (s *Service) Reconcile(ctx context.Context, lineIDs []id.ID) (id.ID, error) {
	var group id.ID
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lineIDs = id.Unique(lineIDs)
		if len(lineIDs) < 2 {
			return apperror.NewValidation("at least two lines are needed to reconcile")
		}
		lines, err := s.repo.ListLines(ctx, LineFilter{IDs: lineIDs})
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		if len(lines) != len(lineIDs) {
			return apperror.NewNotFound("move_line", lineIDs)
		}

		accountID := lines[0].AccountID
		for _, l := range lines {
			if l.AccountID != accountID {
				return apperror.NewUserError("Entries are not from the same account.")
			}
			if l.Reconciled {
				return apperror.NewUserError(fmt.Sprintf("Entry %q is already reconciled.", l.Name))
			}
		}

		group, err = s.mergeGroups(ctx, lines)
		if err != nil {
			return err
		}
		offsetResiduals(lines)
		if err := s.repo.UpdateLines(ctx, lines); err != nil {
			return fmt.Errorf("store reconciliation: %w", err)
		}
		return s.refreshPaymentState(ctx, moveIDsOf(lines))
	})
	if err != nil {
		return id.Nil(), err
	}
	return group, nil
}

// mergeGroups tags lines with the reconcile group of the first line already
// partially reconciled, or a new one. Other groups met on the way are folded
// into it so the whole chain is undone together.
func (s *Service) mergeGroups(ctx context.Context, lines []*MoveLine) (id.ID, error) {
	var group id.ID
	others := make(map[id.ID]struct{})
	for _, l := range lines {
		switch {
		case l.ReconcileID == nil:
		case id.IsNil(group):
			group = *l.ReconcileID
		case *l.ReconcileID != group:
			others[*l.ReconcileID] = struct{}{}
		}
	}
	if id.IsNil(group) {
		group = id.New()
	}

	if len(others) > 0 {
		siblings, err := s.repo.ListLines(ctx, LineFilter{AccountIDs: []id.ID{lines[0].AccountID}})
		if err != nil {
			return id.Nil(), fmt.Errorf("load reconciled lines: %w", err)
		}
		var retagged []*MoveLine
		for _, l := range siblings {
			if l.ReconcileID == nil || slices.ContainsFunc(lines, func(x *MoveLine) bool { return x.ID == l.ID }) {
				continue
			}
			if _, ok := others[*l.ReconcileID]; ok {
				l.ReconcileID = id.Ptr(group)
				retagged = append(retagged, l)
			}
		}
		if err := s.repo.UpdateLines(ctx, retagged); err != nil {
			return id.Nil(), fmt.Errorf("merge reconciliation: %w", err)
		}
	}

	for _, l := range lines {
		l.ReconcileID = id.Ptr(group)
	}
	return group, nil
}

// offsetResiduals consumes positive residuals against negative ones. The
// foreign residual of a partially consumed line shrinks in proportion.
func offsetResiduals(lines []*MoveLine) {
	before := make(map[*MoveLine]types.Money, len(lines))
	for _, l := range lines {
		before[l] = l.AmountResidual
	}

	var debits, credits []*MoveLine
	for _, l := range lines {
		switch {
		case l.AmountResidual.IsPositive():
			debits = append(debits, l)
		case l.AmountResidual.IsNegative():
			credits = append(credits, l)
		}
	}
	byMaturity := func(ls []*MoveLine) {
		sort.SliceStable(ls, func(i, j int) bool {
			return maturity(ls[i]).Before(maturity(ls[j]))
		})
	}
	byMaturity(debits)
	byMaturity(credits)

	for i, j := 0, 0; i < len(debits) && j < len(credits); {
		d, c := debits[i], credits[j]
		amount := decimalMin(d.AmountResidual, c.AmountResidual.Neg())
		d.AmountResidual = d.AmountResidual.Sub(amount)
		c.AmountResidual = c.AmountResidual.Add(amount)
		if d.AmountResidual.IsZero() {
			i++
		}
		if c.AmountResidual.IsZero() {
			j++
		}
	}

	for _, l := range lines {
		switch prev := before[l]; {
		case l.AmountResidual.IsZero():
			l.Reconciled = true
			l.AmountResidualCurrency = l.AmountResidual
		case l.Currency != "" && !l.AmountResidual.Equal(prev):
			l.AmountResidualCurrency = l.AmountResidualCurrency.
				Mul(l.AmountResidual).
				Div(prev).
				Round(2)
		}
	}
}

// RemoveMoveReconcile undoes every reconcile group touching the given lines.
func (s *Service) RemoveMoveReconcile(ctx context.Context, lineIDs []id.ID) error {
	if len(lineIDs) == 0 {
		return nil
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lines, err := s.repo.ListLines(ctx, LineFilter{IDs: id.Unique(lineIDs)})
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		groups := make(map[id.ID]struct{})
		for _, l := range lines {
			if l.ReconcileID != nil {
				groups[*l.ReconcileID] = struct{}{}
			}
		}
		if len(groups) == 0 {
			return nil
		}

		// Lines of other moves may share a group, so reload by account.
		accountIDs := make([]id.ID, 0, len(lines))
		for _, l := range lines {
			accountIDs = append(accountIDs, l.AccountID)
		}
		candidates, err := s.repo.ListLines(ctx, LineFilter{AccountIDs: id.Unique(accountIDs)})
		if err != nil {
			return fmt.Errorf("load reconciled lines: %w", err)
		}
		var touched []*MoveLine
		for _, l := range candidates {
			if l.ReconcileID == nil {
				continue
			}
			if _, ok := groups[*l.ReconcileID]; ok {
				l.resetResidual()
				touched = append(touched, l)
			}
		}
		if err := s.repo.UpdateLines(ctx, touched); err != nil {
			return fmt.Errorf("remove reconciliation: %w", err)
		}
		logger.Debug(ctx, "reconciliation removed", "groups", len(groups), "lines", len(touched))
		return s.refreshPaymentState(ctx, moveIDsOf(touched))
	})
}

// refreshPaymentState marks invoices paid once their receivable or payable
// lines carry no residual.
func (s *Service) refreshPaymentState(ctx context.Context, moveIDs []id.ID) error {
	if len(moveIDs) == 0 {
		return nil
	}
	moves, err := s.repo.ListMoves(ctx, MoveFilter{IDs: moveIDs})
	if err != nil {
		return fmt.Errorf("load moves: %w", err)
	}
	for _, m := range moves {
		if !m.Kind.IsInvoice() {
			continue
		}
		state := Paid
		for _, l := range m.Lines {
			acc, err := s.catalog.Account(ctx, l.AccountID)
			if err != nil {
				return err
			}
			if acc.Type != catalog.AccountReceivable && acc.Type != catalog.AccountPayable {
				continue
			}
			if !l.AmountResidual.IsZero() {
				state = NotPaid
				break
			}
		}
		if m.PaymentState == state {
			continue
		}
		m.PaymentState = state
		m.Touch()
		if err := s.repo.UpdateMove(ctx, m); err != nil {
			return fmt.Errorf("update payment state: %w", err)
		}
	}
	return nil
}

// Move returns a move with its lines.
func (s *Service) Move(ctx context.Context, moveID id.ID) (*Move, error) {
	m, err := s.repo.GetMove(ctx, moveID)
	if err != nil {
		return nil, domain.NormalizeGetErr("move", err, moveID.String())
	}
	return m, nil
}

// Moves lists moves matching f.
func (s *Service) Moves(ctx context.Context, f MoveFilter) ([]*Move, error) {
	moves, err := s.repo.ListMoves(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	return moves, nil
}

// Lines lists move lines matching f.
func (s *Service) Lines(ctx context.Context, f LineFilter) ([]*MoveLine, error) {
	lines, err := s.repo.ListLines(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list move lines: %w", err)
	}
	return lines, nil
}

// Line returns a single move line.
func (s *Service) Line(ctx context.Context, lineID id.ID) (*MoveLine, error) {
	lines, err := s.repo.ListLines(ctx, LineFilter{IDs: []id.ID{lineID}})
	if err != nil {
		return nil, fmt.Errorf("get move line: %w", err)
	}
	if len(lines) == 0 {
		return nil, apperror.NewNotFound("move_line", lineID.String())
	}
	return lines[0], nil
}
