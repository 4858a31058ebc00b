package memory

import (
	"context"
	"slices"
	"strings"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain/ledger"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a ledger repository over store.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

var _ ledger.Repository = (*LedgerRepo)(nil)

func (r *LedgerRepo) CreateMove(ctx context.Context, m *ledger.Move) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.moves[m.ID]; ok {
			return apperror.NewDuplicate("move", "id", m.ID.String())
		}
		st.moves[m.ID] = copyMove(m)
		for _, l := range m.Lines {
			st.moveLines[l.ID] = copyOf(l)
		}
		return nil
	})
}

func (r *LedgerRepo) UpdateMove(ctx context.Context, m *ledger.Move) error {
	return r.store.write(func(st *state) error {
		cur, ok := st.moves[m.ID]
		if !ok {
			return apperror.NewNotFound("move", m.ID.String())
		}
		if cur.Version != m.Version-1 {
			return apperror.NewConcurrentModification("move", m.ID.String())
		}
		st.moves[m.ID] = copyMove(m)
		return nil
	})
}

func (r *LedgerRepo) DeleteMove(ctx context.Context, moveID id.ID) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.moves[moveID]; !ok {
			return apperror.NewNotFound("move", moveID.String())
		}
		delete(st.moves, moveID)
		for lid, l := range st.moveLines {
			if l.MoveID == moveID {
				delete(st.moveLines, lid)
			}
		}
		return nil
	})
}

func (r *LedgerRepo) GetMove(ctx context.Context, moveID id.ID) (*ledger.Move, error) {
	moves, err := r.ListMoves(ctx, ledger.MoveFilter{IDs: []id.ID{moveID}})
	if err != nil {
		return nil, err
	}
	if len(moves) == 0 {
		return nil, apperror.NewNotFound("move", moveID.String())
	}
	return moves[0], nil
}

func (r *LedgerRepo) ListMoves(ctx context.Context, f ledger.MoveFilter) ([]*ledger.Move, error) {
	var out []*ledger.Move
	r.store.read(func(st *state) {
		for _, m := range st.moves {
			if !matchMove(m, f) {
				continue
			}
			c := copyMove(m)
			for _, l := range st.moveLines {
				if l.MoveID == m.ID {
					c.Lines = append(c.Lines, copyOf(l))
				}
			}
			sortLines(c.Lines)
			out = append(out, c)
		}
	})
	slices.SortFunc(out, func(a, b *ledger.Move) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func matchMove(m *ledger.Move, f ledger.MoveFilter) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, m.ID) {
		return false
	}
	if f.PaymentDocumentID != nil && !id.Equal(m.PaymentDocumentID, f.PaymentDocumentID) {
		return false
	}
	if f.PaymentOrderID != nil && !id.Equal(m.PaymentOrderID, f.PaymentOrderID) {
		return false
	}
	if len(f.States) > 0 && !slices.Contains(f.States, m.State) {
		return false
	}
	return true
}

func (r *LedgerRepo) ListLines(ctx context.Context, f ledger.LineFilter) ([]*ledger.MoveLine, error) {
	var out []*ledger.MoveLine
	r.store.read(func(st *state) {
		for _, l := range st.moveLines {
			if matchLine(st, l, f) {
				out = append(out, copyOf(l))
			}
		}
	})
	sortLines(out)
	return out, nil
}

func matchLine(st *state, l *ledger.MoveLine, f ledger.LineFilter) bool {
	switch {
	case len(f.IDs) > 0 && !slices.Contains(f.IDs, l.ID):
		return false
	case len(f.MoveIDs) > 0 && !slices.Contains(f.MoveIDs, l.MoveID):
		return false
	case len(f.AccountIDs) > 0 && !slices.Contains(f.AccountIDs, l.AccountID):
		return false
	case len(f.DocumentLineIDs) > 0 && (l.DocumentLineID == nil || !slices.Contains(f.DocumentLineIDs, *l.DocumentLineID)):
		return false
	case len(f.BankPaymentLineIDs) > 0 && (l.BankPaymentLineID == nil || !slices.Contains(f.BankPaymentLineIDs, *l.BankPaymentLineID)):
		return false
	case f.PartnerID != nil && !id.Equal(l.PartnerID, f.PartnerID):
		return false
	case f.MaturityTo != nil && l.DateMaturity != nil && l.DateMaturity.After(*f.MaturityTo):
		return false
	case f.OnlyUnreconciled && l.Reconciled:
		return false
	}
	if f.OnlyPosted {
		m, ok := st.moves[l.MoveID]
		if !ok || m.State != ledger.MovePosted {
			return false
		}
	}
	return true
}

// sortLines orders by maturity, lines without one last, then by ID.
func sortLines(lines []*ledger.MoveLine) {
	slices.SortFunc(lines, func(a, b *ledger.MoveLine) int {
		switch {
		case a.DateMaturity != nil && b.DateMaturity != nil:
			if c := a.DateMaturity.Compare(*b.DateMaturity); c != 0 {
				return c
			}
		case a.DateMaturity != nil:
			return -1
		case b.DateMaturity != nil:
			return 1
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

func (r *LedgerRepo) UpdateLines(ctx context.Context, lines []*ledger.MoveLine) error {
	return r.store.write(func(st *state) error {
		for _, l := range lines {
			cur, ok := st.moveLines[l.ID]
			if !ok {
				return apperror.NewNotFound("move_line", l.ID.String())
			}
			cur.AmountResidual = l.AmountResidual
			cur.AmountResidualCurrency = l.AmountResidualCurrency
			cur.Reconciled = l.Reconciled
			cur.ReconcileID = l.ReconcileID
		}
		return nil
	})
}
