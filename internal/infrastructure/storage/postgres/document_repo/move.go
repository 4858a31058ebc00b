package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain/ledger"
	"paydocs/internal/infrastructure/storage/postgres"
)

// MoveRepo implements ledger.Repository.
type MoveRepo struct {
	*BaseDocumentRepo[*ledger.Move]
	lines *childTable[ledger.MoveLine]
	batch *postgres.BatchExecutor
}

var _ ledger.Repository = (*MoveRepo)(nil)

// NewMoveRepo creates a journal entry repository.
func NewMoveRepo(txm *postgres.TxManager) *MoveRepo {
	return &MoveRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm, "moves", "move", "date",
			postgres.ExtractDBColumns[ledger.Move](),
			func() *ledger.Move { return &ledger.Move{} },
		),
		lines: newChildTable[ledger.MoveLine](txm, "move_lines", "move_id", "date_maturity ASC NULLS LAST", "id"),
		batch: postgres.NewBatchExecutor(txm),
	}
}

func (r *MoveRepo) CreateMove(ctx context.Context, m *ledger.Move) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.Create(ctx, m); err != nil {
			return err
		}
		return r.lines.Insert(ctx, m.Lines, func(l *ledger.MoveLine) { l.MoveID = m.ID })
	})
}

func (r *MoveRepo) UpdateMove(ctx context.Context, m *ledger.Move) error {
	return r.Update(ctx, m)
}

func (r *MoveRepo) DeleteMove(ctx context.Context, moveID id.ID) error {
	return r.Delete(ctx, moveID)
}

func (r *MoveRepo) GetMove(ctx context.Context, moveID id.ID) (*ledger.Move, error) {
	m, err := r.GetByID(ctx, moveID)
	if err != nil {
		return nil, err
	}
	if m.Lines, err = r.lines.Select(ctx, squirrel.Eq{"move_id": moveID}); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMoves loads the headers, then all their lines in one query.
func (r *MoveRepo) ListMoves(ctx context.Context, f ledger.MoveFilter) ([]*ledger.Move, error) {
	where := squirrel.And{}
	if len(f.IDs) > 0 {
		where = append(where, squirrel.Eq{"id": f.IDs})
	}
	if f.PaymentDocumentID != nil {
		where = append(where, squirrel.Eq{"payment_document_id": *f.PaymentDocumentID})
	}
	if f.PaymentOrderID != nil {
		where = append(where, squirrel.Eq{"payment_order_id": *f.PaymentOrderID})
	}
	if len(f.States) > 0 {
		where = append(where, squirrel.Eq{"state": stateNames(f.States)})
	}

	sql, args, err := r.baseSelect().
		Where(where).
		OrderBy("date", "created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var moves []*ledger.Move
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &moves, sql, args...); err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	if len(moves) == 0 {
		return moves, nil
	}

	ids := make([]id.ID, len(moves))
	byID := make(map[id.ID]*ledger.Move, len(moves))
	for i, m := range moves {
		ids[i] = m.ID
		byID[m.ID] = m
	}
	lines, err := r.lines.Select(ctx, squirrel.Eq{"move_id": ids})
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		byID[l.MoveID].Lines = append(byID[l.MoveID].Lines, l)
	}
	return moves, nil
}

func (r *MoveRepo) ListLines(ctx context.Context, f ledger.LineFilter) ([]*ledger.MoveLine, error) {
	where := squirrel.And{}
	if len(f.IDs) > 0 {
		where = append(where, squirrel.Eq{"id": f.IDs})
	}
	if len(f.MoveIDs) > 0 {
		where = append(where, squirrel.Eq{"move_id": f.MoveIDs})
	}
	if len(f.AccountIDs) > 0 {
		where = append(where, squirrel.Eq{"account_id": f.AccountIDs})
	}
	if len(f.DocumentLineIDs) > 0 {
		where = append(where, squirrel.Eq{"document_line_id": f.DocumentLineIDs})
	}
	if len(f.BankPaymentLineIDs) > 0 {
		where = append(where, squirrel.Eq{"bank_payment_line_id": f.BankPaymentLineIDs})
	}
	if f.PartnerID != nil {
		where = append(where, squirrel.Eq{"partner_id": *f.PartnerID})
	}
	if f.MaturityTo != nil {
		where = append(where, squirrel.Or{
			squirrel.Eq{"date_maturity": nil},
			squirrel.LtOrEq{"date_maturity": *f.MaturityTo},
		})
	}
	if f.OnlyUnreconciled {
		where = append(where, squirrel.Eq{"reconciled": false})
	}
	if f.OnlyPosted {
		where = append(where, squirrel.Expr("move_id IN (SELECT id FROM moves WHERE state = ?)", string(ledger.MovePosted)))
	}
	return r.lines.Select(ctx, where)
}

// UpdateLines writes the reconciliation columns of every line in one round-trip.
func (r *MoveRepo) UpdateLines(ctx context.Context, lines []*ledger.MoveLine) error {
	queries := make([]postgres.BatchQuery, 0, len(lines))
	for _, l := range lines {
		sql, args, err := postgres.Builder().
			Update("move_lines").
			Set("amount_residual", l.AmountResidual).
			Set("amount_residual_currency", l.AmountResidualCurrency).
			Set("reconciled", l.Reconciled).
			Set("reconcile_id", l.ReconcileID).
			Where(squirrel.Eq{"id": l.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build line update: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args, ExpectRows: 1})
	}

	short, err := r.batch.ExecuteBatch(ctx, queries)
	if err != nil {
		return fmt.Errorf("update move lines: %w", err)
	}
	if short >= 0 {
		return apperror.NewNotFound("move_line", lines[short].ID.String())
	}
	return nil
}
