package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"paydocs/internal/core/id"
	"paydocs/internal/domain"
	"paydocs/internal/domain/documents/payment_document"
	"paydocs/internal/infrastructure/storage/postgres"
)

// PaymentDocumentRepo implements payment_document.Repository.
type PaymentDocumentRepo struct {
	*BaseDocumentRepo[*payment_document.PaymentDocument]
	lines *childTable[payment_document.DocumentLine]
}

var _ payment_document.Repository = (*PaymentDocumentRepo)(nil)

// NewPaymentDocumentRepo creates a payment document repository.
func NewPaymentDocumentRepo(txm *postgres.TxManager) *PaymentDocumentRepo {
	return &PaymentDocumentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm, "payment_documents", payment_document.EntityName, "name",
			postgres.ExtractDBColumns[payment_document.PaymentDocument](),
			func() *payment_document.PaymentDocument { return &payment_document.PaymentDocument{} },
		),
		lines: newChildTable[payment_document.DocumentLine](txm, "payment_document_lines", "document_id", "id"),
	}
}

func (r *PaymentDocumentRepo) GetLines(ctx context.Context, docID id.ID) ([]*payment_document.DocumentLine, error) {
	return r.lines.Select(ctx, squirrel.Eq{"document_id": docID})
}

func (r *PaymentDocumentRepo) SaveLines(ctx context.Context, docID id.ID, lines []*payment_document.DocumentLine) error {
	return r.lines.Replace(ctx, docID, lines, func(l *payment_document.DocumentLine) { l.DocumentID = docID })
}

func (r *PaymentDocumentRepo) List(ctx context.Context, filter payment_document.ListFilter) (domain.ListResult[*payment_document.PaymentDocument], error) {
	return r.BaseDocumentRepo.List(ctx, documentWhere(filter), filter.ListFilter)
}

func (r *PaymentDocumentRepo) Find(ctx context.Context, filter payment_document.ListFilter) ([]*payment_document.PaymentDocument, error) {
	return r.BaseDocumentRepo.Find(ctx, documentWhere(filter), filter.OrderBy)
}

func documentWhere(f payment_document.ListFilter) squirrel.And {
	where := squirrel.And{}
	if len(f.IDs) > 0 {
		where = append(where, squirrel.Eq{"id": f.IDs})
	}
	if len(f.States) > 0 {
		where = append(where, squirrel.Eq{"state": stateNames(f.States)})
	}
	if f.PartnerID != nil {
		where = append(where, squirrel.Eq{"partner_id": *f.PartnerID})
	}
	if f.PaymentOrderID != nil {
		where = append(where, squirrel.Eq{"payment_order_id": *f.PaymentOrderID})
	}
	if f.PaymentType != "" {
		where = append(where, squirrel.Eq{"payment_type": string(f.PaymentType)})
	}
	// Comparisons against a NULL date_due are never true, so undated documents drop out.
	if f.DueFrom != nil {
		where = append(where, squirrel.GtOrEq{"date_due": *f.DueFrom})
	}
	if f.DueTo != nil {
		where = append(where, squirrel.LtOrEq{"date_due": *f.DueTo})
	}
	return where
}

func (r *PaymentDocumentRepo) FindLinesByMoveLines(ctx context.Context, moveLineIDs []id.ID, states []payment_document.State) ([]*payment_document.DocumentLine, error) {
	if len(moveLineIDs) == 0 {
		return nil, nil
	}
	where := squirrel.And{squirrel.Eq{"move_line_id": moveLineIDs}}
	if len(states) > 0 {
		sub, args, err := postgres.Builder().
			Select("id").
			From("payment_documents").
			Where(squirrel.Eq{"state": stateNames(states)}).
			PlaceholderFormat(squirrel.Question).
			ToSql()
		if err != nil {
			return nil, err
		}
		where = append(where, squirrel.Expr("document_id IN ("+sub+")", args...))
	}
	return r.lines.Select(ctx, where)
}

func stateNames[S ~string](states []S) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
