package document_repo

import (
	"context"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"

	"paydocs/internal/core/id"
	"paydocs/internal/domain"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/internal/infrastructure/storage/postgres"
)

// PaymentOrderRepo implements payment_order.Repository.
type PaymentOrderRepo struct {
	*BaseDocumentRepo[*payment_order.PaymentOrder]
	paymentLines *childTable[payment_order.PaymentLine]
	bankLines    *childTable[payment_order.BankPaymentLine]
}

var _ payment_order.Repository = (*PaymentOrderRepo)(nil)

// NewPaymentOrderRepo creates a payment order repository.
func NewPaymentOrderRepo(txm *postgres.TxManager) *PaymentOrderRepo {
	return &PaymentOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm, "payment_orders", payment_order.EntityName, "name",
			postgres.ExtractDBColumns[payment_order.PaymentOrder](),
			func() *payment_order.PaymentOrder { return &payment_order.PaymentOrder{} },
		),
		paymentLines: newChildTable[payment_order.PaymentLine](txm, "payment_lines", "order_id", "id"),
		bankLines:    newChildTable[payment_order.BankPaymentLine](txm, "bank_payment_lines", "order_id", "name", "id"),
	}
}

func (r *PaymentOrderRepo) List(ctx context.Context, filter payment_order.ListFilter) (domain.ListResult[*payment_order.PaymentOrder], error) {
	return r.BaseDocumentRepo.List(ctx, orderWhere(filter), filter.ListFilter)
}

func (r *PaymentOrderRepo) Find(ctx context.Context, filter payment_order.ListFilter) ([]*payment_order.PaymentOrder, error) {
	return r.BaseDocumentRepo.Find(ctx, orderWhere(filter), "name")
}

func orderWhere(f payment_order.ListFilter) squirrel.And {
	where := squirrel.And{}
	if len(f.IDs) > 0 {
		where = append(where, squirrel.Eq{"id": f.IDs})
	}
	if len(f.States) > 0 {
		where = append(where, squirrel.Eq{"state": stateNames(f.States)})
	}
	if f.ExcludeDatePrefered != "" {
		where = append(where, squirrel.NotEq{"date_prefered": string(f.ExcludeDatePrefered)})
	}
	return where
}

func (r *PaymentOrderRepo) GetPaymentLines(ctx context.Context, orderID id.ID) ([]*payment_order.PaymentLine, error) {
	return r.paymentLines.Select(ctx, squirrel.Eq{"order_id": orderID})
}

func (r *PaymentOrderRepo) SavePaymentLines(ctx context.Context, orderID id.ID, lines []*payment_order.PaymentLine) error {
	return r.paymentLines.Replace(ctx, orderID, lines, func(l *payment_order.PaymentLine) { l.OrderID = orderID })
}

// GetBankLines fills PaymentLineIDs from the payment lines pointing at each bank line.
func (r *PaymentOrderRepo) GetBankLines(ctx context.Context, orderID id.ID) ([]*payment_order.BankPaymentLine, error) {
	banks, err := r.bankLines.Select(ctx, squirrel.Eq{"order_id": orderID})
	if err != nil {
		return nil, err
	}
	lines, err := r.GetPaymentLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	byBank := make(map[id.ID][]id.ID, len(banks))
	for _, l := range lines {
		if l.BankLineID != nil {
			byBank[*l.BankLineID] = append(byBank[*l.BankLineID], l.ID)
		}
	}
	for _, b := range banks {
		b.PaymentLineIDs = byBank[b.ID]
		slices.SortFunc(b.PaymentLineIDs, func(x, y id.ID) int { return strings.Compare(x.String(), y.String()) })
	}
	return banks, nil
}

func (r *PaymentOrderRepo) SaveBankLines(ctx context.Context, orderID id.ID, lines []*payment_order.BankPaymentLine) error {
	return r.bankLines.Replace(ctx, orderID, lines, func(b *payment_order.BankPaymentLine) { b.OrderID = orderID })
}

func (r *PaymentOrderRepo) FindPaymentLinesByMoveLines(ctx context.Context, moveLineIDs []id.ID) ([]*payment_order.PaymentLine, error) {
	if len(moveLineIDs) == 0 {
		return nil, nil
	}
	return r.paymentLines.Select(ctx, squirrel.And{
		squirrel.Eq{"move_line_id": moveLineIDs},
		squirrel.Expr("order_id IN (SELECT id FROM payment_orders WHERE state <> ?)", string(payment_order.StateCancel)),
	})
}
