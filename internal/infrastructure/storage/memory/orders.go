package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain"
	"paydocs/internal/domain/documents/payment_order"
)

// OrderRepo implements payment_order.Repository.
type OrderRepo struct {
	store *Store
}

// NewOrderRepo creates a payment order repository over store.
func NewOrderRepo(store *Store) *OrderRepo {
	return &OrderRepo{store: store}
}

var _ payment_order.Repository = (*OrderRepo)(nil)

func (r *OrderRepo) Create(ctx context.Context, o *payment_order.PaymentOrder) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.orders[o.ID]; ok {
			return apperror.NewDuplicate(payment_order.EntityName, "id", o.ID.String())
		}
		st.orders[o.ID] = copyOrder(o)
		return nil
	})
}

func (r *OrderRepo) Update(ctx context.Context, o *payment_order.PaymentOrder) error {
	return r.store.write(func(st *state) error {
		cur, ok := st.orders[o.ID]
		if !ok {
			return apperror.NewNotFound(payment_order.EntityName, o.ID.String())
		}
		if cur.Version != o.Version-1 {
			return apperror.NewConcurrentModification(payment_order.EntityName, o.ID.String())
		}
		st.orders[o.ID] = copyOrder(o)
		return nil
	})
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*payment_order.PaymentOrder, error) {
	return get(r.store, func(st *state) map[id.ID]*payment_order.PaymentOrder { return st.orders },
		copyOrder, payment_order.EntityName, orderID)
}

func (r *OrderRepo) List(ctx context.Context, filter payment_order.ListFilter) (domain.ListResult[*payment_order.PaymentOrder], error) {
	orders, err := r.Find(ctx, filter)
	if err != nil {
		return domain.ListResult[*payment_order.PaymentOrder]{}, err
	}
	return domain.Paginate(orders, filter.ListFilter), nil
}

func (r *OrderRepo) Find(ctx context.Context, filter payment_order.ListFilter) ([]*payment_order.PaymentOrder, error) {
	var out []*payment_order.PaymentOrder
	r.store.read(func(st *state) {
		for _, o := range st.orders {
			switch {
			case len(filter.IDs) > 0 && !slices.Contains(filter.IDs, o.ID):
				continue
			case len(filter.States) > 0 && !slices.Contains(filter.States, o.State):
				continue
			case filter.ExcludeDatePrefered != "" && o.DatePrefered == filter.ExcludeDatePrefered:
				continue
			}
			out = append(out, copyOrder(o))
		}
	})
	slices.SortFunc(out, func(a, b *payment_order.PaymentOrder) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (r *OrderRepo) GetPaymentLines(ctx context.Context, orderID id.ID) ([]*payment_order.PaymentLine, error) {
	var out []*payment_order.PaymentLine
	r.store.read(func(st *state) {
		for _, l := range st.paymentLines {
			if l.OrderID == orderID {
				out = append(out, copyOf(l))
			}
		}
	})
	slices.SortFunc(out, func(a, b *payment_order.PaymentLine) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (r *OrderRepo) SavePaymentLines(ctx context.Context, orderID id.ID, lines []*payment_order.PaymentLine) error {
	return r.store.write(func(st *state) error {
		for lid, l := range st.paymentLines {
			if l.OrderID == orderID {
				delete(st.paymentLines, lid)
			}
		}
		for _, l := range lines {
			c := copyOf(l)
			c.OrderID = orderID
			st.paymentLines[c.ID] = c
		}
		return nil
	})
}

func (r *OrderRepo) GetBankLines(ctx context.Context, orderID id.ID) ([]*payment_order.BankPaymentLine, error) {
	var out []*payment_order.BankPaymentLine
	r.store.read(func(st *state) {
		for _, b := range st.bankLines {
			if b.OrderID != orderID {
				continue
			}
			c := copyBankLine(b)
			c.PaymentLineIDs = nil
			for _, pl := range st.paymentLines {
				if id.Equal(pl.BankLineID, &b.ID) {
					c.PaymentLineIDs = append(c.PaymentLineIDs, pl.ID)
				}
			}
			slices.SortFunc(c.PaymentLineIDs, func(x, y id.ID) int { return strings.Compare(x.String(), y.String()) })
			out = append(out, c)
		}
	})
	slices.SortFunc(out, func(a, b *payment_order.BankPaymentLine) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (r *OrderRepo) SaveBankLines(ctx context.Context, orderID id.ID, lines []*payment_order.BankPaymentLine) error {
	return r.store.write(func(st *state) error {
		for bid, b := range st.bankLines {
			if b.OrderID == orderID {
				delete(st.bankLines, bid)
			}
		}
		for _, b := range lines {
			c := copyBankLine(b)
			c.OrderID = orderID
			st.bankLines[c.ID] = c
		}
		return nil
	})
}

func (r *OrderRepo) FindPaymentLinesByMoveLines(ctx context.Context, moveLineIDs []id.ID) ([]*payment_order.PaymentLine, error) {
	var out []*payment_order.PaymentLine
	r.store.read(func(st *state) {
		for _, l := range st.paymentLines {
			if l.MoveLineID == nil || !slices.Contains(moveLineIDs, *l.MoveLineID) {
				continue
			}
			o, ok := st.orders[l.OrderID]
			if !ok || o.State == payment_order.StateCancel {
				continue
			}
			out = append(out, copyOf(l))
		}
	})
	slices.SortFunc(out, func(a, b *payment_order.PaymentLine) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

// compareOptionalTime orders nil after any date.
func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}
