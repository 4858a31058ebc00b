package expiration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paydocs/internal/core/id"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/documents/payment_order"
	"paydocs/pkg/logger"
)

// RunOrders closes uploaded orders whose lines are settled. Orders of plain
// move lines are reconciled here first: fixed orders all at once when the
// scheduled date has come, due orders bank line by bank line as each falls due.
func (s *Scheduler) RunOrders(ctx context.Context, today time.Time) (Result, error) {
	var res Result
	orders, err := s.orders.Find(ctx, payment_order.ListFilter{
		States:              []payment_order.State{payment_order.StateUploaded},
		ExcludeDatePrefered: catalog.DatePreferedNow,
	})
	if err != nil {
		return res, fmt.Errorf("find orders: %w", err)
	}

	var errs []error
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		done, err := s.expireOrder(ctx, o.ID, today)
		switch {
		case err != nil:
			logger.Error(ctx, "order expiration failed", "order_id", o.ID, "name", o.Name, "error", err)
			errs = append(errs, fmt.Errorf("order %s: %w", o.Name, err))
			s.addItems(JobOrders, "failed", 1)
		case done:
			res.Processed++
			s.addItems(JobOrders, "done", 1)
		default:
			res.Skipped++
			s.addItems(JobOrders, "pending", 1)
		}
	}
	return res, errors.Join(errs...)
}

func (s *Scheduler) expireOrder(ctx context.Context, orderID id.ID, today time.Time) (bool, error) {
	ctx = logger.WithOrder(ctx, orderID)
	var done bool
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.State != payment_order.StateUploaded {
			return nil
		}

		if o.OnlyMoveLines() {
			switch o.DatePrefered {
			case catalog.DatePreferedFixed:
				if o.DateScheduled == nil || o.DateScheduled.After(today) {
					return nil
				}
				if err := s.orders.ReconcileBankLines(ctx, o, nil); err != nil {
					return err
				}
				if _, err := s.orders.ActionDone(ctx, o.ID); err != nil {
					return err
				}
				done = true
				return nil
			case catalog.DatePreferedDue:
				if err := s.orders.ReconcileBankLines(ctx, o, &today); err != nil {
					return err
				}
			}
		}

		settled, err := s.orderSettled(ctx, o)
		if err != nil || !settled {
			return err
		}
		if _, err := s.orders.ActionDone(ctx, o.ID); err != nil {
			return err
		}
		done = true
		return nil
	})
	if done {
		logger.Info(ctx, "payment order done by expiration")
	}
	return done, err
}

// orderSettled reports whether every move line paid by the order is reconciled.
func (s *Scheduler) orderSettled(ctx context.Context, o *payment_order.PaymentOrder) (bool, error) {
	for _, b := range o.BankLines {
		ok, err := s.orders.BankLineReconciled(ctx, o, b)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
