package payment_order

import (
	"context"

	"paydocs/internal/core/id"
	"paydocs/internal/domain"
	"paydocs/internal/domain/catalog"
)

// ListFilter extends domain.ListFilter with order-specific filters.
type ListFilter struct {
	domain.ListFilter

	States []State

	// ExcludeDatePrefered drops orders with this date preference.
	ExcludeDatePrefered catalog.DatePrefered
}

// Repository defines the interface for payment order persistence.
type Repository interface {
	Create(ctx context.Context, o *PaymentOrder) error

	// Update stores the header with optimistic locking on Version.
	Update(ctx context.Context, o *PaymentOrder) error

	// GetByID retrieves the order header.
	GetByID(ctx context.Context, orderID id.ID) (*PaymentOrder, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*PaymentOrder], error)

	// Find retrieves all headers matching the filter, ignoring pagination.
	Find(ctx context.Context, filter ListFilter) ([]*PaymentOrder, error)

	GetPaymentLines(ctx context.Context, orderID id.ID) ([]*PaymentLine, error)

	// SavePaymentLines replaces the payment lines of an order.
	SavePaymentLines(ctx context.Context, orderID id.ID, lines []*PaymentLine) error

	// GetBankLines returns bank lines with PaymentLineIDs filled in.
	GetBankLines(ctx context.Context, orderID id.ID) ([]*BankPaymentLine, error)

	// SaveBankLines replaces the bank lines of an order.
	SaveBankLines(ctx context.Context, orderID id.ID, lines []*BankPaymentLine) error

	// FindPaymentLinesByMoveLines returns payment lines of non-cancelled
	// orders claiming any of the move lines.
	FindPaymentLinesByMoveLines(ctx context.Context, moveLineIDs []id.ID) ([]*PaymentLine, error)
}
