package catalog

import (
	"context"

	"paydocs/internal/core/id"
)

// Repository defines persistence of reference data.
// Get methods return an apperror NotFound when the row does not exist.
type Repository interface {
	GetAccount(ctx context.Context, id id.ID) (*Account, error)
	SaveAccount(ctx context.Context, a *Account) error
	ListAccounts(ctx context.Context, types ...AccountType) ([]*Account, error)

	GetJournal(ctx context.Context, id id.ID) (*Journal, error)
	SaveJournal(ctx context.Context, j *Journal) error
	ListJournals(ctx context.Context) ([]*Journal, error)

	GetPartner(ctx context.Context, id id.ID) (*Partner, error)
	SavePartner(ctx context.Context, p *Partner) error
	ListPartners(ctx context.Context) ([]*Partner, error)

	GetPaymentMethod(ctx context.Context, id id.ID) (*PaymentMethod, error)
	SavePaymentMethod(ctx context.Context, m *PaymentMethod) error
	ListPaymentMethods(ctx context.Context) ([]*PaymentMethod, error)

	GetPaymentMode(ctx context.Context, id id.ID) (*PaymentMode, error)
	SavePaymentMode(ctx context.Context, m *PaymentMode) error
	ListPaymentModes(ctx context.Context) ([]*PaymentMode, error)
}
