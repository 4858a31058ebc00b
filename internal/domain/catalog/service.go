package catalog

import (
	"context"
	"fmt"

	"paydocs/internal/core/entity"
	"paydocs/internal/core/id"
	"paydocs/internal/core/tx"
	"paydocs/internal/domain"
	"paydocs/pkg/logger"
)

// Service provides validated access to reference data.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a catalog service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

func save[T entity.Validatable](ctx context.Context, s *Service, kind string, v T, store func(context.Context, T) error) error {
	if err := v.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := store(ctx, v); err != nil {
			return fmt.Errorf("save %s: %w", kind, err)
		}
		logger.Debug(ctx, "catalog entry saved", "kind", kind)
		return nil
	})
}

// SaveAccount validates and stores an account.
func (s *Service) SaveAccount(ctx context.Context, a *Account) error {
	return save(ctx, s, "account", a, s.repo.SaveAccount)
}

// SaveJournal validates and stores a journal.
func (s *Service) SaveJournal(ctx context.Context, j *Journal) error {
	return save(ctx, s, "journal", j, s.repo.SaveJournal)
}

// SavePartner validates and stores a partner.
func (s *Service) SavePartner(ctx context.Context, p *Partner) error {
	return save(ctx, s, "partner", p, s.repo.SavePartner)
}

// SavePaymentMethod validates and stores a payment method.
func (s *Service) SavePaymentMethod(ctx context.Context, m *PaymentMethod) error {
	return save(ctx, s, "payment_method", m, s.repo.SavePaymentMethod)
}

// SavePaymentMode validates and stores a payment mode.
// Journals and the method it references must exist.
func (s *Service) SavePaymentMode(ctx context.Context, m *PaymentMode) error {
	if err := m.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.PaymentMethod(ctx, m.PaymentMethodID); err != nil {
			return err
		}
		refs := m.AllowedJournals()
		if id.IsSet(m.TransferJournalID) {
			refs = append(refs, *m.TransferJournalID)
		}
		for _, jid := range refs {
			if _, err := s.Journal(ctx, jid); err != nil {
				return err
			}
		}
		if err := s.repo.SavePaymentMode(ctx, m); err != nil {
			return fmt.Errorf("save payment_mode: %w", err)
		}
		return nil
	})
}

// Account returns an account by ID.
func (s *Service) Account(ctx context.Context, accountID id.ID) (*Account, error) {
	a, err := s.repo.GetAccount(ctx, accountID)
	return a, domain.NormalizeGetErr("account", err, accountID.String())
}

// Journal returns a journal by ID.
func (s *Service) Journal(ctx context.Context, journalID id.ID) (*Journal, error) {
	j, err := s.repo.GetJournal(ctx, journalID)
	return j, domain.NormalizeGetErr("journal", err, journalID.String())
}

// Partner returns a partner by ID.
func (s *Service) Partner(ctx context.Context, partnerID id.ID) (*Partner, error) {
	p, err := s.repo.GetPartner(ctx, partnerID)
	return p, domain.NormalizeGetErr("partner", err, partnerID.String())
}

// PaymentMethod returns a payment method by ID.
func (s *Service) PaymentMethod(ctx context.Context, methodID id.ID) (*PaymentMethod, error) {
	m, err := s.repo.GetPaymentMethod(ctx, methodID)
	return m, domain.NormalizeGetErr("payment_method", err, methodID.String())
}

// PaymentMode returns a payment mode by ID.
func (s *Service) PaymentMode(ctx context.Context, modeID id.ID) (*PaymentMode, error) {
	m, err := s.repo.GetPaymentMode(ctx, modeID)
	return m, domain.NormalizeGetErr("payment_mode", err, modeID.String())
}

// AccountIDsOfType returns the IDs of all accounts of the given types.
func (s *Service) AccountIDsOfType(ctx context.Context, types ...AccountType) ([]id.ID, error) {
	accounts, err := s.repo.ListAccounts(ctx, types...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	ids := make([]id.ID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// Accounts lists accounts, optionally restricted to types.
func (s *Service) Accounts(ctx context.Context, types ...AccountType) ([]*Account, error) {
	return s.repo.ListAccounts(ctx, types...)
}

// Journals lists all journals.
func (s *Service) Journals(ctx context.Context) ([]*Journal, error) {
	return s.repo.ListJournals(ctx)
}

// Partners lists all partners.
func (s *Service) Partners(ctx context.Context) ([]*Partner, error) {
	return s.repo.ListPartners(ctx)
}

// PaymentMethods lists all payment methods.
func (s *Service) PaymentMethods(ctx context.Context) ([]*PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx)
}

// PaymentModes lists all payment modes.
func (s *Service) PaymentModes(ctx context.Context) ([]*PaymentMode, error) {
	return s.repo.ListPaymentModes(ctx)
}
