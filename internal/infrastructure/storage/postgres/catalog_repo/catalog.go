package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"paydocs/internal/core/id"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/infrastructure/storage/postgres"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	accounts *BaseCatalogRepo[*catalog.Account]
	journals *BaseCatalogRepo[*catalog.Journal]
	partners *BaseCatalogRepo[*catalog.Partner]
	methods  *BaseCatalogRepo[*catalog.PaymentMethod]
	modes    *BaseCatalogRepo[*catalog.PaymentMode]
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// NewCatalogRepo creates the reference data repository.
func NewCatalogRepo(txm *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{
		accounts: NewBaseCatalogRepo(txm, "accounts", "account", "code",
			postgres.ExtractDBColumns[catalog.Account](),
			func() *catalog.Account { return &catalog.Account{} }),
		journals: NewBaseCatalogRepo(txm, "journals", "journal", "code",
			postgres.ExtractDBColumns[catalog.Journal](),
			func() *catalog.Journal { return &catalog.Journal{} }),
		partners: NewBaseCatalogRepo(txm, "partners", "partner", "name",
			postgres.ExtractDBColumns[catalog.Partner](),
			func() *catalog.Partner { return &catalog.Partner{} }),
		methods: NewBaseCatalogRepo(txm, "payment_methods", "payment_method", "name",
			postgres.ExtractDBColumns[catalog.PaymentMethod](),
			func() *catalog.PaymentMethod { return &catalog.PaymentMethod{} }),
		modes: NewBaseCatalogRepo(txm, "payment_modes", "payment_mode", "name",
			postgres.ExtractDBColumns[catalog.PaymentMode](),
			func() *catalog.PaymentMode { return &catalog.PaymentMode{} }),
	}
}

func (r *CatalogRepo) GetAccount(ctx context.Context, key id.ID) (*catalog.Account, error) {
	return r.accounts.Get(ctx, key)
}

func (r *CatalogRepo) SaveAccount(ctx context.Context, a *catalog.Account) error {
	return r.accounts.Save(ctx, a)
}

func (r *CatalogRepo) ListAccounts(ctx context.Context, types ...catalog.AccountType) ([]*catalog.Account, error) {
	if len(types) == 0 {
		return r.accounts.List(ctx, nil)
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return r.accounts.List(ctx, squirrel.Eq{"account_type": names})
}

func (r *CatalogRepo) GetJournal(ctx context.Context, key id.ID) (*catalog.Journal, error) {
	return r.journals.Get(ctx, key)
}

func (r *CatalogRepo) SaveJournal(ctx context.Context, j *catalog.Journal) error {
	return r.journals.Save(ctx, j)
}

func (r *CatalogRepo) ListJournals(ctx context.Context) ([]*catalog.Journal, error) {
	return r.journals.List(ctx, nil)
}

func (r *CatalogRepo) GetPartner(ctx context.Context, key id.ID) (*catalog.Partner, error) {
	return r.partners.Get(ctx, key)
}

func (r *CatalogRepo) SavePartner(ctx context.Context, p *catalog.Partner) error {
	return r.partners.Save(ctx, p)
}

func (r *CatalogRepo) ListPartners(ctx context.Context) ([]*catalog.Partner, error) {
	return r.partners.List(ctx, nil)
}

func (r *CatalogRepo) GetPaymentMethod(ctx context.Context, key id.ID) (*catalog.PaymentMethod, error) {
	return r.methods.Get(ctx, key)
}

func (r *CatalogRepo) SavePaymentMethod(ctx context.Context, m *catalog.PaymentMethod) error {
	return r.methods.Save(ctx, m)
}

func (r *CatalogRepo) ListPaymentMethods(ctx context.Context) ([]*catalog.PaymentMethod, error) {
	return r.methods.List(ctx, nil)
}

func (r *CatalogRepo) GetPaymentMode(ctx context.Context, key id.ID) (*catalog.PaymentMode, error) {
	return r.modes.Get(ctx, key)
}

// SavePaymentMode stores a non-nil journal list so the NOT NULL array column accepts it.
func (r *CatalogRepo) SavePaymentMode(ctx context.Context, m *catalog.PaymentMode) error {
	if m.VariableJournalIDs == nil {
		c := *m
		c.VariableJournalIDs = []id.ID{}
		m = &c
	}
	return r.modes.Save(ctx, m)
}

func (r *CatalogRepo) ListPaymentModes(ctx context.Context) ([]*catalog.PaymentMode, error) {
	return r.modes.List(ctx, nil)
}
