package memory

import (
	"context"
	"slices"
	"strings"

	"paydocs/internal/core/apperror"
	"paydocs/internal/core/id"
	"paydocs/internal/domain/catalog"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	store *Store
}

// NewCatalogRepo creates a catalog repository over store.
func NewCatalogRepo(store *Store) *CatalogRepo {
	return &CatalogRepo{store: store}
}

var _ catalog.Repository = (*CatalogRepo)(nil)

func get[T any](s *Store, table func(*state) map[id.ID]*T, cp func(*T) *T, entity string, key id.ID) (*T, error) {
	var out *T
	s.read(func(st *state) {
		if v, ok := table(st)[key]; ok {
			out = cp(v)
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound(entity, key.String())
	}
	return out, nil
}

func put[T any](s *Store, table func(*state) map[id.ID]*T, cp func(*T) *T, key id.ID, v *T) error {
	return s.write(func(st *state) error {
		table(st)[key] = cp(v)
		return nil
	})
}

// listSorted copies the rows of table accepted by keep, ordered by name.
func listSorted[T any](s *Store, table func(*state) map[id.ID]*T, cp func(*T) *T, keep func(*T) bool, name func(*T) string) []*T {
	var out []*T
	s.read(func(st *state) {
		for _, v := range table(st) {
			if keep == nil || keep(v) {
				out = append(out, cp(v))
			}
		}
	})
	slices.SortFunc(out, func(a, b *T) int { return strings.Compare(name(a), name(b)) })
	return out
}

func accounts(st *state) map[id.ID]*catalog.Account            { return st.accounts }
func journals(st *state) map[id.ID]*catalog.Journal            { return st.journals }
func partners(st *state) map[id.ID]*catalog.Partner            { return st.partners }
func paymentMethods(st *state) map[id.ID]*catalog.PaymentMethod { return st.methods }
func paymentModes(st *state) map[id.ID]*catalog.PaymentMode    { return st.modes }

func (r *CatalogRepo) GetAccount(ctx context.Context, key id.ID) (*catalog.Account, error) {
	return get(r.store, accounts, copyOf[catalog.Account], "account", key)
}

func (r *CatalogRepo) SaveAccount(ctx context.Context, a *catalog.Account) error {
	return put(r.store, accounts, copyOf[catalog.Account], a.ID, a)
}

func (r *CatalogRepo) ListAccounts(ctx context.Context, types ...catalog.AccountType) ([]*catalog.Account, error) {
	keep := func(a *catalog.Account) bool { return len(types) == 0 || slices.Contains(types, a.Type) }
	return listSorted(r.store, accounts, copyOf[catalog.Account], keep,
		func(a *catalog.Account) string { return a.Code }), nil
}

func (r *CatalogRepo) GetJournal(ctx context.Context, key id.ID) (*catalog.Journal, error) {
	return get(r.store, journals, copyOf[catalog.Journal], "journal", key)
}

func (r *CatalogRepo) SaveJournal(ctx context.Context, j *catalog.Journal) error {
	return put(r.store, journals, copyOf[catalog.Journal], j.ID, j)
}

func (r *CatalogRepo) ListJournals(ctx context.Context) ([]*catalog.Journal, error) {
	return listSorted(r.store, journals, copyOf[catalog.Journal], nil,
		func(j *catalog.Journal) string { return j.Code }), nil
}

func (r *CatalogRepo) GetPartner(ctx context.Context, key id.ID) (*catalog.Partner, error) {
	return get(r.store, partners, copyOf[catalog.Partner], "partner", key)
}

func (r *CatalogRepo) SavePartner(ctx context.Context, p *catalog.Partner) error {
	return put(r.store, partners, copyOf[catalog.Partner], p.ID, p)
}

func (r *CatalogRepo) ListPartners(ctx context.Context) ([]*catalog.Partner, error) {
	return listSorted(r.store, partners, copyOf[catalog.Partner], nil,
		func(p *catalog.Partner) string { return p.Name }), nil
}

func (r *CatalogRepo) GetPaymentMethod(ctx context.Context, key id.ID) (*catalog.PaymentMethod, error) {
	return get(r.store, paymentMethods, copyOf[catalog.PaymentMethod], "payment_method", key)
}

func (r *CatalogRepo) SavePaymentMethod(ctx context.Context, m *catalog.PaymentMethod) error {
	return put(r.store, paymentMethods, copyOf[catalog.PaymentMethod], m.ID, m)
}

func (r *CatalogRepo) ListPaymentMethods(ctx context.Context) ([]*catalog.PaymentMethod, error) {
	return listSorted(r.store, paymentMethods, copyOf[catalog.PaymentMethod], nil,
		func(m *catalog.PaymentMethod) string { return m.Name }), nil
}

func (r *CatalogRepo) GetPaymentMode(ctx context.Context, key id.ID) (*catalog.PaymentMode, error) {
	return get(r.store, paymentModes, copyMode, "payment_mode", key)
}

func (r *CatalogRepo) SavePaymentMode(ctx context.Context, m *catalog.PaymentMode) error {
	return put(r.store, paymentModes, copyMode, m.ID, m)
}

func (r *CatalogRepo) ListPaymentModes(ctx context.Context) ([]*catalog.PaymentMode, error) {
	return listSorted(r.store, paymentModes, copyMode, nil,
		func(m *catalog.PaymentMode) string { return m.Name }), nil
}
