package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydocs/internal/domain/catalog"
	"paydocs/internal/infrastructure/storage/postgres"
)

func TestNewCatalogRepo_Columns(t *testing.T) {
	repo := NewCatalogRepo(nil)

	assert.Equal(t, "payment_modes", repo.modes.tableName)
	assert.Contains(t, repo.modes.selectCols, "variable_journal_ids")
	assert.Contains(t, repo.modes.selectCols, "company_currency")
	assert.NotContains(t, repo.accounts.selectCols, "created_at")
	assert.Equal(t, "code", repo.accounts.orderBy)
}

func TestColumnMap_AccountUpsertPayload(t *testing.T) {
	acc := catalog.NewAccount("430000", "Customers", catalog.AccountReceivable)
	data := postgres.ColumnMap(acc, postgres.ExtractDBColumns[catalog.Account]())

	require.Len(t, data, 6)
	assert.Equal(t, true, data["reconcile"])
	assert.Equal(t, "Customers", data["name"])
}
