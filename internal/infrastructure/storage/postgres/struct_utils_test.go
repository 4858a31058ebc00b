package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/catalog"
	"paydocs/internal/domain/ledger"
)

func TestExtractDBColumns_IncludesEmbedded(t *testing.T) {
	cols := ExtractDBColumns[catalog.Journal]()
	for _, want := range []string{"id", "version", "code", "name", "bank_account", "default_debit_account_id"} {
		assert.Contains(t, cols, want)
	}
	assert.NotContains(t, ExtractDBColumns[ledger.Move](), "-")
}

func TestStructToMap(t *testing.T) {
	acc := catalog.NewAccount("572000", "Bank", catalog.AccountLiquidity)
	m := StructToMap(acc)

	assert.Equal(t, acc.ID, m["id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, "572000", m["code"])
	assert.Equal(t, catalog.AccountLiquidity, m["account_type"])
}

func TestColumnMap_Skips(t *testing.T) {
	line := &ledger.MoveLine{ID: id.New(), Name: "x", Debit: types.MustMoney("1")}
	m := ColumnMap(line, []string{"id", "name", "debit", "unknown"}, "id")

	assert.NotContains(t, m, "id")
	assert.NotContains(t, m, "unknown")
	assert.Equal(t, "x", m["name"])
}
