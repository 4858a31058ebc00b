package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum_FoldsWithoutFloatDrift(t *testing.T) {
	amounts := []Money{MustMoney("0.1"), MustMoney("0.2"), MustMoney("0.3")}

	total := Sum(amounts, func(m Money) Money { return m })

	assert.True(t, total.Equal(MustMoney("0.6")), "got %s", total)
}

func TestSum_Empty(t *testing.T) {
	assert.True(t, Sum([]Money(nil), func(m Money) Money { return m }).IsZero())
}

func TestCurrencyCode_IsForeign(t *testing.T) {
	assert.False(t, CurrencyCode("").IsForeign("EUR"))
	assert.False(t, CurrencyCode("EUR").IsForeign("EUR"))
	assert.True(t, CurrencyCode("USD").IsForeign("EUR"))
}
