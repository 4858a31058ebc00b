package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydocs/internal/core/apperror"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	res := Paginate(items, ListFilter{Limit: 2, Offset: 1})
	assert.Equal(t, []int{2, 3}, res.Items)
	assert.Equal(t, int64(5), res.TotalCount)

	res = Paginate(items, ListFilter{Limit: 10, Offset: 9})
	assert.Empty(t, res.Items)
	assert.Equal(t, 5, res.Offset)

	res = Paginate(items, ListFilter{})
	assert.Len(t, res.Items, 5)
	assert.Equal(t, 50, res.Limit)
}

func TestHookRegistry_StopsOnFirstError(t *testing.T) {
	reg := NewHookRegistry[*int]()
	calls := 0
	reg.OnBeforeCreate(func(ctx context.Context, v *int) error {
		calls++
		return errors.New("rejected")
	})
	reg.OnBeforeCreate(func(ctx context.Context, v *int) error {
		calls++
		return nil
	})

	n := 1
	err := reg.RunBeforeCreate(context.Background(), &n)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, reg.RunAfterTransition(context.Background(), &n))
}

func TestNormalizeGetErr(t *testing.T) {
	err := NormalizeGetErr("payment_document", apperror.NewNotFound("row", "x"), "42")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "payment_document", appErr.Details["entity"])

	err = NormalizeGetErr("payment_document", errors.New("boom"), "42")
	assert.True(t, apperror.HasCode(err, apperror.CodeInternal))

	assert.True(t, apperror.IsValidation(NormalizeValidationErr(errors.New("bad"))))
	assert.NoError(t, NormalizeValidationErr(nil))
}
