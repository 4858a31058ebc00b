package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "paydocs/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences for a single key.
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	calls        int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	increment := int64(1)
	if len(args) == 2 {
		if v, ok := args[1].(int64); ok {
			increment = v
		}
	}
	m.currentValue += increment
	m.calls++
	return &mockRow{val: m.currentValue}
}

var period = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := NewStatic(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("BNK")

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "BNK-2026-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "BNK-2026-00002", num)
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_CachedReservesRanges(t *testing.T) {
	q := &mockQuerier{}
	svc := NewStatic(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("MISC")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "MISC-2026-00001", num)
	assert.Equal(t, int64(10), q.currentValue)

	for i := 0; i < 9; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, period)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, q.calls, "the first range must serve ten numbers")

	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "MISC-2026-00011", num)
	assert.Equal(t, int64(20), q.currentValue)
}

func TestGetNextNumber_ScanErrorIsWrapped(t *testing.T) {
	svc := New(func(context.Context) Querier { return errQuerier{} })

	_, err := svc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("BNK"), nil, period)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict next")
}

type errQuerier struct{}

func (errQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &mockRow{err: pgx.ErrNoRows}
}

func TestFormatNumber_WithoutYear(t *testing.T) {
	cfg := corenumerator.Config{Prefix: "EXP", PadWidth: 3}

	assert.Equal(t, "EXP-007", cfg.Format(period, 7))
	assert.Equal(t, "EXP", cfg.Key(period))
}
