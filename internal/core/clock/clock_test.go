package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToday_TruncatesToMidnight(t *testing.T) {
	c := NewFakeClock(time.Date(2026, 3, 14, 17, 45, 0, 0, time.UTC))

	assert.Equal(t, DateOf(2026, 3, 14), Today(c))
}

func TestFakeClock_Advance(t *testing.T) {
	c := NewFakeClock(DateOf(2026, 1, 31))
	c.Advance(24 * time.Hour)

	assert.Equal(t, DateOf(2026, 2, 1), Today(c))
}

func TestDate_NormalisesZone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	ts := time.Date(2026, 5, 1, 1, 0, 0, 0, loc)

	assert.Equal(t, DateOf(2026, 4, 30), Date(ts))
}
