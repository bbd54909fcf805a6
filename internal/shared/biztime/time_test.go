package biztime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthKey(t *testing.T) {
	require.NoError(t, Init("UTC"))

	ts := time.Date(2025, time.March, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2025-03", MonthKey(ts))
	assert.Equal(t, "2025-04", MonthKey(ts.Add(2*time.Minute)))
}

func TestParseMonthKey(t *testing.T) {
	got, err := ParseMonthKey("2024-11")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseMonthKey("2024/11")
	assert.Error(t, err)
}

func TestMonthBoundaries(t *testing.T) {
	start := StartOfMonthUTC(2024, time.February)
	end := EndOfMonthUTC(2024, time.February)
	assert.Equal(t, 1, start.Day())
	assert.Equal(t, 29, end.Day())
	assert.True(t, end.After(start))
}
