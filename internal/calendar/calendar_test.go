package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodRangeCoversWholeMonth(t *testing.T) {
	r := PeriodRange(Key{Year: 2024, Month: time.February}, time.UTC)
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), r.From)
	require.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999_000_000, time.UTC), r.To)
	assert.True(t, r.Contains(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodRangeDecember(t *testing.T) {
	r := PeriodRange(Key{Year: 2023, Month: time.December}, time.UTC)
	require.Equal(t, time.Date(2023, 12, 31, 23, 59, 59, 999_000_000, time.UTC), r.To)
}

func TestNextPreviousWrapYear(t *testing.T) {
	assert.Equal(t, Key{Year: 2025, Month: time.January}, Next(Key{Year: 2024, Month: time.December}))
	assert.Equal(t, Key{Year: 2023, Month: time.December}, Previous(Key{Year: 2024, Month: time.January}))
	assert.Equal(t, Key{Year: 2024, Month: time.July}, Next(Key{Year: 2024, Month: time.June}))
	assert.Equal(t, Key{Year: 2024, Month: time.May}, Previous(Key{Year: 2024, Month: time.June}))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Czerwiec 2024", Label(Key{Year: 2024, Month: time.June}))
	assert.Equal(t, "Październik 2025", Label(Key{Year: 2025, Month: time.October}))
}

func TestParse(t *testing.T) {
	key, err := Parse("2024-06")
	require.NoError(t, err)
	assert.Equal(t, Key{Year: 2024, Month: time.June}, key)
	assert.Equal(t, "2024-06", key.String())

	for _, raw := range []string{"", "2024", "2024-13", "2024-6", "24-06", "abcd-01"} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidKey, raw)
	}
}

func TestQuarter(t *testing.T) {
	assert.Equal(t, 1, Quarter(Key{Year: 2024, Month: time.March}))
	assert.Equal(t, 2, Quarter(Key{Year: 2024, Month: time.April}))
	assert.Equal(t, 4, Quarter(Key{Year: 2024, Month: time.December}))
}

func TestKeyJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Period Key `json:"period"`
	}{Key{Year: 2025, Month: time.March}})
	require.NoError(t, err)
	require.JSONEq(t, `{"period":"2025-03"}`, string(raw))

	var decoded struct {
		Period Key `json:"period"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, Key{Year: 2025, Month: time.March}, decoded.Period)

	require.Error(t, json.Unmarshal([]byte(`{"period":"2025-13"}`), &decoded))
}
