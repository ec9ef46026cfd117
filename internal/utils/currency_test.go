package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVND(t *testing.T) {
	tests := []struct {
		amount   int64
		expected string
	}{
		{0, "0 ₫"},
		{500, "500 ₫"},
		{1250000, "1.250.000 ₫"},
		{50000000, "50.000.000 ₫"},
		{-10000, "-10.000 ₫"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatVND(tt.amount))
	}
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, int64(5), RoundHalfUp(4.5))
	assert.Equal(t, int64(4), RoundHalfUp(4.4))
	assert.Equal(t, int64(-5), RoundHalfUp(-4.5), "halves round away from zero")
	assert.Equal(t, int64(0), RoundHalfUp(0))
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, int64(10_000), PercentOf(1_000_000, 1.0))
	assert.Equal(t, int64(32_000), PercentOf(1_000_000, 3.2))
	assert.Equal(t, int64(5), PercentOf(333, 1.5)) // 4.995 rounds up
}

func TestParseVND(t *testing.T) {
	for _, input := range []string{"1250000", "1.250.000", "1,250,000 ₫", " 1250000 VND "} {
		amount, err := ParseVND(input)
		require.NoError(t, err, input)
		assert.Equal(t, int64(1250000), amount, input)
	}

	_, err := ParseVND("")
	assert.Error(t, err)
	_, err = ParseVND("abc")
	assert.Error(t, err)
}
