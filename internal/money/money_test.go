package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "Rp 0"},
		{800, "Rp 800"},
		{130000, "Rp 130.000"},
		{1250000, "Rp 1.250.000"},
		{-5000, "-Rp 5.000"},
		{math.MaxInt64, "Rp 9.223.372.036.854.775.807"},
		{math.MinInt64, "-Rp 9.223.372.036.854.775.808"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.amount))
	}
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "400.000", Number(400000))
}
