package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUIAmountString(t *testing.T) {
	cases := []struct {
		raw      uint64
		decimals uint8
		want     string
	}{
		{0, 6, "0"},
		{1, 6, "0.000001"},
		{1_500_000, 6, "1.5"},
		{1_000_000_000, 9, "1"},
		{42, 0, "42"},
		{math.MaxUint64, 9, "18446744073.709551615"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, UIAmountString(c.raw, c.decimals))
	}
}
