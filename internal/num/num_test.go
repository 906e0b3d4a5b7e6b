package num

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		want   float64
	}{
		{2.1604999, 3, 2.16},
		{4.0005, 3, 4.001},
		{-1.23456, 3, -1.235},
		{600000.456, 2, 600000.46},
		{1234567.6, 0, 1234568},
		{0, 3, 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Round(tc.in, tc.places), "Round(%v, %d)", tc.in, tc.places)
	}
}

func TestRoundSpecialValues(t *testing.T) {
	require.True(t, math.IsInf(Round3(math.Inf(1)), 1))
	require.True(t, math.IsNaN(Round3(math.NaN())))
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		999.5:         "999.50",
		1500:          "1.50K",
		2_500_000:     "2.50M",
		3_210_000_000: "3.21B",
		-45_000:       "-45.00K",
	}
	for in, want := range cases {
		require.Equal(t, want, FormatAmount(in), "FormatAmount(%v)", in)
	}
}

func TestFormatPercent(t *testing.T) {
	require.Equal(t, "5.25%", FormatPercent(5.254, 2))
}
