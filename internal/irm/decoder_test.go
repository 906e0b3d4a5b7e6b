package irm

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeWords(words ...uint64) string {
	var b strings.Builder
	for _, w := range words {
		fmt.Fprintf(&b, "%064x", w)
	}
	return b.String()
}

func TestDecodeKinkPercentExact(t *testing.T) {
	const kinkRaw = 3435973836 // ~80%
	params := "0x" + encodeWords(0, 1000, 20000, kinkRaw)

	got, err := Decode(params)
	require.NoError(t, err)
	require.Equal(t, float64(kinkRaw)/Uint32Max*100, got.KinkPercent)
	require.Equal(t, 0.0, got.BaseRateApy)
}

func TestDecodeBaseRateApy(t *testing.T) {
	const baseRaw = 1_000_000_000_000_000_000 // 1e-9 per second
	params := encodeWords(baseRaw, 0, 0, 0)

	got, err := Decode(params)
	require.NoError(t, err)
	require.Equal(t, APY(new(big.Int).SetUint64(baseRaw))*100, got.BaseRateApy)
	require.InDelta(t, 3.2039, got.BaseRateApy, 1e-3)
	// kink at zero: the whole range is priced off slope2, which is zero here.
	require.Equal(t, got.BaseRateApy, got.RateAtKink)
	require.Equal(t, got.BaseRateApy, got.MaximumRate)
}

func TestRawRates(t *testing.T) {
	raw, err := ParseRaw(encodeWords(10, 3, 7, 100))
	require.NoError(t, err)

	rate0, rateAtKink, rate100 := raw.Rates()
	require.Equal(t, "10", rate0.String())
	require.Equal(t, "310", rateAtKink.String())

	want := new(big.Int).Mul(big.NewInt(7), big.NewInt(Uint32Max-100))
	want.Add(want, big.NewInt(310))
	require.Equal(t, want.String(), rate100.String())
}

func TestDecodePrefixOptional(t *testing.T) {
	body := encodeWords(1e15, 2e12, 4e13, 2147483647)

	withPrefix, err := Decode("0x" + body)
	require.NoError(t, err)
	withoutPrefix, err := Decode(body)
	require.NoError(t, err)
	require.Equal(t, withPrefix, withoutPrefix)
}

func TestDecodeIgnoresTrailingData(t *testing.T) {
	body := encodeWords(1e15, 2e12, 4e13, 2147483647)

	base, err := Decode(body)
	require.NoError(t, err)
	extended, err := Decode(body + strings.Repeat("ab", 32))
	require.NoError(t, err)
	require.Equal(t, base, extended)
}

func TestDecodeInsufficientData(t *testing.T) {
	cases := []string{"", "0x", "0x1234", strings.Repeat("0", 127), "0x" + strings.Repeat("0", 255)}
	for _, params := range cases {
		_, err := Decode(params)
		var insufficient *InsufficientDataError
		require.ErrorAs(t, err, &insufficient, "params %q", params)
		require.Equal(t, len(trimHexPrefix(params)), insufficient.Length)
	}
}

func TestDecodeInvalidHex(t *testing.T) {
	_, err := Decode(strings.Repeat("zz", 128))
	require.Error(t, err)

	var insufficient *InsufficientDataError
	require.False(t, errors.As(err, &insufficient))
}

func TestDecodePathologicalIsInfinite(t *testing.T) {
	got, err := Decode(strings.Repeat("f", paramsHexLen))
	require.NoError(t, err)
	require.True(t, math.IsInf(got.BaseRateApy, 1))
	require.True(t, math.IsInf(got.MaximumRate, 1))
}

func TestAPYZero(t *testing.T) {
	require.Equal(t, 0.0, APY(big.NewInt(0)))
	require.Equal(t, 0.0, APY(nil))
}

func TestDecodeModelGating(t *testing.T) {
	full := encodeWords(1e15, 2e12, 4e13, 2147483647)
	kink := ModelTypeKink
	adaptive := uint8(2)

	_, err := DecodeModel(&kink, full)
	require.NoError(t, err)
	_, err = DecodeModel(nil, "0x"+full)
	require.NoError(t, err)
	_, err = DecodeModel(&adaptive, full)
	require.ErrorIs(t, err, ErrUnsupportedModel)
	_, err = DecodeModel(nil, "0x1234")
	require.ErrorIs(t, err, ErrUnsupportedModel)
	_, err = DecodeModel(&kink, "")
	require.ErrorIs(t, err, ErrUnsupportedModel)

	_, err = DecodeModel(&kink, "0x1234")
	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}
