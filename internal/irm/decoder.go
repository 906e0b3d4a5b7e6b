package irm

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

const (
	// SecondsPerYear is the fixed 365-day year used to annualize per-second rates.
	SecondsPerYear = 31536000
	// Uint32Max scales the kink word: kink fraction = kinkRaw / Uint32Max.
	Uint32Max = 4294967295

	// ModelTypeKink is the lens enum value of the piecewise-linear kink model.
	ModelTypeKink uint8 = 1

	wordHexLen   = 64
	paramsHexLen = 4 * wordHexLen
)

var (
	rateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)
	uint32Max = big.NewInt(Uint32Max)
)

// ErrUnsupportedModel is returned for models other than the kink model, or params that
// cannot be recognised as one.
var ErrUnsupportedModel = errors.New("unsupported interest rate model")

// InsufficientDataError reports a params payload shorter than four 32-byte words.
type InsufficientDataError struct {
	Length int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient params length: %d hex chars, need %d", e.Length, paramsHexLen)
}

// Raw holds the four words of an encoded kink model.
type Raw struct {
	BaseRate *uint256.Int
	Slope1   *uint256.Int
	Slope2   *uint256.Int
	Kink     *uint256.Int
}

// Percent is a decoded kink model. KinkPercent is a utilization on a 0-100 scale,
// the three rates are annualized APYs on a 0-100 scale.
type Percent struct {
	KinkPercent float64 `json:"kink_pct" yaml:"kink_pct"`
	BaseRateApy float64 `json:"base_rate_pct" yaml:"base_rate_pct"`
	RateAtKink  float64 `json:"kink_rate_pct" yaml:"kink_rate_pct"`
	MaximumRate float64 `json:"max_rate_pct" yaml:"max_rate_pct"`
}

// ParseRaw splits a hex payload (optional 0x prefix) into its four big-endian words.
// Characters after the fourth word are ignored.
func ParseRaw(params string) (Raw, error) {
	params = trimHexPrefix(params)
	if len(params) < paramsHexLen {
		return Raw{}, &InsufficientDataError{Length: len(params)}
	}

	var words [4]*uint256.Int
	for i := range words {
		chunk := params[i*wordHexLen : (i+1)*wordHexLen]
		b, err := hexutil.Decode("0x" + chunk)
		if err != nil {
			return Raw{}, fmt.Errorf("decode word %d: %w", i, err)
		}
		words[i] = new(uint256.Int).SetBytes(b)
	}

	return Raw{
		BaseRate: words[0],
		Slope1:   words[1],
		Slope2:   words[2],
		Kink:     words[3],
	}, nil
}

// Rates returns the per-second rates (scaled by 1e27) at 0%, kink and 100% utilization.
// Arithmetic is unbounded so malformed words cannot wrap.
func (r Raw) Rates() (rate0, rateAtKink, rate100 *big.Int) {
	base := r.BaseRate.ToBig()
	kink := r.Kink.ToBig()

	rate0 = base
	rateAtKink = new(big.Int).Mul(r.Slope1.ToBig(), kink)
	rateAtKink.Add(rateAtKink, base)

	remaining := new(big.Int).Sub(uint32Max, kink)
	rate100 = new(big.Int).Mul(r.Slope2.ToBig(), remaining)
	rate100.Add(rate100, rateAtKink)
	return rate0, rateAtKink, rate100
}

// KinkFraction returns kinkRaw / Uint32Max.
func (r Raw) KinkFraction() float64 {
	frac, _ := new(big.Rat).SetFrac(r.Kink.ToBig(), uint32Max).Float64()
	return frac
}

// Percent converts the raw words into full-precision percentages.
func (r Raw) Percent() Percent {
	rate0, rateAtKink, rate100 := r.Rates()
	return Percent{
		KinkPercent: r.KinkFraction() * 100,
		BaseRateApy: APY(rate0) * 100,
		RateAtKink:  APY(rateAtKink) * 100,
		MaximumRate: APY(rate100) * 100,
	}
}

// Decode parses a kink model payload into percentages. Results are not rounded.
func Decode(params string) (Percent, error) {
	raw, err := ParseRaw(params)
	if err != nil {
		return Percent{}, err
	}
	return raw.Percent(), nil
}

// DecodeModel decodes params reported by the lens for a model type. A nil modelType means
// the type is unknown, in which case a full-length payload is assumed to be a kink model.
func DecodeModel(modelType *uint8, params string) (Percent, error) {
	if params == "" || params == "0x" {
		return Percent{}, fmt.Errorf("%w: empty params", ErrUnsupportedModel)
	}
	if modelType == nil {
		if len(trimHexPrefix(params)) < paramsHexLen {
			return Percent{}, fmt.Errorf("%w: untyped params too short", ErrUnsupportedModel)
		}
		return Decode(params)
	}
	if *modelType != ModelTypeKink {
		return Percent{}, fmt.Errorf("%w: type %d", ErrUnsupportedModel, *modelType)
	}
	return Decode(params)
}

// APY annualizes a per-second rate scaled by 1e27: (1 + r/1e27)^SecondsPerYear - 1.
// Zero maps to exactly zero; overflow yields +Inf rather than an error.
func APY(ratePerSecond *big.Int) float64 {
	if ratePerSecond == nil || ratePerSecond.Sign() == 0 {
		return 0
	}
	r, _ := new(big.Rat).SetFrac(ratePerSecond, rateScale).Float64()
	if r == 0 {
		return 0
	}
	return math.Pow(1+r, SecondsPerYear) - 1
}

func trimHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
