// Package lens reads vault state through the VaultLens contract and descales it.
package lens

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
)

// DefaultAddress is the VaultLens deployment the clusters are read through.
var DefaultAddress = common.HexToAddress("0xc3c45633e45041bf3be841f89d2cb51e2f657403")

// ErrEmptyResult is returned when the lens call returns no data.
var ErrEmptyResult = errors.New("lens returned empty result")

const methodVaultInfoFull = "getVaultInfoFull"

// Caller performs eth_call. chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Lens is a VaultLens binding.
type Lens struct {
	caller  Caller
	address common.Address
}

// New binds the lens at address. A zero address selects DefaultAddress.
func New(caller Caller, address common.Address) *Lens {
	if address == (common.Address{}) {
		address = DefaultAddress
	}
	return &Lens{caller: caller, address: address}
}

// Address returns the bound lens address.
func (l *Lens) Address() common.Address { return l.address }

// VaultInfoFull calls getVaultInfoFull(vault) at the latest block.
func (l *Lens) VaultInfoFull(ctx context.Context, vault common.Address) (VaultInfoFull, error) {
	if l.caller == nil {
		return VaultInfoFull{}, fmt.Errorf("chain client is nil")
	}
	parsed, err := VaultLensABI()
	if err != nil {
		return VaultInfoFull{}, fmt.Errorf("parse lens abi: %w", err)
	}

	data, err := parsed.Pack(methodVaultInfoFull, vault)
	if err != nil {
		return VaultInfoFull{}, fmt.Errorf("pack %s: %w", methodVaultInfoFull, err)
	}
	msg := ethereum.CallMsg{To: &l.address, Data: data}
	resp, err := l.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return VaultInfoFull{}, fmt.Errorf("call %s: %w", methodVaultInfoFull, err)
	}
	if len(resp) == 0 {
		return VaultInfoFull{}, ErrEmptyResult
	}
	out, err := parsed.Unpack(methodVaultInfoFull, resp)
	if err != nil {
		return VaultInfoFull{}, fmt.Errorf("unpack %s: %w", methodVaultInfoFull, err)
	}
	if len(out) == 0 {
		return VaultInfoFull{}, ErrEmptyResult
	}
	return *abi.ConvertType(out[0], new(VaultInfoFull)).(*VaultInfoFull), nil
}

// FetchVaultInfo calls the lens and descales the result.
func (l *Lens) FetchVaultInfo(ctx context.Context, vault common.Address) (model.VaultInfo, error) {
	raw, err := l.VaultInfoFull(ctx, vault)
	if err != nil {
		return model.VaultInfo{}, err
	}
	return Descale(raw), nil
}

// Descale converts amounts by 10^vaultDecimals, keeping balances to 2 decimals and caps to
// whole units, and turns LTV basis points into fractions. Collateral entries with a zero
// borrow LTV are dropped.
func Descale(raw VaultInfoFull) model.VaultInfo {
	decimals := smallUint(raw.VaultDecimals)
	irmInfo := raw.IrmInfo.InterestRateModelInfo
	irmType := irmInfo.InterestRateModelType

	info := model.VaultInfo{
		Timestamp:         bigUint64(raw.Timestamp),
		Vault:             raw.Vault.Hex(),
		VaultName:         raw.VaultName,
		VaultSymbol:       raw.VaultSymbol,
		VaultDecimals:     decimals,
		Asset:             raw.Asset.Hex(),
		AssetName:         raw.AssetName,
		AssetSymbol:       raw.AssetSymbol,
		AssetDecimals:     smallUint(raw.AssetDecimals),
		TotalCash:         scaleAmount(raw.TotalCash, decimals, 2),
		TotalBorrowed:     scaleAmount(raw.TotalBorrowed, decimals, 2),
		TotalAssets:       scaleAmount(raw.TotalAssets, decimals, 2),
		SupplyCap:         scaleAmount(raw.SupplyCap, decimals, 0),
		BorrowCap:         scaleAmount(raw.BorrowCap, decimals, 0),
		InterestRateModel: raw.InterestRateModel.Hex(),
		IRMType:           &irmType,
		CollateralLTV:     []model.CollateralLTV{},
	}
	if len(irmInfo.InterestRateModelParams) > 0 {
		info.IRMParams = hexutil.Encode(irmInfo.InterestRateModelParams)
	}

	for _, item := range raw.CollateralLTVInfo {
		borrowLTV := bpsToFraction(item.BorrowLTV)
		if borrowLTV == 0 {
			continue
		}
		info.CollateralLTV = append(info.CollateralLTV, model.CollateralLTV{
			Collateral:     item.Collateral.Hex(),
			BorrowLTV:      borrowLTV,
			LiquidationLTV: bpsToFraction(item.LiquidationLTV),
		})
	}
	return info
}

var bpsDenominator = decimal.NewFromInt(10000)

func bpsToFraction(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, 0).Div(bpsDenominator).InexactFloat64()
}

func scaleAmount(v *big.Int, decimals uint8, places int32) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).Round(places).InexactFloat64()
}

func smallUint(v *big.Int) uint8 {
	if v == nil || v.Sign() < 0 || !v.IsUint64() || v.Uint64() > 255 {
		return 0
	}
	return uint8(v.Uint64())
}

func bigUint64(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}
