package lens

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/irm"
)

type fakeCaller struct {
	resp []byte
	err  error
	msg  ethereum.CallMsg
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.msg = msg
	return f.resp, f.err
}

var (
	testVault = common.HexToAddress("0x797DD80692c3b2dAdabCe8e30C07fDE5307D48a9")
	testAsset = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testColl  = common.HexToAddress("0xD8b27CF359b7D15710a5BE299AF6e7Bf904984C2")
	testIRM   = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

// fillZeroBigInts replaces nil *big.Int fields so the tuple can be packed.
func fillZeroBigInts(v reflect.Value) {
	bigIntType := reflect.TypeOf(&big.Int{})
	switch v.Kind() {
	case reflect.Ptr:
		if v.Type() == bigIntType && v.IsNil() && v.CanSet() {
			v.Set(reflect.ValueOf(new(big.Int)))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			fillZeroBigInts(v.Field(i))
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			fillZeroBigInts(v.Index(i))
		}
	}
}

func sampleInfo(params []byte) VaultInfoFull {
	info := VaultInfoFull{
		Timestamp:         big.NewInt(1_700_000_000),
		Vault:             testVault,
		VaultName:         "EVK Vault eUSDC-1",
		VaultSymbol:       "eUSDC-1",
		VaultDecimals:     big.NewInt(6),
		Asset:             testAsset,
		AssetName:         "USD Coin",
		AssetSymbol:       "USDC",
		AssetDecimals:     big.NewInt(6),
		TotalCash:         big.NewInt(400_000_000_000),
		TotalBorrowed:     big.NewInt(600_000_123_456),
		TotalAssets:       big.NewInt(1_000_000_123_456),
		SupplyCap:         big.NewInt(2_000_000_000_000),
		BorrowCap:         big.NewInt(1_800_000_000_000),
		InterestRateModel: testIRM,
		IrmInfo: VaultInterestRateModelInfo{
			Vault:             testVault,
			InterestRateModel: testIRM,
			InterestRateModelInfo: InterestRateModelDetailedInfo{
				InterestRateModel:       testIRM,
				InterestRateModelType:   irm.ModelTypeKink,
				InterestRateModelParams: params,
			},
		},
		CollateralLTVInfo: []LTVInfo{
			{Collateral: testColl, BorrowLTV: big.NewInt(8500), LiquidationLTV: big.NewInt(8700)},
			{Collateral: testAsset, BorrowLTV: big.NewInt(0), LiquidationLTV: big.NewInt(9000)},
		},
	}
	fillZeroBigInts(reflect.ValueOf(&info).Elem())
	return info
}

func packInfo(t *testing.T, info VaultInfoFull) []byte {
	t.Helper()
	parsed, err := VaultLensABI()
	require.NoError(t, err)
	out, err := parsed.Methods[methodVaultInfoFull].Outputs.Pack(info)
	require.NoError(t, err)
	return out
}

func TestVaultInfoFullRoundTrip(t *testing.T) {
	params := bytes.Repeat([]byte{0x01}, 128)
	caller := &fakeCaller{resp: packInfo(t, sampleInfo(params))}
	l := New(caller, common.Address{})

	got, err := l.VaultInfoFull(context.Background(), testVault)
	require.NoError(t, err)

	require.NotNil(t, caller.msg.To)
	require.Equal(t, DefaultAddress, *caller.msg.To)
	parsed, _ := VaultLensABI()
	require.Equal(t, parsed.Methods[methodVaultInfoFull].ID, caller.msg.Data[:4])
	require.Equal(t, "eUSDC-1", got.VaultSymbol)
	require.Equal(t, testVault, got.Vault)
	require.Equal(t, irm.ModelTypeKink, got.IrmInfo.InterestRateModelInfo.InterestRateModelType)
	require.Equal(t, params, got.IrmInfo.InterestRateModelInfo.InterestRateModelParams)
	require.Len(t, got.CollateralLTVInfo, 2)
	require.Equal(t, int64(8500), got.CollateralLTVInfo[0].BorrowLTV.Int64())
}

func TestFetchVaultInfoDescales(t *testing.T) {
	params := bytes.Repeat([]byte{0xab}, 128)
	l := New(&fakeCaller{resp: packInfo(t, sampleInfo(params))}, common.Address{})

	info, err := l.FetchVaultInfo(context.Background(), testVault)
	require.NoError(t, err)

	require.Equal(t, 400000.0, info.TotalCash)
	require.Equal(t, 600000.12, info.TotalBorrowed)
	require.Equal(t, 1000000.12, info.TotalAssets)
	require.Equal(t, 2000000.0, info.SupplyCap)
	require.Equal(t, 1800000.0, info.BorrowCap)
	require.EqualValues(t, 6, info.VaultDecimals)
	require.EqualValues(t, 1_700_000_000, info.Timestamp)
	require.NotNil(t, info.IRMType)
	require.Equal(t, irm.ModelTypeKink, *info.IRMType)
	require.Len(t, info.IRMParams, 2+256)
	require.Equal(t, "0xab", info.IRMParams[:4])
	require.Len(t, info.CollateralLTV, 1, "zero borrow ltv entry should be dropped")
	ltv := info.CollateralLTV[0]
	require.Equal(t, testColl.Hex(), ltv.Collateral)
	require.Equal(t, 0.85, ltv.BorrowLTV)
	require.Equal(t, 0.87, ltv.LiquidationLTV)
}

func TestDescaleZeroDecimals(t *testing.T) {
	info := sampleInfo(nil)
	info.VaultDecimals = big.NewInt(0)
	info.TotalAssets = big.NewInt(1234)

	got := Descale(info)
	require.Equal(t, 1234.0, got.TotalAssets)
	require.Empty(t, got.IRMParams)
}

func TestVaultInfoFullErrors(t *testing.T) {
	l := New(&fakeCaller{}, common.Address{})
	_, err := l.VaultInfoFull(context.Background(), testVault)
	require.ErrorIs(t, err, ErrEmptyResult)

	rpcErr := errors.New("execution reverted")
	l = New(&fakeCaller{err: rpcErr}, common.Address{})
	_, err = l.VaultInfoFull(context.Background(), testVault)
	require.ErrorIs(t, err, rpcErr)

	custom := common.HexToAddress("0x4444444444444444444444444444444444444444")
	require.Equal(t, custom, New(nil, custom).Address())
	_, err = New(nil, custom).VaultInfoFull(context.Background(), testVault)
	require.Error(t, err)
}
