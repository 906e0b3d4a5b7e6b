package lens

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const vaultLensABIJSON = `[
  {
    "inputs": [{"internalType": "address", "name": "vault", "type": "address"}],
    "name": "getVaultInfoFull",
    "outputs": [
      {
        "components": [
        {"internalType": "uint256", "name": "timestamp", "type": "uint256"},
        {"internalType": "address", "name": "vault", "type": "address"},
        {"internalType": "string", "name": "vaultName", "type": "string"},
        {"internalType": "string", "name": "vaultSymbol", "type": "string"},
        {"internalType": "uint256", "name": "vaultDecimals", "type": "uint256"},
        {"internalType": "address", "name": "asset", "type": "address"},
        {"internalType": "string", "name": "assetName", "type": "string"},
        {"internalType": "string", "name": "assetSymbol", "type": "string"},
        {"internalType": "uint256", "name": "assetDecimals", "type": "uint256"},
        {"internalType": "address", "name": "unitOfAccount", "type": "address"},
        {"internalType": "string", "name": "unitOfAccountName", "type": "string"},
        {"internalType": "string", "name": "unitOfAccountSymbol", "type": "string"},
        {"internalType": "uint256", "name": "unitOfAccountDecimals", "type": "uint256"},
        {"internalType": "uint256", "name": "totalShares", "type": "uint256"},
        {"internalType": "uint256", "name": "totalCash", "type": "uint256"},
        {"internalType": "uint256", "name": "totalBorrowed", "type": "uint256"},
        {"internalType": "uint256", "name": "totalAssets", "type": "uint256"},
        {"internalType": "uint256", "name": "accumulatedFeesShares", "type": "uint256"},
        {"internalType": "uint256", "name": "accumulatedFeesAssets", "type": "uint256"},
        {"internalType": "address", "name": "governorFeeReceiver", "type": "address"},
        {"internalType": "address", "name": "protocolFeeReceiver", "type": "address"},
        {"internalType": "uint256", "name": "protocolFeeShare", "type": "uint256"},
        {"internalType": "uint256", "name": "interestFee", "type": "uint256"},
        {"internalType": "uint256", "name": "hookedOperations", "type": "uint256"},
        {"internalType": "uint256", "name": "configFlags", "type": "uint256"},
        {"internalType": "uint256", "name": "supplyCap", "type": "uint256"},
        {"internalType": "uint256", "name": "borrowCap", "type": "uint256"},
        {"internalType": "uint256", "name": "maxLiquidationDiscount", "type": "uint256"},
        {"internalType": "uint256", "name": "liquidationCoolOffTime", "type": "uint256"},
        {"internalType": "address", "name": "dToken", "type": "address"},
        {"internalType": "address", "name": "oracle", "type": "address"},
        {"internalType": "address", "name": "interestRateModel", "type": "address"},
        {"internalType": "address", "name": "hookTarget", "type": "address"},
        {"internalType": "address", "name": "evc", "type": "address"},
        {"internalType": "address", "name": "protocolConfig", "type": "address"},
        {"internalType": "address", "name": "balanceTracker", "type": "address"},
        {"internalType": "address", "name": "permit2", "type": "address"},
        {"internalType": "address", "name": "creator", "type": "address"},
        {"internalType": "address", "name": "governorAdmin", "type": "address"},
        {
          "components": [
          {"internalType": "bool", "name": "queryFailure", "type": "bool"},
          {"internalType": "bytes", "name": "queryFailureReason", "type": "bytes"},
          {"internalType": "address", "name": "vault", "type": "address"},
          {"internalType": "address", "name": "interestRateModel", "type": "address"},
          {
            "components": [
            {"internalType": "uint256", "name": "cash", "type": "uint256"},
            {"internalType": "uint256", "name": "borrows", "type": "uint256"},
            {"internalType": "uint256", "name": "borrowSPY", "type": "uint256"},
            {"internalType": "uint256", "name": "borrowAPY", "type": "uint256"},
            {"internalType": "uint256", "name": "supplyAPY", "type": "uint256"}
            ],
            "internalType": "struct InterestRateInfo[]", "name": "interestRateInfo", "type": "tuple[]"
          },
          {
            "components": [
            {"internalType": "address", "name": "interestRateModel", "type": "address"},
            {"internalType": "enum InterestRateModelType", "name": "interestRateModelType", "type": "uint8"},
            {"internalType": "bytes", "name": "interestRateModelParams", "type": "bytes"}
            ],
            "internalType": "struct InterestRateModelDetailedInfo", "name": "interestRateModelInfo", "type": "tuple"
          }
          ],
          "internalType": "struct VaultInterestRateModelInfo", "name": "irmInfo", "type": "tuple"
        },
        {
          "components": [
          {"internalType": "address", "name": "collateral", "type": "address"},
          {"internalType": "uint256", "name": "borrowLTV", "type": "uint256"},
          {"internalType": "uint256", "name": "liquidationLTV", "type": "uint256"},
          {"internalType": "uint256", "name": "initialLiquidationLTV", "type": "uint256"},
          {"internalType": "uint256", "name": "targetTimestamp", "type": "uint256"},
          {"internalType": "uint256", "name": "rampDuration", "type": "uint256"}
          ],
          "internalType": "struct LTVInfo[]", "name": "collateralLTVInfo", "type": "tuple[]"
        },
        {
          "components": [
          {"internalType": "bool", "name": "queryFailure", "type": "bool"},
          {"internalType": "bytes", "name": "queryFailureReason", "type": "bytes"},
          {"internalType": "uint256", "name": "timestamp", "type": "uint256"},
          {"internalType": "address", "name": "oracle", "type": "address"},
          {"internalType": "address", "name": "asset", "type": "address"},
          {"internalType": "address", "name": "unitOfAccount", "type": "address"},
          {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutMid", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutBid", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutAsk", "type": "uint256"}
          ],
          "internalType": "struct AssetPriceInfo", "name": "liabilityPriceInfo", "type": "tuple"
        },
        {
          "components": [
          {"internalType": "bool", "name": "queryFailure", "type": "bool"},
          {"internalType": "bytes", "name": "queryFailureReason", "type": "bytes"},
          {"internalType": "uint256", "name": "timestamp", "type": "uint256"},
          {"internalType": "address", "name": "oracle", "type": "address"},
          {"internalType": "address", "name": "asset", "type": "address"},
          {"internalType": "address", "name": "unitOfAccount", "type": "address"},
          {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutMid", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutBid", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutAsk", "type": "uint256"}
          ],
          "internalType": "struct AssetPriceInfo[]", "name": "collateralPriceInfo", "type": "tuple[]"
        },
        {
          "components": [
          {"internalType": "address", "name": "oracle", "type": "address"},
          {"internalType": "string", "name": "name", "type": "string"},
          {"internalType": "bytes", "name": "oracleInfo", "type": "bytes"}
          ],
          "internalType": "struct OracleDetailedInfo", "name": "oracleInfo", "type": "tuple"
        },
        {
          "components": [
          {"internalType": "bool", "name": "queryFailure", "type": "bool"},
          {"internalType": "bytes", "name": "queryFailureReason", "type": "bytes"},
          {"internalType": "uint256", "name": "timestamp", "type": "uint256"},
          {"internalType": "address", "name": "oracle", "type": "address"},
          {"internalType": "address", "name": "asset", "type": "address"},
          {"internalType": "address", "name": "unitOfAccount", "type": "address"},
          {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutMid", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutBid", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutAsk", "type": "uint256"}
          ],
          "internalType": "struct AssetPriceInfo", "name": "backupAssetPriceInfo", "type": "tuple"
        },
        {
          "components": [
          {"internalType": "address", "name": "oracle", "type": "address"},
          {"internalType": "string", "name": "name", "type": "string"},
          {"internalType": "bytes", "name": "oracleInfo", "type": "bytes"}
          ],
          "internalType": "struct OracleDetailedInfo", "name": "backupAssetOracleInfo", "type": "tuple"
        }
        ],
        "internalType": "struct VaultInfoFull", "name": "arg_0", "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	vaultLensABI     abi.ABI
	vaultLensABIOnce sync.Once
	vaultLensABIErr  error
)

// VaultLensABI returns the parsed VaultLens ABI.
func VaultLensABI() (abi.ABI, error) {
	vaultLensABIOnce.Do(func() {
		vaultLensABI, vaultLensABIErr = abi.JSON(strings.NewReader(vaultLensABIJSON))
	})
	return vaultLensABI, vaultLensABIErr
}

// VaultInfoFull mirrors the lens output tuple. Field order and names follow the ABI.
type VaultInfoFull struct {
	Timestamp              *big.Int
	Vault                  common.Address
	VaultName              string
	VaultSymbol            string
	VaultDecimals          *big.Int
	Asset                  common.Address
	AssetName              string
	AssetSymbol            string
	AssetDecimals          *big.Int
	UnitOfAccount          common.Address
	UnitOfAccountName      string
	UnitOfAccountSymbol    string
	UnitOfAccountDecimals  *big.Int
	TotalShares            *big.Int
	TotalCash              *big.Int
	TotalBorrowed          *big.Int
	TotalAssets            *big.Int
	AccumulatedFeesShares  *big.Int
	AccumulatedFeesAssets  *big.Int
	GovernorFeeReceiver    common.Address
	ProtocolFeeReceiver    common.Address
	ProtocolFeeShare       *big.Int
	InterestFee            *big.Int
	HookedOperations       *big.Int
	ConfigFlags            *big.Int
	SupplyCap              *big.Int
	BorrowCap              *big.Int
	MaxLiquidationDiscount *big.Int
	LiquidationCoolOffTime *big.Int
	DToken                 common.Address
	Oracle                 common.Address
	InterestRateModel      common.Address
	HookTarget             common.Address
	Evc                    common.Address
	ProtocolConfig         common.Address
	BalanceTracker         common.Address
	Permit2                common.Address
	Creator                common.Address
	GovernorAdmin          common.Address
	IrmInfo                VaultInterestRateModelInfo
	CollateralLTVInfo      []LTVInfo
	LiabilityPriceInfo     AssetPriceInfo
	CollateralPriceInfo    []AssetPriceInfo
	OracleInfo             OracleDetailedInfo
	BackupAssetPriceInfo   AssetPriceInfo
	BackupAssetOracleInfo  OracleDetailedInfo
}

// OracleDetailedInfo describes an oracle adapter.
type OracleDetailedInfo struct {
	Oracle     common.Address
	Name       string
	OracleInfo []byte
}

// AssetPriceInfo is an oracle quote.
type AssetPriceInfo struct {
	QueryFailure       bool
	QueryFailureReason []byte
	Timestamp          *big.Int
	Oracle             common.Address
	Asset              common.Address
	UnitOfAccount      common.Address
	AmountIn           *big.Int
	AmountOutMid       *big.Int
	AmountOutBid       *big.Int
	AmountOutAsk       *big.Int
}

// LTVInfo is one collateral entry, LTVs in basis points.
type LTVInfo struct {
	Collateral            common.Address
	BorrowLTV             *big.Int
	LiquidationLTV        *big.Int
	InitialLiquidationLTV *big.Int
	TargetTimestamp       *big.Int
	RampDuration          *big.Int
}

// VaultInterestRateModelInfo is the irmInfo tuple.
type VaultInterestRateModelInfo struct {
	QueryFailure          bool
	QueryFailureReason    []byte
	Vault                 common.Address
	InterestRateModel     common.Address
	InterestRateInfo      []InterestRateInfo
	InterestRateModelInfo InterestRateModelDetailedInfo
}

// InterestRateModelDetailedInfo carries the model type and its packed params.
type InterestRateModelDetailedInfo struct {
	InterestRateModel       common.Address
	InterestRateModelType   uint8
	InterestRateModelParams []byte
}

// InterestRateInfo is one sampled point of the rate model.
type InterestRateInfo struct {
	Cash      *big.Int
	Borrows   *big.Int
	BorrowSPY *big.Int
	BorrowAPY *big.Int
	SupplyAPY *big.Int
}
