package utils

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

var (
	// DefaultGasPrice is used for legacy txs when nothing else is known.
	DefaultGasPrice = big.NewInt(100 * params.GWei)
	// DefaultPriorityFee is what wallets fall back to when the node has no tip oracle.
	DefaultPriorityFee = big.NewInt(params.GWei)
	// DefaultMaxFeePerGas is used when the node reports no max fee (pre-London chains).
	DefaultMaxFeePerGas = big.NewInt(params.GWei)
)

// FeeData is the fee snapshot reported by the node.
type FeeData struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int // nil before London
	MaxPriorityFeePerGas *big.Int // nil before London
}

// Fees are the fee fields put on a transaction. GasPrice selects a legacy tx,
// otherwise GasFeeCap/GasTipCap select a dynamic fee tx.
type Fees struct {
	GasPrice  *big.Int
	GasFeeCap *big.Int
	GasTipCap *big.Int
}

// ScaledFees returns dynamic fees whose cap is multiplier times the reported max
// fee per gas. The tip never exceeds the cap.
func (f *FeeData) ScaledFees(multiplier int64) Fees {
	base := f.MaxFeePerGas
	if base == nil {
		base = DefaultMaxFeePerGas
	}
	feeCap := new(big.Int).Mul(base, big.NewInt(multiplier))

	tip := f.MaxPriorityFeePerGas
	if tip == nil {
		tip = DefaultPriorityFee
	}
	if tip.Cmp(feeCap) > 0 {
		tip = feeCap
	}
	return Fees{GasFeeCap: feeCap, GasTipCap: new(big.Int).Set(tip)}
}

// FeeSuggester is the part of Client needed to price transactions.
type FeeSuggester interface {
	SuggestFeeData(ctx context.Context) (*FeeData, error)
}

// ResolveFees returns a legacy gas price when gasPriceGwei is set, otherwise
// dynamic fees scaled from the node's fee data.
func ResolveFees(ctx context.Context, cli FeeSuggester, gasPriceGwei float64, multiplier int64) (Fees, error) {
	if gasPriceGwei > 0 {
		price, err := GweiToWei(gasPriceGwei)
		if err != nil {
			return Fees{}, err
		}
		return Fees{GasPrice: price}, nil
	}
	fd, err := cli.SuggestFeeData(ctx)
	if err != nil {
		return Fees{}, fmt.Errorf("failed to query fee data: %w", err)
	}
	return fd.ScaledFees(multiplier), nil
}

// AddGasBuffer returns gas increased by percent.
func AddGasBuffer(gas uint64, percent int) uint64 {
	if percent <= 0 {
		return gas
	}
	return gas * uint64(100+percent) / 100
}

// GweiToWei converts a gas price in gwei to wei. Prices that are negative, not
// finite or below wei precision are rejected.
func GweiToWei(gwei float64) (*big.Int, error) {
	if math.IsNaN(gwei) || math.IsInf(gwei, 0) || gwei < 0 {
		return nil, fmt.Errorf("invalid gas price %v gwei", gwei)
	}
	wei := gwei * params.GWei
	if wei >= math.MaxUint64 {
		return nil, fmt.Errorf("gas price %v gwei out of range", gwei)
	}
	if math.Floor(wei) != wei {
		return nil, fmt.Errorf("gas price %v gwei has sub-wei precision", gwei)
	}
	return new(big.Int).SetUint64(uint64(wei)), nil
}
