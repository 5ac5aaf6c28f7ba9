package utils

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"
)

type feeSuggesterFunc func() (*FeeData, error)

func (f feeSuggesterFunc) SuggestFeeData(context.Context) (*FeeData, error) {
	return f()
}

func TestGweiToWei(t *testing.T) {
	wei, err := GweiToWei(10)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10*params.GWei), wei)

	wei, err = GweiToWei(1.5)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_500_000_000), wei)

	for _, bad := range []float64{1e-10, -1, math.NaN(), math.Inf(1), 1e12} {
		_, err := GweiToWei(bad)
		require.Error(t, err, "%v", bad)
	}
}

func TestScaledFees(t *testing.T) {
	fd := &FeeData{MaxFeePerGas: big.NewInt(3 * params.GWei), MaxPriorityFeePerGas: big.NewInt(params.GWei)}
	fees := fd.ScaledFees(2)
	require.Nil(t, fees.GasPrice)
	require.Equal(t, big.NewInt(6*params.GWei), fees.GasFeeCap)
	require.Equal(t, big.NewInt(params.GWei), fees.GasTipCap)

	// pre-London node: 1 gwei default, tip capped
	fees = (&FeeData{GasPrice: big.NewInt(5)}).ScaledFees(2)
	require.Equal(t, big.NewInt(2*params.GWei), fees.GasFeeCap)
	require.Equal(t, big.NewInt(params.GWei), fees.GasTipCap)

	fees = (&FeeData{MaxFeePerGas: big.NewInt(10), MaxPriorityFeePerGas: big.NewInt(100)}).ScaledFees(1)
	require.Equal(t, big.NewInt(10), fees.GasTipCap)
}

func TestResolveFees(t *testing.T) {
	ctx := context.Background()
	failing := feeSuggesterFunc(func() (*FeeData, error) { return nil, errors.New("unreachable") })

	fees, err := ResolveFees(ctx, failing, 10, 2)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10*params.GWei), fees.GasPrice)

	_, err = ResolveFees(ctx, failing, 0, 2)
	require.Error(t, err)

	_, err = ResolveFees(ctx, failing, 0.0000000001, 2)
	require.ErrorContains(t, err, "sub-wei precision")

	ok := feeSuggesterFunc(func() (*FeeData, error) { return &FeeData{MaxFeePerGas: big.NewInt(7)}, nil })
	fees, err = ResolveFees(ctx, ok, 0, 2)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(14), fees.GasFeeCap)
}

func TestAddGasBuffer(t *testing.T) {
	require.Equal(t, uint64(25200), AddGasBuffer(21000, 20))
	require.Equal(t, uint64(21000), AddGasBuffer(21000, 0))
}

func TestTxParamUnsigned(t *testing.T) {
	chainID := big.NewInt(1337)
	legacy := NewTxParam([20]byte{1}, big.NewInt(1), 21000, Fees{GasPrice: big.NewInt(9)}, nil).Unsigned(chainID, 4)
	require.Equal(t, uint8(0), legacy.Type())
	require.Equal(t, big.NewInt(9), legacy.GasPrice())
	require.Equal(t, uint64(4), legacy.Nonce())

	dynamic := NewTxParam([20]byte{1}, big.NewInt(1), 21000, Fees{GasFeeCap: big.NewInt(20), GasTipCap: big.NewInt(2)}, nil).Unsigned(chainID, 5)
	require.Equal(t, uint8(2), dynamic.Type())
	require.Equal(t, big.NewInt(20), dynamic.GasFeeCap())
	require.Equal(t, chainID, dynamic.ChainId())
}
