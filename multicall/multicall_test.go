package multicall

import (
	"math/big"
	"testing"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/require"

	"github.com/okx/fake-activity/contracts"
)

func addrs(n int) []ethcmn.Address {
	out := make([]ethcmn.Address, n)
	for i := range out {
		out[i] = ethcmn.BigToAddress(big.NewInt(int64(i + 1)))
	}
	return out
}

func TestPartition(t *testing.T) {
	batches, err := Partition(250, 100)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	require.Equal(t, []int{100, 100, 50}, []int{batches[0].Size, batches[1].Size, batches[2].Size})
	require.Equal(t, 200, batches[2].Start)
	require.Equal(t, 250, batches[2].End())

	batches, err = Partition(1000, 100)
	require.NoError(t, err)
	require.Len(t, batches, 10)
	require.Equal(t, 100, batches[9].Size)

	_, err = Partition(10, 0)
	require.ErrorIs(t, err, ErrBatchSize)
}

func TestPlanNonces(t *testing.T) {
	single, err := Plan(250, 100, 7, false)
	require.NoError(t, err)
	for i, b := range single {
		require.Equal(t, uint64(7+i), b.Nonce)
	}

	dual, err := Plan(250, 100, 7, true)
	require.NoError(t, err)
	require.Equal(t, []uint64{7, 9, 11}, []uint64{dual[0].Nonce, dual[1].Nonce, dual[2].Nonce})
}

func TestNativeCallsTotal(t *testing.T) {
	amount := big.NewInt(10_000_000_000_000_000) // 0.01 ether
	calls := NativeCalls(addrs(100), amount)
	require.Equal(t, 100, calls.Len())

	total, err := calls.TotalValue()
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Mul(amount, big.NewInt(100)), total)

	for i, target := range calls.Targets {
		require.Equal(t, addrs(100)[i], target)
		require.Empty(t, calls.Data[i])
	}

	// amounts are copied, not shared
	calls.Values[0].SetInt64(1)
	require.Equal(t, int64(10_000_000_000_000_000), amount.Int64())
}

func TestERC20Calls(t *testing.T) {
	token := ethcmn.HexToAddress("0x89A44C4fa11630E11425c177cE08828179A249A6")
	sender := ethcmn.HexToAddress("0xaa")
	recipients := addrs(3)

	calls, err := ERC20Calls(token, sender, recipients, big.NewInt(1_000_000))
	require.NoError(t, err)

	total, err := calls.TotalValue()
	require.NoError(t, err)
	require.Zero(t, total.Sign())

	method := contracts.ERC20ABI.Methods["transferFrom"]
	for i := range recipients {
		require.Equal(t, token, calls.Targets[i])
		require.Equal(t, method.ID, calls.Data[i][:4])
		args, err := method.Inputs.Unpack(calls.Data[i][4:])
		require.NoError(t, err)
		require.Equal(t, sender, args[0])
		require.Equal(t, recipients[i], args[1])
	}

	packed, err := calls.Pack()
	require.NoError(t, err)
	require.Equal(t, contracts.MulticallABI.Methods["multiCall"].ID, packed[:4])
}

func TestTotalValueOverflow(t *testing.T) {
	calls := NativeCalls(addrs(2), math.MaxBig256)
	_, err := calls.TotalValue()
	require.ErrorIs(t, err, ErrOverflow)
}

func TestRequiredAmount(t *testing.T) {
	total, err := RequiredAmount(big.NewInt(1_000_000), 1000)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000_000_000), total)

	_, err = RequiredAmount(math.MaxBig256, 2)
	require.ErrorIs(t, err, ErrOverflow)
}
