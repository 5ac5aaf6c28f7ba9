// Package multicall plans bulk funding through a multicall aggregator: it splits
// recipients into batches, assigns nonces and builds the parallel call arrays of
// one multiCall transaction.
package multicall

import (
	"errors"
	"fmt"
	"math/big"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okx/fake-activity/contracts"
	"github.com/okx/fake-activity/dispatch"
)

var (
	ErrBatchSize = dispatch.ErrBatchSize
	ErrOverflow  = errors.New("uint256 overflow")
)

// Batch is a contiguous slice of recipients funded by one multicall tx. In dual
// mode Nonce is the native tx and Nonce+1 the ERC-20 tx.
type Batch struct {
	Index int
	Start int
	Size  int
	Nonce uint64
}

func (b Batch) End() int {
	return b.Start + b.Size
}

// Partition splits n recipients into ceil(n/size) batches.
func Partition(n, size int) ([]Batch, error) {
	spans, err := dispatch.Chunks(n, size)
	if err != nil {
		return nil, err
	}
	batches := make([]Batch, len(spans))
	for i, s := range spans {
		batches[i] = Batch{Index: i, Start: s.Start, Size: s.Size()}
	}
	return batches, nil
}

// Plan partitions n recipients and assigns nonces from start: one per batch, or
// two per batch in dual mode.
func Plan(n, size int, start uint64, dual bool) ([]Batch, error) {
	batches, err := Partition(n, size)
	if err != nil {
		return nil, err
	}
	step := uint64(1)
	if dual {
		step = 2
	}
	for i := range batches {
		batches[i].Nonce = start + uint64(i)*step
	}
	return batches, nil
}

// Calls are the parallel arrays passed to multiCall.
type Calls struct {
	Targets []ethcmn.Address
	Values  []*big.Int
	Data    [][]byte
}

func (c Calls) Len() int {
	return len(c.Targets)
}

// NativeCalls sends amount of the native asset to every recipient.
func NativeCalls(recipients []ethcmn.Address, amount *big.Int) Calls {
	c := Calls{
		Targets: make([]ethcmn.Address, len(recipients)),
		Values:  make([]*big.Int, len(recipients)),
		Data:    make([][]byte, len(recipients)),
	}
	for i, to := range recipients {
		c.Targets[i] = to
		c.Values[i] = new(big.Int).Set(amount)
		c.Data[i] = []byte{}
	}
	return c
}

// ERC20Calls moves amount of token from sender to every recipient. The multicall
// contract must hold an allowance from sender.
func ERC20Calls(token, sender ethcmn.Address, recipients []ethcmn.Address, amount *big.Int) (Calls, error) {
	c := Calls{
		Targets: make([]ethcmn.Address, len(recipients)),
		Values:  make([]*big.Int, len(recipients)),
		Data:    make([][]byte, len(recipients)),
	}
	for i, to := range recipients {
		data, err := contracts.PackTransferFrom(sender, to, amount)
		if err != nil {
			return Calls{}, fmt.Errorf("failed to pack transferFrom for %s: %w", to, err)
		}
		c.Targets[i] = token
		c.Values[i] = new(big.Int)
		c.Data[i] = data
	}
	return c, nil
}

// TotalValue is the native value the multicall tx must carry.
func (c Calls) TotalValue() (*big.Int, error) {
	total := new(uint256.Int)
	for i, v := range c.Values {
		val, overflow := uint256.FromBig(v)
		if overflow || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: value of call %d", ErrOverflow, i)
		}
		if _, overflow := total.AddOverflow(total, val); overflow {
			return nil, fmt.Errorf("%w: total value after call %d", ErrOverflow, i)
		}
	}
	return total.ToBig(), nil
}

func (c Calls) Pack() ([]byte, error) {
	return contracts.PackMultiCall(c.Targets, c.Values, c.Data)
}

// RequiredAmount is amount × n, the allowance needed to fund n recipients.
func RequiredAmount(amount *big.Int, n int) (*big.Int, error) {
	a, overflow := uint256.FromBig(amount)
	if overflow || amount.Sign() < 0 || n < 0 {
		return nil, fmt.Errorf("%w: amount %s × %d", ErrOverflow, amount, n)
	}
	total, overflow := new(uint256.Int).MulOverflow(a, uint256.NewInt(uint64(n)))
	if overflow {
		return nil, fmt.Errorf("%w: amount %s × %d", ErrOverflow, amount, n)
	}
	return total.ToBig(), nil
}
