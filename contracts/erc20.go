package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ethcmn "github.com/ethereum/go-ethereum/common"
)

// Caller executes read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ERC20 reads token state through a Caller.
type ERC20 struct {
	Address ethcmn.Address
	caller  Caller
}

func NewERC20(addr ethcmn.Address, caller Caller) *ERC20 {
	return &ERC20{Address: addr, caller: caller}
}

func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	out, err := t.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", out[0])
	}
	return d, nil
}

func (t *ERC20) Allowance(ctx context.Context, owner, spender ethcmn.Address) (*big.Int, error) {
	out, err := t.call(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBig(out[0])
}

func (t *ERC20) BalanceOf(ctx context.Context, account ethcmn.Address) (*big.Int, error) {
	out, err := t.call(ctx, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return asBig(out[0])
}

func (t *ERC20) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := ERC20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	to := t.Address
	raw, err := t.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call on %s failed: %w", method, t.Address, err)
	}
	out, err := ERC20ABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s from %s: %w", method, t.Address, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result from %s", method, t.Address)
	}
	return out, nil
}

func asBig(v interface{}) (*big.Int, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", v)
	}
	return b, nil
}

func PackApprove(spender ethcmn.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("approve", spender, amount)
}

func PackTransferFrom(from, to ethcmn.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("transferFrom", from, to, amount)
}

func PackMint(to ethcmn.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("mint", to, amount)
}
