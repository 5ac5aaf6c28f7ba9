// Package bench drives the activity runs: bulk funding, ring transfers, bridge
// calls, gas burning and testnet minting.
package bench

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/okx/fake-activity/contracts"
	"github.com/okx/fake-activity/nonce"
	"github.com/okx/fake-activity/utils"
)

// Sender signs and submits transactions for one key through its own sequencer.
type Sender struct {
	Key    *ecdsa.PrivateKey
	Addr   ethcmn.Address
	Client utils.Client
	Nonces *nonce.Sequencer
}

// NewSender builds a sender and syncs its nonce with the node.
func NewSender(ctx context.Context, cli utils.Client, key *ecdsa.PrivateKey) (*Sender, error) {
	addr := utils.GetEthAddressFromPK(key)
	s := &Sender{Key: key, Addr: addr, Client: cli, Nonces: nonce.New(addr, cli)}
	if _, err := s.Nonces.Sync(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Send submits param with the next nonce and returns once the node accepted it.
func (s *Sender) Send(ctx context.Context, param utils.TxParam) (uint64, ethcmn.Hash, error) {
	return s.Nonces.Submit(ctx, func(ctx context.Context, n uint64) (ethcmn.Hash, error) {
		return s.Client.SendEthereumTx(ctx, s.Key, n, param)
	})
}

// SendAndWait submits param and waits for a successful receipt.
func (s *Sender) SendAndWait(ctx context.Context, param utils.TxParam) (*types.Receipt, error) {
	_, hash, err := s.Send(ctx, param)
	if err != nil {
		return nil, err
	}
	return utils.WaitMined(ctx, s.Client, hash)
}

// Estimate returns the gas of param sent by s plus bufferPercent.
func (s *Sender) Estimate(ctx context.Context, param utils.TxParam, bufferPercent int) (uint64, error) {
	gas, err := s.Client.EstimateGas(ctx, param.CallMsg(s.Addr))
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas for call to %s: %w", param.To, err)
	}
	return utils.AddGasBuffer(gas, bufferPercent), nil
}

// EnsureAllowance approves spender for approveAmount of token and waits for the
// approval when the current allowance is below required. It reports whether an
// approval was sent.
func EnsureAllowance(ctx context.Context, s *Sender, token, spender ethcmn.Address, required, approveAmount *big.Int, fees utils.Fees, logger log.Logger) (bool, error) {
	erc20 := contracts.NewERC20(token, s.Client)
	allowance, err := erc20.Allowance(ctx, s.Addr, spender)
	if err != nil {
		return false, err
	}
	logger.Info("Allowance", "token", token, "spender", spender, "allowance", allowance, "required", required)
	if allowance.Cmp(required) >= 0 {
		return false, nil
	}

	data, err := contracts.PackApprove(spender, approveAmount)
	if err != nil {
		return false, err
	}
	param := utils.NewTxParam(token, new(big.Int), 0, fees, data)
	if param.GasLimit, err = s.Estimate(ctx, param, approveGasBufferPercent); err != nil {
		return false, err
	}
	receipt, err := s.SendAndWait(ctx, param)
	if err != nil {
		return false, fmt.Errorf("approval of %s failed: %w", spender, err)
	}
	logger.Info("Approved tokens", "token", token, "spender", spender, "amount", approveAmount, "hash", receipt.TxHash)
	return true, nil
}

const approveGasBufferPercent = 20

// ErrInsufficientBalance means the sender holds less token than a run needs.
var ErrInsufficientBalance = errors.New("insufficient token balance")

// EnsureBalance fails when the sender's balance of token is below required.
func EnsureBalance(ctx context.Context, s *Sender, token ethcmn.Address, required *big.Int, logger log.Logger) error {
	balance, err := contracts.NewERC20(token, s.Client).BalanceOf(ctx, s.Addr)
	if err != nil {
		return err
	}
	logger.Info("Token balance", "token", token, "balance", balance, "required", required)
	if balance.Cmp(required) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, required)
	}
	return nil
}

// TokenAmount reads the decimals of token and converts a human amount such as
// "0.001" into base units.
func TokenAmount(ctx context.Context, caller contracts.Caller, token ethcmn.Address, amount string) (*big.Int, uint8, error) {
	decimals, err := contracts.NewERC20(token, caller).Decimals(ctx)
	if err != nil {
		return nil, 0, err
	}
	v, err := utils.ParseUnits(amount, decimals)
	if err != nil {
		return nil, 0, err
	}
	return v, decimals, nil
}
