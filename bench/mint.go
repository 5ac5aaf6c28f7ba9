package bench

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/log"

	"github.com/okx/fake-activity/contracts"
	"github.com/okx/fake-activity/network"
	"github.com/okx/fake-activity/utils"
)

// MintWholeTokens is the amount minted per run, in whole tokens.
const MintWholeTokens = 10_000_000

// Mint mints MintWholeTokens of the network's test USDC to the sender and waits
// for inclusion.
func Mint(ctx context.Context, s *Sender, net network.Params, fees utils.Fees, logger log.Logger) (*big.Int, error) {
	if !net.Mintable || !net.HasToken() {
		return nil, fmt.Errorf("%w: minting on %s", network.ErrUnsupported, net.Name)
	}
	decimals, err := contracts.NewERC20(net.Token, s.Client).Decimals(ctx)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Mul(big.NewInt(MintWholeTokens), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))

	data, err := contracts.PackMint(s.Addr, amount)
	if err != nil {
		return nil, err
	}
	param := utils.NewTxParam(net.Token, new(big.Int), 0, fees, data)
	if param.GasLimit, err = s.Estimate(ctx, param, approveGasBufferPercent); err != nil {
		return nil, err
	}
	receipt, err := s.SendAndWait(ctx, param)
	if err != nil {
		return nil, fmt.Errorf("mint on %s failed: %w", net.Name, err)
	}
	logger.Info("Minted tokens", "token", net.Token, "amount", utils.FormatUnits(amount, decimals), "hash", receipt.TxHash)
	return amount, nil
}
