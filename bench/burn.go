package bench

import (
	"context"
	"math/big"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/okx/fake-activity/contracts"
	"github.com/okx/fake-activity/dispatch"
	"github.com/okx/fake-activity/utils"
)

type BurnParams struct {
	Burner     ethcmn.Address
	Iterations uint64
	Count      int
	Delay      time.Duration
	Fees       utils.Fees
}

// BurnGas calls burnGas(Iterations) Count times with one gas estimate.
func BurnGas(ctx context.Context, s *Sender, set *dispatch.ResultSet, p BurnParams, logger log.Logger) error {
	data, err := contracts.PackBurnGas(p.Iterations)
	if err != nil {
		return err
	}
	param := utils.NewTxParam(p.Burner, new(big.Int), 0, p.Fees, data)
	if param.GasLimit, err = s.Estimate(ctx, param, 0); err != nil {
		return err
	}
	logger.Info("Burning gas", "burner", p.Burner, "iterations", p.Iterations, "gas", param.GasLimit, "txs", p.Count)

	return dispatch.Repeat(ctx, set, logger, "burnGas", p.Count, p.Delay, func(ctx context.Context, _ int) (uint64, ethcmn.Hash, error) {
		return s.Send(ctx, param)
	})
}
