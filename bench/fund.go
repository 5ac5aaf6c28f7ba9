package bench

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/okx/fake-activity/dispatch"
	"github.com/okx/fake-activity/multicall"
	"github.com/okx/fake-activity/utils"
)

// ErrNonceDrift means the sender's nonce moved away from the funding plan, for
// example because another process sent from the same key.
var ErrNonceDrift = errors.New("nonce drifted from funding plan")

// FundParams describes one bulk funding run. A nil NativeAmount skips native
// funding and a nil TokenAmount skips ERC-20 funding; both set is dual mode.
type FundParams struct {
	Multicall        ethcmn.Address
	Recipients       []ethcmn.Address
	BatchSize        int
	Delay            time.Duration
	NativeAmount     *big.Int
	Token            ethcmn.Address
	TokenAmount      *big.Int
	Fees             utils.Fees
	GasLimit         uint64 // 0 estimates each batch
	GasBufferPercent int
}

func (p FundParams) validate() error {
	if len(p.Recipients) == 0 {
		return errors.New("no recipients to fund")
	}
	if p.NativeAmount == nil && p.TokenAmount == nil {
		return errors.New("nothing to fund, enable native or ERC-20 funding")
	}
	if p.TokenAmount != nil && p.Token == (ethcmn.Address{}) {
		return errors.New("ERC-20 funding needs a token address")
	}
	return nil
}

// Fund sends the recipients their amounts in multicall batches. A batch whose
// submission fails aborts the run; earlier batches stay sent.
func Fund(ctx context.Context, s *Sender, set *dispatch.ResultSet, p FundParams, logger log.Logger) error {
	if err := p.validate(); err != nil {
		return err
	}
	n := len(p.Recipients)

	if p.TokenAmount != nil {
		required, err := multicall.RequiredAmount(p.TokenAmount, n)
		if err != nil {
			return err
		}
		if err := EnsureBalance(ctx, s, p.Token, required, logger); err != nil {
			return err
		}
		if _, err := EnsureAllowance(ctx, s, p.Token, p.Multicall, required, required, p.Fees, logger); err != nil {
			return err
		}
	}

	start, err := s.Nonces.Current()
	if err != nil {
		return err
	}
	dual := p.NativeAmount != nil && p.TokenAmount != nil
	batches, err := multicall.Plan(n, p.BatchSize, start, dual)
	if err != nil {
		return err
	}
	logger.Info("Funding accounts", "accounts", n, "batches", len(batches), "startingNonce", start, "dual", dual)

	for i, b := range batches {
		recipients := p.Recipients[b.Start:b.End()]

		if p.NativeAmount != nil {
			calls := multicall.NativeCalls(recipients, p.NativeAmount)
			if err := sendFundBatch(ctx, s, set, p, fmt.Sprintf("native#%d", b.Index+1), b.Nonce, calls, logger); err != nil {
				return fmt.Errorf("native batch %d/%d: %w", i+1, len(batches), err)
			}
		}
		if p.TokenAmount != nil {
			calls, err := multicall.ERC20Calls(p.Token, s.Addr, recipients, p.TokenAmount)
			if err != nil {
				return err
			}
			nonce := b.Nonce
			if p.NativeAmount != nil {
				nonce++
			}
			if err := sendFundBatch(ctx, s, set, p, fmt.Sprintf("erc20#%d", b.Index+1), nonce, calls, logger); err != nil {
				return fmt.Errorf("erc20 batch %d/%d: %w", i+1, len(batches), err)
			}
		}

		if i < len(batches)-1 {
			if err := dispatch.Sleep(ctx, p.Delay); err != nil {
				return err
			}
		}
	}
	logger.Info("All accounts funded", "accounts", n)
	return nil
}

func sendFundBatch(ctx context.Context, s *Sender, set *dispatch.ResultSet, p FundParams, label string, planned uint64, calls multicall.Calls, logger log.Logger) error {
	if err := checkPlannedNonce(s, planned); err != nil {
		set.Record(dispatch.Result{Label: label, Nonce: planned, Err: err})
		return err
	}
	value, err := calls.TotalValue()
	if err != nil {
		return err
	}
	data, err := calls.Pack()
	if err != nil {
		return fmt.Errorf("failed to pack multiCall: %w", err)
	}

	param := utils.NewTxParam(p.Multicall, value, p.GasLimit, p.Fees, data)
	if param.GasLimit == 0 {
		if param.GasLimit, err = s.Estimate(ctx, param, p.GasBufferPercent); err != nil {
			set.Record(dispatch.Result{Label: label, Err: err})
			return err
		}
	}

	n, hash, err := s.Send(ctx, param)
	set.Record(dispatch.Result{Label: label, Nonce: n, Hash: hash, Err: err})
	if err != nil {
		logger.Error("Batch failed", "batch", label, "nonce", n, "err", err)
		return err
	}
	logger.Info("Batch sent", "batch", label, "recipients", calls.Len(), "value", utils.FormatEther(value), "nonce", n, "hash", hash)
	return nil
}

func checkPlannedNonce(s *Sender, planned uint64) error {
	current, err := s.Nonces.Current()
	if err != nil {
		return err
	}
	if current != planned {
		return fmt.Errorf("%w: planned %d, sender at %d", ErrNonceDrift, planned, current)
	}
	return nil
}
