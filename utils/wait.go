package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	// DefaultPollInterval is the receipt polling interval.
	DefaultPollInterval = 1 * time.Second
	// DefaultTxMinedTimeout bounds the wait for a receipt.
	DefaultTxMinedTimeout = 3 * time.Minute
)

// ErrTxReverted is returned when a waited tx is included with a failed status.
var ErrTxReverted = errors.New("transaction reverted")

// ReceiptReader is the part of Client needed to wait for inclusion.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash ethcmn.Hash) (*types.Receipt, error)
}

// WaitMined polls for the receipt of hash with the default interval and timeout.
func WaitMined(ctx context.Context, cli ReceiptReader, hash ethcmn.Hash) (*types.Receipt, error) {
	return WaitMinedWithin(ctx, cli, hash, DefaultPollInterval, DefaultTxMinedTimeout)
}

// WaitMinedWithin polls for the receipt of hash every interval until timeout.
// A receipt with a failed status returns ErrTxReverted together with the receipt.
func WaitMinedWithin(ctx context.Context, cli ReceiptReader, hash ethcmn.Hash, interval, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var receipt *types.Receipt
	err := retry.Do(
		func() error {
			r, err := cli.TransactionReceipt(ctx, hash)
			if err != nil {
				return err
			}
			receipt = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for tx %s: %w", hash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("tx %s: %w", hash, ErrTxReverted)
	}
	return receipt, nil
}
