package bench

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okx/fake-activity/accounts"
	"github.com/okx/fake-activity/dispatch"
	"github.com/okx/fake-activity/utils"
)

// TransferParams describes one ring transfer run.
type TransferParams struct {
	Accounts         []accounts.Account
	Amount           *big.Int
	BatchSize        int
	Delay            time.Duration
	GasBufferPercent int
	Fees             utils.Fees
	Concurrency      int           // bound on concurrent nonce queries
	Limiter          *rate.Limiter // optional
	RpcBatch         bool
}

// Recipient returns the ring successor of account i among n accounts.
func Recipient(i, n int) int {
	return (i + 1) % n
}

// Transfer makes every account send Amount to its ring successor. Failed sends
// are recorded in set and never stop the run.
func Transfer(ctx context.Context, clients []utils.Client, set *dispatch.ResultSet, p TransferParams, logger log.Logger) error {
	n := len(p.Accounts)
	if n == 0 {
		return accounts.ErrNoAccounts
	}
	if len(clients) == 0 {
		return errors.New("no rpc clients")
	}

	wallets, err := openWallets(ctx, clients, p.Accounts, p.Concurrency)
	if err != nil {
		return err
	}

	// every transfer has the same shape, one estimate covers them all
	sample := utils.NewTxParam(wallets[Recipient(0, n)].Addr, p.Amount, 0, p.Fees, nil)
	gas, err := wallets[0].Estimate(ctx, sample, p.GasBufferPercent)
	if err != nil {
		return err
	}
	logger.Info("Estimated transfer gas", "gas", gas, "accounts", n)

	params := make([]utils.TxParam, n)
	for i := range wallets {
		params[i] = utils.NewTxParam(wallets[Recipient(i, n)].Addr, p.Amount, gas, p.Fees, nil)
	}

	if p.RpcBatch {
		return sendRingBatched(ctx, wallets, params, set, p, logger)
	}

	tasks := make([]dispatch.Task, n)
	for i := range wallets {
		w, param := wallets[i], params[i]
		tasks[i] = dispatch.Task{
			Label: fmt.Sprintf("transfer#%d", i),
			Send: func(ctx context.Context) (uint64, ethcmn.Hash, error) {
				return w.Send(ctx, param)
			},
		}
	}
	d := &dispatch.Dispatcher{BatchSize: p.BatchSize, Delay: p.Delay, Limiter: p.Limiter, Log: logger}
	return d.Run(ctx, set, tasks)
}

// openWallets builds one synced sender per account, spreading them over clients.
func openWallets(ctx context.Context, clients []utils.Client, accs []accounts.Account, concurrency int) ([]*Sender, error) {
	wallets := make([]*Sender, len(accs))
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i := range accs {
		i := i
		g.Go(func() error {
			key, err := accs[i].Key()
			if err != nil {
				return fmt.Errorf("account %d: %w", i, err)
			}
			w, err := NewSender(gctx, clients[i%len(clients)], key)
			if err != nil {
				return fmt.Errorf("account %d: %w", i, err)
			}
			wallets[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return wallets, nil
}

// sendRingBatched signs each dispatch batch up front and submits it as one
// JSON-RPC batch per client.
func sendRingBatched(ctx context.Context, wallets []*Sender, params []utils.TxParam, set *dispatch.ResultSet, p TransferParams, logger log.Logger) error {
	spans, err := dispatch.Chunks(len(wallets), p.BatchSize)
	if err != nil {
		return err
	}

	for bi, span := range spans {
		byClient := make(map[utils.Client][]int)
		var order []utils.Client
		for i := span.Start; i < span.End; i++ {
			cli := wallets[i].Client
			if _, ok := byClient[cli]; !ok {
				order = append(order, cli)
			}
			byClient[cli] = append(byClient[cli], i)
		}

		successful := 0
		var first ethcmn.Hash
		for _, cli := range order {
			if err := waitTokens(ctx, p.Limiter, len(byClient[cli])); err != nil {
				return err
			}
			for _, res := range sendSigned(ctx, cli, wallets, params, byClient[cli]) {
				set.Record(res)
				if res.OK() {
					successful++
					if first == (ethcmn.Hash{}) {
						first = res.Hash
					}
				} else {
					logger.Warn("Transaction failed", "batch", bi+1, "tx", res.Label, "err", res.Err)
				}
			}
		}
		if first != (ethcmn.Hash{}) {
			logger.Info("First transaction in batch sent", "batch", bi+1, "hash", first)
		}
		logger.Info("Batch completed", "batch", bi+1, "successful", fmt.Sprintf("%d/%d", successful, span.Size()))

		if bi < len(spans)-1 {
			if err := dispatch.Sleep(ctx, p.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// waitTokens takes n tokens from limiter in chunks no larger than its burst.
func waitTokens(ctx context.Context, limiter *rate.Limiter, n int) error {
	if limiter == nil {
		return nil
	}
	for n > 0 {
		k := min(n, limiter.Burst())
		if err := limiter.WaitN(ctx, k); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

func sendSigned(ctx context.Context, cli utils.Client, wallets []*Sender, params []utils.TxParam, idx []int) []dispatch.Result {
	results := make([]dispatch.Result, 0, len(idx))
	txs := make([]*types.Transaction, 0, len(idx))
	signed := make([]int, 0, len(idx))

	for _, i := range idx {
		w := wallets[i]
		label := fmt.Sprintf("transfer#%d", i)
		n, err := w.Nonces.Current()
		if err == nil {
			var tx *types.Transaction
			if tx, err = cli.SignTx(w.Key, n, params[i]); err == nil {
				txs = append(txs, tx)
				signed = append(signed, i)
				continue
			}
		}
		results = append(results, dispatch.Result{Label: label, Nonce: n, Err: err})
	}
	if len(txs) == 0 {
		return results
	}

	hashes, batchErr := cli.SendMultipleEthereumTx(ctx, txs)
	for k, i := range signed {
		res := dispatch.Result{Label: fmt.Sprintf("transfer#%d", i), Nonce: txs[k].Nonce()}
		switch {
		case k < len(hashes) && hashes[k] != (ethcmn.Hash{}):
			res.Hash = hashes[k]
			wallets[i].Nonces.Advance()
		case batchErr != nil:
			res.Err = batchErr
		default:
			res.Err = errors.New("no hash returned")
		}
		results = append(results, res)
	}
	return results
}
