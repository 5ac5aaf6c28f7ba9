package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"
)

// ErrBatchSize is returned for a non-positive batch size.
var ErrBatchSize = errors.New("batch size must be positive")

// Span is a half-open index range [Start, End).
type Span struct {
	Start int
	End   int
}

func (s Span) Size() int {
	return s.End - s.Start
}

// Chunks splits n items into ceil(n/size) contiguous spans. Only the last span
// can be shorter than size.
func Chunks(n, size int) ([]Span, error) {
	if size <= 0 {
		return nil, ErrBatchSize
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans, nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatcher sends tasks in batches. All tasks of a batch run concurrently; the
// dispatcher only waits for the first one to succeed before the inter-batch
// delay, the rest keep running in the background.
type Dispatcher struct {
	BatchSize int
	Delay     time.Duration
	Limiter   *rate.Limiter // optional, paces task starts
	Log       log.Logger
}

// Run starts every task into set. It returns once the last batch was started;
// wait on set to collect the outcomes.
func (d *Dispatcher) Run(ctx context.Context, set *ResultSet, tasks []Task) error {
	spans, err := Chunks(len(tasks), d.BatchSize)
	if err != nil {
		return err
	}
	logger := d.Log
	if logger == nil {
		logger = log.Root()
	}

	for i, span := range spans {
		logger.Info("Starting batch", "batch", fmt.Sprintf("%d/%d", i+1, len(spans)), "txs", span.Size())

		futures := make([]*Future, 0, span.Size())
		for _, task := range tasks[span.Start:span.End] {
			if d.Limiter != nil {
				if err := d.Limiter.Wait(ctx); err != nil {
					return err
				}
			}
			futures = append(futures, set.Go(ctx, task))
		}

		first, err := FirstSuccess(ctx, futures)
		if err != nil {
			return err
		}
		if first.OK() {
			logger.Info("First transaction in batch sent", "batch", i+1, "hash", first.Hash)
		}
		go logBatchCompletion(ctx, logger, i+1, futures)

		if i < len(spans)-1 {
			if err := Sleep(ctx, d.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}

func logBatchCompletion(ctx context.Context, logger log.Logger, batch int, futures []*Future) {
	successful := 0
	for _, f := range futures {
		res, err := f.Wait(ctx)
		if err != nil {
			return
		}
		if res.OK() {
			successful++
		} else {
			logger.Warn("Transaction failed", "batch", batch, "tx", res.Label, "err", res.Err)
		}
	}
	logger.Info("Batch completed", "batch", batch, "successful", fmt.Sprintf("%d/%d", successful, len(futures)))
}

// SendFunc is one sequential submission; i is the iteration index.
type SendFunc func(ctx context.Context, i int) (uint64, ethcmn.Hash, error)

// Repeat performs count sequential submissions with delay between them. A failed
// submission is logged and recorded, and the loop goes on.
func Repeat(ctx context.Context, set *ResultSet, logger log.Logger, label string, count int, delay time.Duration, send SendFunc) error {
	for i := 0; i < count; i++ {
		n, hash, err := send(ctx, i)
		set.Record(Result{Label: fmt.Sprintf("%s#%d", label, i+1), Nonce: n, Hash: hash, Err: err})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Transaction failed", "tx", i+1, "nonce", n, "err", err)
		} else {
			logger.Info("Transaction sent", "tx", i+1, "nonce", n, "hash", hash)
		}

		if i < count-1 {
			if err := Sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return nil
}
