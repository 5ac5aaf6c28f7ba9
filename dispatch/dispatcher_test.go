package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var discard = log.NewLogger(log.DiscardHandler())

func hashOf(i int) ethcmn.Hash {
	return ethcmn.BigToHash(big.NewInt(int64(i + 1)))
}

func TestChunks(t *testing.T) {
	tests := []struct {
		n, size int
		sizes   []int
	}{
		{250, 100, []int{100, 100, 50}},
		{200, 100, []int{100, 100}},
		{1, 100, []int{1}},
		{0, 100, []int{}},
		{7, 3, []int{3, 3, 1}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.n, tt.size), func(t *testing.T) {
			spans, err := Chunks(tt.n, tt.size)
			require.NoError(t, err)
			require.Len(t, spans, (tt.n+tt.size-1)/tt.size)

			sizes := make([]int, 0, len(spans))
			next := 0
			for _, s := range spans {
				require.Equal(t, next, s.Start, "spans must be contiguous")
				next = s.End
				sizes = append(sizes, s.Size())
			}
			require.Equal(t, tt.sizes, sizes)
		})
	}

	_, err := Chunks(10, 0)
	require.ErrorIs(t, err, ErrBatchSize)
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	sendErr := errors.New("replacement transaction underpriced")

	tasks := make([]Task, 5)
	for i := range tasks {
		i := i
		tasks[i] = Task{
			Label: fmt.Sprintf("transfer-%d", i),
			Send: func(context.Context) (uint64, ethcmn.Hash, error) {
				if i == 2 {
					return uint64(i), ethcmn.Hash{}, sendErr
				}
				return uint64(i), hashOf(i), nil
			},
		}
	}

	set := NewResultSet(nil)
	d := &Dispatcher{BatchSize: 5, Log: discard}
	require.NoError(t, d.Run(ctx, set, tasks))

	rep, err := set.Wait(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, rep.RunID)
	require.Equal(t, 5, rep.Total)
	require.Equal(t, 4, rep.Succeeded)
	require.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Failures, 1)
	require.ErrorIs(t, rep.Failures[0].Err, sendErr)
	require.Equal(t, "transfer-2", rep.Failures[0].Label)

	for i, res := range rep.Results {
		require.Equal(t, i, res.Index)
		if i != 2 {
			require.Equal(t, hashOf(i), res.Hash)
		}
	}
}

func TestDispatcherBatchesAndDelays(t *testing.T) {
	ctx := context.Background()
	var started int32
	tasks := make([]Task, 7)
	for i := range tasks {
		i := i
		tasks[i] = Task{Label: fmt.Sprint(i), Send: func(context.Context) (uint64, ethcmn.Hash, error) {
			atomic.AddInt32(&started, 1)
			return 0, hashOf(i), nil
		}}
	}

	set := NewResultSet(nil)
	d := &Dispatcher{
		BatchSize: 3,
		Delay:     20 * time.Millisecond,
		Limiter:   rate.NewLimiter(rate.Inf, 1),
		Log:       discard,
	}
	begin := time.Now()
	require.NoError(t, d.Run(ctx, set, tasks))
	// three batches, two delays
	require.GreaterOrEqual(t, time.Since(begin), 40*time.Millisecond)

	rep, err := set.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, rep.Succeeded)
	require.Equal(t, int32(7), atomic.LoadInt32(&started))
}

func TestDispatcherRejectsBadBatchSize(t *testing.T) {
	d := &Dispatcher{BatchSize: 0, Log: discard}
	require.ErrorIs(t, d.Run(context.Background(), NewResultSet(nil), nil), ErrBatchSize)
}

func TestFirstSuccess(t *testing.T) {
	ctx := context.Background()
	set := NewResultSet(nil)
	failed := set.Record(Result{Label: "a", Err: errors.New("boom")})
	ok := set.Record(Result{Label: "b", Hash: hashOf(1)})

	res, err := FirstSuccess(ctx, []*Future{failed, ok})
	require.NoError(t, err)
	require.Equal(t, "b", res.Label)

	res, err = FirstSuccess(ctx, []*Future{failed})
	require.NoError(t, err)
	require.False(t, res.OK())

	taskCtx, stop := context.WithCancel(ctx)
	defer stop()
	blocked := set.Go(taskCtx, Task{Label: "slow", Send: func(ctx context.Context) (uint64, ethcmn.Hash, error) {
		<-ctx.Done()
		return 0, ethcmn.Hash{}, ctx.Err()
	}})
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = FirstSuccess(short, []*Future{blocked})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRepeatContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	set := NewResultSet(nil)
	next := uint64(10)

	err := Repeat(ctx, set, discard, "burnGas", 4, time.Millisecond, func(_ context.Context, i int) (uint64, ethcmn.Hash, error) {
		n := next
		if i == 1 {
			return n, ethcmn.Hash{}, errors.New("insufficient funds")
		}
		next++
		return n, hashOf(i), nil
	})
	require.NoError(t, err)

	rep, err := set.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, rep.Total)
	require.Equal(t, 3, rep.Succeeded)
	require.Equal(t, "burnGas#2", rep.Failures[0].Label)

	var nonces []uint64
	for _, r := range rep.Results {
		if r.OK() {
			nonces = append(nonces, r.Nonce)
		}
	}
	require.Equal(t, []uint64{10, 11, 12}, nonces)
}

func TestRepeatStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	set := NewResultSet(nil)
	calls := 0
	err := Repeat(ctx, set, discard, "bridge", 10, time.Hour, func(context.Context, int) (uint64, ethcmn.Hash, error) {
		calls++
		cancel()
		return 0, hashOf(0), nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestHashWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txhashes.log")
	w, err := NewHashWriter(path, discard)
	require.NoError(t, err)

	set := NewResultSet(w)
	set.Record(Result{Label: "fund#1", Nonce: 3, Hash: hashOf(3)})
	set.Record(Result{Label: "fund#2", Nonce: 4, Err: errors.New("rejected")})
	f := set.Go(context.Background(), Task{Label: "fund#3", Send: func(context.Context) (uint64, ethcmn.Hash, error) {
		return 5, hashOf(5), nil
	}})
	_, err = f.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "only accepted submissions are persisted")
	require.Equal(t, fmt.Sprintf("%s,fund#1,3,%s", set.ID(), hashOf(3).Hex()), lines[0])
}

func TestHashWriterDropsWritesAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txhashes.log")
	w, err := NewHashWriter(path, discard)
	require.NoError(t, err)

	set := NewResultSet(w)
	release := make(chan struct{})
	f := set.Go(context.Background(), Task{Label: "slow", Send: func(context.Context) (uint64, ethcmn.Hash, error) {
		<-release
		return 1, hashOf(1), nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = set.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, w.Close())

	close(release)
	res, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.True(t, res.OK())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, strings.TrimSpace(string(data)))
}
