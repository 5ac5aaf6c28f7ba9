package nonce

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	nonce uint64
	err   error
	calls int
}

func (s *stubSource) QueryNonce(_ context.Context, _ ethcmn.Address) (uint64, error) {
	s.calls++
	return s.nonce, s.err
}

func okSend(ctx context.Context, nonce uint64) (ethcmn.Hash, error) {
	return ethcmn.BigToHash(new(big.Int).SetUint64(nonce + 1)), nil
}

func TestSequencerRequiresSync(t *testing.T) {
	seq := New(ethcmn.HexToAddress("0x01"), &stubSource{nonce: 7})

	_, err := seq.Current()
	require.ErrorIs(t, err, ErrNotSynced)

	_, _, err = seq.Submit(context.Background(), okSend)
	require.ErrorIs(t, err, ErrNotSynced)
}

func TestSequencerAdvancesOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{nonce: 5}
	seq := New(ethcmn.HexToAddress("0x01"), src)

	n, err := seq.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)

	used, hash, err := seq.Submit(ctx, okSend)
	require.NoError(t, err)
	require.Equal(t, uint64(5), used)
	require.NotEqual(t, ethcmn.Hash{}, hash)

	sendErr := errors.New("nonce too low")
	used, _, err = seq.Submit(ctx, func(context.Context, uint64) (ethcmn.Hash, error) {
		return ethcmn.Hash{}, sendErr
	})
	require.ErrorIs(t, err, sendErr)
	require.Equal(t, uint64(6), used)

	cur, err := seq.Current()
	require.NoError(t, err)
	require.Equal(t, uint64(6), cur, "failed submission must not consume a nonce")

	require.Equal(t, uint64(7), seq.Advance())
}

func TestSequencerResync(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{nonce: 3}
	seq := NewAt(ethcmn.HexToAddress("0x02"), src, 10)

	cur, err := seq.Current()
	require.NoError(t, err)
	require.Equal(t, uint64(10), cur)

	n, err := seq.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
	require.Equal(t, 1, src.calls)

	src.err = errors.New("connection refused")
	_, err = seq.Sync(ctx)
	require.Error(t, err)
	cur, _ = seq.Current()
	require.Equal(t, uint64(3), cur)
}

func TestSequencerConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	seq := NewAt(ethcmn.HexToAddress("0x03"), nil, 100)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]bool)
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, _, err := seq.Submit(ctx, okSend)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, 50)
	for n := uint64(100); n < 150; n++ {
		require.True(t, seen[n], "nonce %d not used", n)
	}
	_, err := seq.Sync(ctx)
	require.Error(t, err, "sync without a source must fail")
}
