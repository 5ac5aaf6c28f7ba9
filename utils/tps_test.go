package utils

import (
	"context"
	"math/big"
	"testing"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

type fakeChain struct {
	head   uint64
	counts map[uint64]uint
	pool   TxPoolStatus
}

func (c *fakeChain) BlockNumber(context.Context) (uint64, error) {
	return c.head, nil
}

func (c *fakeChain) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: number, Extra: number.Bytes()}, nil
}

func (c *fakeChain) TransactionCount(_ context.Context, blockHash ethcmn.Hash) (uint, error) {
	for n, count := range c.counts {
		h := &types.Header{Number: new(big.Int).SetUint64(n), Extra: new(big.Int).SetUint64(n).Bytes()}
		if h.Hash() == blockHash {
			return count, nil
		}
	}
	return 0, nil
}

func (c *fakeChain) PoolStatus(context.Context) (*TxPoolStatus, error) {
	return &c.pool, nil
}

func TestTPSMonitor(t *testing.T) {
	chain := &fakeChain{head: 10, counts: map[uint64]uint{11: 100, 12: 50, 13: 0}, pool: TxPoolStatus{Pending: 7, Queued: 3}}
	m := NewTPSMonitor(chain, log.NewLogger(log.DiscardHandler()))
	ctx := context.Background()

	if err := m.Step(ctx); err != nil {
		t.Fatalf("first step: %v", err)
	}
	if s := m.Stats(); s.StartBlock != 10 || s.TotalTxs != 0 {
		t.Fatalf("first step should only record the head, got %+v", s)
	}

	chain.head = 12
	if err := m.Step(ctx); err != nil {
		t.Fatalf("second step: %v", err)
	}
	s := m.Stats()
	if s.TotalTxs != 150 || s.IntervalTxs != 150 {
		t.Errorf("expected 150 txs, got total=%d interval=%d", s.TotalTxs, s.IntervalTxs)
	}
	if s.LastBlock != 12 {
		t.Errorf("expected last block 12, got %d", s.LastBlock)
	}
	if s.PoolSize != 10 {
		t.Errorf("expected pool size 10, got %d", s.PoolSize)
	}
	if s.MaxTPS < s.InstantTPS {
		t.Errorf("max TPS %.2f below instant %.2f", s.MaxTPS, s.InstantTPS)
	}

	// no new block
	if err := m.Step(ctx); err != nil {
		t.Fatalf("idle step: %v", err)
	}
	if got := m.Stats().TotalTxs; got != 150 {
		t.Errorf("idle step changed total to %d", got)
	}

	chain.head = 13
	if err := m.Step(ctx); err != nil {
		t.Fatalf("empty block step: %v", err)
	}
	if got := m.Stats(); got.IntervalTxs != 0 || got.TotalTxs != 150 {
		t.Errorf("empty block should add nothing, got %+v", got)
	}
}
