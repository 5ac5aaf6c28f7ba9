package utils

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// TxPoolStatus is the txpool_status response.
type TxPoolStatus struct {
	BaseFee hexutil.Uint64 `json:"baseFee"`
	Pending hexutil.Uint64 `json:"pending"`
	Queued  hexutil.Uint64 `json:"queued"`
}

// Size returns the number of txs waiting in the pool.
func (s *TxPoolStatus) Size() uint64 {
	return uint64(s.BaseFee + s.Pending + s.Queued)
}

// ChainReader is what the TPS monitor reads from a node.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	TransactionCount(ctx context.Context, blockHash ethcmn.Hash) (uint, error)
	PoolStatus(ctx context.Context) (*TxPoolStatus, error)
}

// TPSStats is a snapshot of the monitor counters.
type TPSStats struct {
	StartBlock  uint64
	LastBlock   uint64
	TotalTxs    uint64
	IntervalTxs uint64
	InstantTPS  float64
	AverageTPS  float64
	MaxTPS      float64
	MinTPS      float64 // -1 until a non-empty interval was seen
	PoolSize    uint64
}

// TPSMonitor reports the on-chain throughput produced while activity runs.
type TPSMonitor struct {
	chain ChainReader
	log   log.Logger

	mu            sync.Mutex
	started       bool
	initTime      time.Time
	intervalStart time.Time
	stats         TPSStats
}

func NewTPSMonitor(chain ChainReader, logger log.Logger) *TPSMonitor {
	return &TPSMonitor{
		chain: chain,
		log:   logger,
		stats: TPSStats{MinTPS: -1},
	}
}

// Run calls Step every interval until ctx is done.
func (m *TPSMonitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := m.Step(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.Step(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.log.Warn("TPS step failed", "err", err)
			}
		}
	}
}

// Step processes the blocks produced since the previous step. The first step
// only records the current head.
func (m *TPSMonitor) Step(ctx context.Context) error {
	head, err := m.chain.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to query block number: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if !m.started {
		m.started = true
		m.initTime = now
		m.intervalStart = now
		m.stats.StartBlock = head
		m.stats.LastBlock = head
		m.log.Info("TPS monitor started", "block", head)
		return nil
	}
	if head <= m.stats.LastBlock {
		return nil
	}

	from := m.stats.LastBlock + 1
	var intervalTxs uint64
	for height := from; height <= head; height++ {
		header, err := m.chain.HeaderByNumber(ctx, new(big.Int).SetUint64(height))
		if err != nil {
			return fmt.Errorf("failed to query header %d: %w", height, err)
		}
		count, err := m.chain.TransactionCount(ctx, header.Hash())
		if err != nil {
			return fmt.Errorf("failed to count txs of block %d: %w", height, err)
		}
		intervalTxs += uint64(count)
		m.stats.LastBlock = height
	}

	m.stats.TotalTxs += intervalTxs
	m.stats.IntervalTxs = intervalTxs
	if d := now.Sub(m.intervalStart).Seconds(); d > 0 {
		m.stats.InstantTPS = float64(intervalTxs) / d
	}
	if d := now.Sub(m.initTime).Seconds(); d > 0 {
		m.stats.AverageTPS = float64(m.stats.TotalTxs) / d
	}
	if m.stats.InstantTPS > m.stats.MaxTPS {
		m.stats.MaxTPS = m.stats.InstantTPS
	}
	if intervalTxs > 0 && (m.stats.MinTPS < 0 || m.stats.InstantTPS < m.stats.MinTPS) {
		m.stats.MinTPS = m.stats.InstantTPS
	}
	m.intervalStart = now

	if status, err := m.chain.PoolStatus(ctx); err == nil {
		m.stats.PoolSize = status.Size()
	}

	m.log.Info("TPS",
		"blocks", fmt.Sprintf("%d-%d", from, head),
		"txs", intervalTxs,
		"instant", fmt.Sprintf("%.2f", m.stats.InstantTPS),
		"avg", fmt.Sprintf("%.2f", m.stats.AverageTPS),
		"max", fmt.Sprintf("%.2f", m.stats.MaxTPS),
		"total", m.stats.TotalTxs,
		"pool", m.stats.PoolSize,
	)
	return nil
}

// Stats returns a snapshot of the counters.
func (m *TPSMonitor) Stats() TPSStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
