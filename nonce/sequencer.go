// Package nonce hands out transaction nonces for one signing key without asking
// the node before every send.
package nonce

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ethcmn "github.com/ethereum/go-ethereum/common"
)

// ErrNotSynced is returned when a nonce is requested before the first Sync.
var ErrNotSynced = errors.New("nonce sequencer not synced")

// Source reports the next nonce the network expects from an address.
type Source interface {
	QueryNonce(ctx context.Context, addr ethcmn.Address) (uint64, error)
}

// SendFunc submits one transaction with the given nonce and returns its hash once
// the node acknowledged it.
type SendFunc func(ctx context.Context, nonce uint64) (ethcmn.Hash, error)

// Sequencer tracks the next nonce of one address. The counter only moves after a
// successful submission, so a rejected send never leaves a gap.
type Sequencer struct {
	addr   ethcmn.Address
	source Source

	mu     sync.Mutex
	next   uint64
	synced bool
}

// New returns an unsynced sequencer for addr. Call Sync before use.
func New(addr ethcmn.Address, source Source) *Sequencer {
	return &Sequencer{addr: addr, source: source}
}

// NewAt returns a sequencer already primed with next.
func NewAt(addr ethcmn.Address, source Source, next uint64) *Sequencer {
	return &Sequencer{addr: addr, source: source, next: next, synced: true}
}

func (s *Sequencer) Address() ethcmn.Address {
	return s.addr
}

// Sync replaces the local counter with the pending nonce reported by the node.
// It is the recovery path after a partially failed run.
func (s *Sequencer) Sync(ctx context.Context) (uint64, error) {
	if s.source == nil {
		return 0, fmt.Errorf("no nonce source for %s", s.addr)
	}
	n, err := s.source.QueryNonce(ctx, s.addr)
	if err != nil {
		return 0, fmt.Errorf("failed to query nonce of %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.next = n
	s.synced = true
	s.mu.Unlock()
	return n, nil
}

// Current returns the nonce the next submission will use.
func (s *Sequencer) Current() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.synced {
		return 0, ErrNotSynced
	}
	return s.next, nil
}

// Advance moves the counter past an acknowledged submission made outside Submit.
func (s *Sequencer) Advance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Submit calls send with the current nonce and advances the counter only when
// send succeeds. Submissions for one sequencer are serialized.
func (s *Sequencer) Submit(ctx context.Context, send SendFunc) (uint64, ethcmn.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.synced {
		return 0, ethcmn.Hash{}, ErrNotSynced
	}

	n := s.next
	hash, err := send(ctx, n)
	if err != nil {
		return n, ethcmn.Hash{}, err
	}
	s.next++
	return n, hash, nil
}
