// Package testutil provides an in-memory node for exercising the senders
// without a network.
package testutil

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"

	"github.com/okx/fake-activity/utils"
)

var _ utils.Client = (*FakeClient)(nil)

// ChainID is the chain id the fake client signs for.
var ChainID = big.NewInt(1337)

// CallHandler answers an eth_call whose data starts with a registered selector.
type CallHandler func(msg ethereum.CallMsg) ([]byte, error)

// SentTx is a transaction the fake node accepted.
type SentTx struct {
	From ethcmn.Address
	Tx   *types.Transaction
}

// FakeClient implements utils.Client in memory. Accepted transactions are
// recorded and mined immediately with a successful receipt. It is safe for
// concurrent use.
type FakeClient struct {
	// Gas is returned by EstimateGas, 21000 when zero.
	Gas         uint64
	EstimateErr error
	Fees        utils.FeeData
	// RejectTx, when set, is asked about every submission; a non-nil error rejects it.
	RejectTx func(from ethcmn.Address, tx *types.Transaction) error
	// Reverted hashes get a failed receipt.
	Reverted map[ethcmn.Hash]bool

	signer types.Signer

	mu        sync.Mutex
	handlers  map[[4]byte]CallHandler
	pending   map[ethcmn.Address]uint64
	confirmed map[ethcmn.Address]uint64
	sent      []SentTx
	estimates []ethereum.CallMsg
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Fees: utils.FeeData{
			GasPrice:             big.NewInt(params.GWei),
			MaxFeePerGas:         big.NewInt(3 * params.GWei),
			MaxPriorityFeePerGas: big.NewInt(params.GWei),
		},
		Reverted:  make(map[ethcmn.Hash]bool),
		signer:    types.NewLondonSigner(ChainID),
		handlers:  make(map[[4]byte]CallHandler),
		pending:   make(map[ethcmn.Address]uint64),
		confirmed: make(map[ethcmn.Address]uint64),
	}
}

// Handle registers h for calls to the method with the given 4 byte id.
func (f *FakeClient) Handle(selector []byte, h CallHandler) {
	var key [4]byte
	copy(key[:], selector)
	f.mu.Lock()
	f.handlers[key] = h
	f.mu.Unlock()
}

// SetNonce sets both the pending and the confirmed nonce of addr.
func (f *FakeClient) SetNonce(addr ethcmn.Address, nonce uint64) {
	f.mu.Lock()
	f.pending[addr] = nonce
	f.confirmed[addr] = nonce
	f.mu.Unlock()
}

// SetPendingNonce sets only the pending nonce, as if txs sat in the pool.
func (f *FakeClient) SetPendingNonce(addr ethcmn.Address, nonce uint64) {
	f.mu.Lock()
	f.pending[addr] = nonce
	f.mu.Unlock()
}

// Sent returns the accepted transactions in submission order.
func (f *FakeClient) Sent() []SentTx {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentTx, len(f.sent))
	copy(out, f.sent)
	return out
}

// SentTo returns the accepted transactions addressed to to.
func (f *FakeClient) SentTo(to ethcmn.Address) []SentTx {
	var out []SentTx
	for _, s := range f.Sent() {
		if s.Tx.To() != nil && *s.Tx.To() == to {
			out = append(out, s)
		}
	}
	return out
}

// Estimates returns every message passed to EstimateGas.
func (f *FakeClient) Estimates() []ethereum.CallMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ethereum.CallMsg, len(f.estimates))
	copy(out, f.estimates)
	return out
}

func (f *FakeClient) QueryNonce(_ context.Context, addr ethcmn.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[addr], nil
}

func (f *FakeClient) QueryConfirmedNonce(_ context.Context, addr ethcmn.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmed[addr], nil
}

func (f *FakeClient) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	f.estimates = append(f.estimates, msg)
	f.mu.Unlock()
	if f.EstimateErr != nil {
		return 0, f.EstimateErr
	}
	if f.Gas == 0 {
		return params.TxGas, nil
	}
	return f.Gas, nil
}

func (f *FakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, errors.New("execution reverted")
	}
	var key [4]byte
	copy(key[:], msg.Data[:4])
	f.mu.Lock()
	h, ok := f.handlers[key]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no handler for selector %x", key)
	}
	return h(msg)
}

func (f *FakeClient) SuggestFeeData(context.Context) (*utils.FeeData, error) {
	fd := f.Fees
	return &fd, nil
}

func (f *FakeClient) SignTx(privateKey *ecdsa.PrivateKey, nonce uint64, param utils.TxParam) (*types.Transaction, error) {
	return types.SignTx(param.Unsigned(ChainID, nonce), f.signer, privateKey)
}

func (f *FakeClient) SendEthereumTx(ctx context.Context, privateKey *ecdsa.PrivateKey, nonce uint64, param utils.TxParam) (ethcmn.Hash, error) {
	tx, err := f.SignTx(privateKey, nonce, param)
	if err != nil {
		return ethcmn.Hash{}, err
	}
	if err := f.accept(tx); err != nil {
		return ethcmn.Hash{}, err
	}
	return tx.Hash(), nil
}

func (f *FakeClient) SendMultipleEthereumTx(_ context.Context, signedTxs []*types.Transaction) ([]ethcmn.Hash, error) {
	if len(signedTxs) == 0 {
		return nil, errors.New("empty transaction list")
	}
	hashes := make([]ethcmn.Hash, len(signedTxs))
	var errs []error
	for i, tx := range signedTxs {
		if err := f.accept(tx); err != nil {
			errs = append(errs, fmt.Errorf("tx %d: %w", i, err))
			continue
		}
		hashes[i] = tx.Hash()
	}
	if len(errs) > 0 {
		return hashes, fmt.Errorf("batch errors: %w", errors.Join(errs...))
	}
	return hashes, nil
}

func (f *FakeClient) accept(tx *types.Transaction) error {
	from, err := types.Sender(f.signer, tx)
	if err != nil {
		return err
	}
	if f.RejectTx != nil {
		if err := f.RejectTx(from, tx); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if want := f.pending[from]; tx.Nonce() < want {
		return fmt.Errorf("nonce too low: address %s, tx: %d state: %d", from, tx.Nonce(), want)
	}
	if tx.Nonce()+1 > f.pending[from] {
		f.pending[from] = tx.Nonce() + 1
	}
	if tx.Nonce()+1 > f.confirmed[from] {
		f.confirmed[from] = tx.Nonce() + 1
	}
	f.sent = append(f.sent, SentTx{From: from, Tx: tx})
	return nil
}

func (f *FakeClient) TransactionReceipt(_ context.Context, txHash ethcmn.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sent {
		if s.Tx.Hash() != txHash {
			continue
		}
		status := types.ReceiptStatusSuccessful
		if f.Reverted[txHash] {
			status = types.ReceiptStatusFailed
		}
		return &types.Receipt{
			Status:      status,
			TxHash:      txHash,
			BlockNumber: big.NewInt(int64(i + 1)),
			GasUsed:     s.Tx.Gas(),
		}, nil
	}
	return nil, ethereum.NotFound
}
