package utils

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	_ Client      = (*EthClient)(nil)
	_ ChainReader = (*EthClient)(nil)
)

// Client defines the interface for blockchain clients
type Client interface {
	QueryNonce(ctx context.Context, addr ethcmn.Address) (uint64, error)
	QueryConfirmedNonce(ctx context.Context, addr ethcmn.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestFeeData(ctx context.Context) (*FeeData, error)
	SignTx(privateKey *ecdsa.PrivateKey, nonce uint64, param TxParam) (*types.Transaction, error)
	SendEthereumTx(ctx context.Context, privateKey *ecdsa.PrivateKey, nonce uint64, param TxParam) (ethcmn.Hash, error)
	SendMultipleEthereumTx(ctx context.Context, signedTxs []*types.Transaction) ([]ethcmn.Hash, error)
	TransactionReceipt(ctx context.Context, txHash ethcmn.Hash) (*types.Receipt, error)
}

// TxParam describes one transaction before nonce assignment and signing.
type TxParam struct {
	To       ethcmn.Address
	Amount   *big.Int
	GasLimit uint64
	Fees     Fees
	Data     []byte
}

func NewTxParam(to ethcmn.Address, amount *big.Int, gasLimit uint64, fees Fees, data []byte) TxParam {
	return TxParam{
		To:       to,
		Amount:   amount,
		GasLimit: gasLimit,
		Fees:     fees,
		Data:     data,
	}
}

// EthClient wraps the ethereum client with additional functionality
type EthClient struct {
	*ethclient.Client
	rpcClient *rpc.Client
	signer    types.Signer
	url       string
}

// createOptimizedHTTPClient creates an HTTP client optimized for connection pooling
func createOptimizedHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        300,
		MaxIdleConnsPerHost: 300,
		IdleConnTimeout:     30 * time.Second,
		DisableKeepAlives:   false,
		MaxConnsPerHost:     300,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   10 * time.Second,
	}
}

// NewEthClient dials url and caches the chain id signer.
func NewEthClient(ctx context.Context, url string) (*EthClient, error) {
	rpcClient, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(createOptimizedHTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rpc client for %s: %w", url, err)
	}

	cli := ethclient.NewClient(rpcClient)

	chainId, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to query chain id from %s: %w", url, err)
	}

	return &EthClient{
		Client:    cli,
		rpcClient: rpcClient,
		signer:    types.NewLondonSigner(chainId),
		url:       url,
	}, nil
}

// GenerateClients creates one client per url. Clients dialed before a failure are closed.
func GenerateClients(ctx context.Context, urls []string) ([]*EthClient, error) {
	clients := make([]*EthClient, 0, len(urls))
	for _, url := range urls {
		cli, err := NewEthClient(ctx, url)
		if err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, err
		}
		clients = append(clients, cli)
	}
	return clients, nil
}

// URL returns the endpoint the client was dialed with.
func (e *EthClient) URL() string {
	return e.url
}

// QueryNonce queries the pending nonce for the given address
func (e *EthClient) QueryNonce(ctx context.Context, addr ethcmn.Address) (uint64, error) {
	return e.PendingNonceAt(ctx, addr)
}

// QueryConfirmedNonce queries the nonce at the latest block for the given address
func (e *EthClient) QueryConfirmedNonce(ctx context.Context, addr ethcmn.Address) (uint64, error) {
	return e.NonceAt(ctx, addr, nil)
}

// SuggestFeeData mirrors what wallets report as fee data: the legacy gas price
// and, on London chains, maxFeePerGas = 2*baseFee + tip.
func (e *EthClient) SuggestFeeData(ctx context.Context) (*FeeData, error) {
	gasPrice, err := e.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query gas price: %w", err)
	}
	head, err := e.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest header: %w", err)
	}

	fd := &FeeData{GasPrice: gasPrice}
	if head.BaseFee == nil {
		return fd, nil
	}

	tip, err := e.SuggestGasTipCap(ctx)
	if err != nil {
		// eth_maxPriorityFeePerGas is not served everywhere
		tip = new(big.Int).Set(DefaultPriorityFee)
	}
	fd.MaxPriorityFeePerGas = tip
	fd.MaxFeePerGas = new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
	return fd, nil
}

// SignTx builds a legacy or dynamic fee transaction from param and signs it.
func (e *EthClient) SignTx(privateKey *ecdsa.PrivateKey, nonce uint64, param TxParam) (*types.Transaction, error) {
	return types.SignTx(param.Unsigned(e.signer.ChainID(), nonce), e.signer, privateKey)
}

// SendEthereumTx signs and sends an Ethereum transaction
func (e *EthClient) SendEthereumTx(ctx context.Context, privateKey *ecdsa.PrivateKey, nonce uint64, param TxParam) (ethcmn.Hash, error) {
	signedTx, err := e.SignTx(privateKey, nonce, param)
	if err != nil {
		return ethcmn.Hash{}, err
	}

	if err := e.SendTransaction(ctx, signedTx); err != nil {
		return ethcmn.Hash{}, err
	}

	return signedTx.Hash(), nil
}

// SendMultipleEthereumTx sends multiple signed transactions in a single batch RPC call.
// The returned slice is aligned with signedTxs; failed elements hold the zero hash.
func (e *EthClient) SendMultipleEthereumTx(ctx context.Context, signedTxs []*types.Transaction) ([]ethcmn.Hash, error) {
	if len(signedTxs) == 0 {
		return nil, errors.New("empty transaction list")
	}

	batch := make([]rpc.BatchElem, len(signedTxs))
	txHashes := make([]ethcmn.Hash, len(signedTxs))

	for i, signedTx := range signedTxs {
		txData, err := signedTx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tx %d: %w", i, err)
		}
		batch[i] = rpc.BatchElem{
			Method: "eth_sendRawTransaction",
			Args:   []interface{}{hexutil.Encode(txData)},
			Result: &txHashes[i],
		}
	}

	// Only one HTTP request for the whole batch.
	if err := e.rpcClient.BatchCallContext(ctx, batch); err != nil {
		return nil, fmt.Errorf("batch call failed: %w", err)
	}

	var errs []error
	for i, elem := range batch {
		if elem.Error != nil {
			errs = append(errs, fmt.Errorf("tx %d: %w", i, elem.Error))
			txHashes[i] = ethcmn.Hash{}
		}
	}

	if len(errs) > 0 {
		return txHashes, fmt.Errorf("batch errors: %w", errors.Join(errs...))
	}
	return txHashes, nil
}

// PoolStatus queries txpool_status.
func (e *EthClient) PoolStatus(ctx context.Context) (*TxPoolStatus, error) {
	var status TxPoolStatus
	if err := e.rpcClient.CallContext(ctx, &status, "txpool_status"); err != nil {
		return nil, err
	}
	return &status, nil
}

// Unsigned builds the unsigned transaction for nonce. A set legacy gas price wins
// over dynamic fee caps.
func (p TxParam) Unsigned(chainID *big.Int, nonce uint64) *types.Transaction {
	to := p.To
	if p.Fees.GasPrice != nil || p.Fees.GasFeeCap == nil {
		gasPrice := p.Fees.GasPrice
		if gasPrice == nil {
			gasPrice = new(big.Int).Set(DefaultGasPrice)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    p.Amount,
			Gas:      p.GasLimit,
			GasPrice: gasPrice,
			Data:     p.Data,
		})
	}

	tip := p.Fees.GasTipCap
	if tip == nil {
		tip = new(big.Int)
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		To:        &to,
		Value:     p.Amount,
		Gas:       p.GasLimit,
		GasFeeCap: p.Fees.GasFeeCap,
		GasTipCap: tip,
		Data:      p.Data,
	})
}

// CallMsg returns the message used to estimate gas for p sent by from.
func (p TxParam) CallMsg(from ethcmn.Address) ethereum.CallMsg {
	to := p.To
	return ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: p.Amount,
		Data:  p.Data,
	}
}
