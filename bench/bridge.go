package bench

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/log"

	"github.com/okx/fake-activity/contracts"
	"github.com/okx/fake-activity/dispatch"
	"github.com/okx/fake-activity/multicall"
	"github.com/okx/fake-activity/network"
	"github.com/okx/fake-activity/utils"
)

// BridgeVariant is one of the two LayerZero token bridge flavours.
type BridgeVariant interface {
	Name() string
	Address() ethcmn.Address
	EstimateFee(ctx context.Context, caller contracts.Caller, adapterParams []byte) (*big.Int, error)
	Pack(amount *big.Int, to ethcmn.Address, params contracts.CallParams, adapterParams []byte) ([]byte, error)
}

// WrappedBridge bridges wrapped tokens back towards an explicit destination.
type WrappedBridge struct {
	Bridge      ethcmn.Address
	Token       ethcmn.Address
	Destination uint16
}

func (b WrappedBridge) Name() string            { return "WrappedTokenBridge" }
func (b WrappedBridge) Address() ethcmn.Address { return b.Bridge }

func (b WrappedBridge) EstimateFee(ctx context.Context, caller contracts.Caller, adapterParams []byte) (*big.Int, error) {
	return contracts.EstimateWrappedBridgeFee(ctx, caller, b.Bridge, b.Destination, adapterParams)
}

func (b WrappedBridge) Pack(amount *big.Int, to ethcmn.Address, params contracts.CallParams, adapterParams []byte) ([]byte, error) {
	return contracts.PackWrappedBridge(b.Token, b.Destination, amount, to, params, adapterParams)
}

// OriginalBridge locks original tokens; the contract knows its remote side.
type OriginalBridge struct {
	Bridge ethcmn.Address
	Token  ethcmn.Address
}

func (b OriginalBridge) Name() string            { return "OriginalTokenBridge" }
func (b OriginalBridge) Address() ethcmn.Address { return b.Bridge }

func (b OriginalBridge) EstimateFee(ctx context.Context, caller contracts.Caller, adapterParams []byte) (*big.Int, error) {
	return contracts.EstimateOriginalBridgeFee(ctx, caller, b.Bridge, adapterParams)
}

func (b OriginalBridge) Pack(amount *big.Int, to ethcmn.Address, params contracts.CallParams, adapterParams []byte) ([]byte, error) {
	return contracts.PackOriginalBridge(b.Token, amount, to, params, adapterParams)
}

// SelectBridge picks the variant deployed on src for a transfer to dst.
func SelectBridge(src, dst network.Params) BridgeVariant {
	if src.Side == network.SideWrapped {
		return WrappedBridge{Bridge: src.Bridge, Token: src.Token, Destination: dst.EndpointID}
	}
	return OriginalBridge{Bridge: src.Bridge, Token: src.Token}
}

// BridgeParams describes one bridge run.
type BridgeParams struct {
	Variant    BridgeVariant
	Token      ethcmn.Address
	Amount     *big.Int // per call, in token base units
	Count      int
	Delay      time.Duration
	AdapterGas uint64
	Fees       utils.Fees
}

// Bridge sends Count bridge calls of Amount back to the sender. The allowance is
// topped up to MaxUint256 when it cannot cover the whole run. Failed calls are
// recorded and the loop goes on.
func Bridge(ctx context.Context, s *Sender, set *dispatch.ResultSet, p BridgeParams, logger log.Logger) error {
	bridge := p.Variant.Address()
	adapterParams := contracts.AdapterParamsV1(p.AdapterGas)

	fee, err := p.Variant.EstimateFee(ctx, s.Client, adapterParams)
	if err != nil {
		return err
	}
	logger.Info("Estimated bridge fee", "bridge", p.Variant.Name(), "address", bridge, "fee", utils.FormatEther(fee)+" ETH")

	required, err := multicall.RequiredAmount(p.Amount, p.Count)
	if err != nil {
		return err
	}
	if err := EnsureBalance(ctx, s, p.Token, required, logger); err != nil {
		return err
	}
	if _, err := EnsureAllowance(ctx, s, p.Token, bridge, required, math.MaxBig256, p.Fees, logger); err != nil {
		return err
	}

	callParams := contracts.CallParams{RefundAddress: s.Addr}
	data, err := p.Variant.Pack(p.Amount, s.Addr, callParams, adapterParams)
	if err != nil {
		return fmt.Errorf("failed to pack bridge call: %w", err)
	}
	param := utils.NewTxParam(bridge, fee, 0, p.Fees, data)
	if param.GasLimit, err = s.Estimate(ctx, param, 0); err != nil {
		return err
	}
	logger.Info("Estimated gas", "gas", param.GasLimit, "maxFeePerGas", param.Fees.GasFeeCap, "gasPrice", param.Fees.GasPrice)

	return dispatch.Repeat(ctx, set, logger, "bridge", p.Count, p.Delay, func(ctx context.Context, _ int) (uint64, ethcmn.Hash, error) {
		return s.Send(ctx, param)
	})
}
