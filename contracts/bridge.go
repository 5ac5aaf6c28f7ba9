package contracts

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CallParams is the LayerZero call parameter tuple.
type CallParams struct {
	RefundAddress     ethcmn.Address
	ZroPaymentAddress ethcmn.Address
}

// AdapterParamsV1 encodes version 1 relayer adapter params: a big endian uint16
// version followed by the destination gas as a 32 byte word.
func AdapterParamsV1(gas uint64) []byte {
	out := make([]byte, 2, 34)
	binary.BigEndian.PutUint16(out, 1)
	word := uint256.NewInt(gas).Bytes32()
	return append(out, word[:]...)
}

// EstimateWrappedBridgeFee quotes a bridge call on a WrappedTokenBridge towards dstChainID.
func EstimateWrappedBridgeFee(ctx context.Context, caller Caller, bridge ethcmn.Address, dstChainID uint16, adapterParams []byte) (*big.Int, error) {
	return estimateFee(ctx, caller, bridge, WrappedTokenBridgeABI, dstChainID, false, adapterParams)
}

// EstimateOriginalBridgeFee quotes a bridge call on an OriginalTokenBridge.
func EstimateOriginalBridgeFee(ctx context.Context, caller Caller, bridge ethcmn.Address, adapterParams []byte) (*big.Int, error) {
	return estimateFee(ctx, caller, bridge, OriginalTokenBridgeABI, false, adapterParams)
}

func estimateFee(ctx context.Context, caller Caller, bridge ethcmn.Address, parsed abi.ABI, args ...interface{}) (*big.Int, error) {
	data, err := parsed.Pack("estimateBridgeFee", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack estimateBridgeFee: %w", err)
	}
	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &bridge, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("estimateBridgeFee on %s failed: %w", bridge, err)
	}
	out, err := parsed.Unpack("estimateBridgeFee", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack estimateBridgeFee: %w", err)
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("estimateBridgeFee returned %d values", len(out))
	}
	return asBig(out[0])
}

// PackWrappedBridge encodes WrappedTokenBridge.bridge. Wrapped native tokens are
// never unwrapped on arrival.
func PackWrappedBridge(token ethcmn.Address, dstChainID uint16, amount *big.Int, to ethcmn.Address, params CallParams, adapterParams []byte) ([]byte, error) {
	return WrappedTokenBridgeABI.Pack("bridge", token, dstChainID, amount, to, false, params, adapterParams)
}

// PackOriginalBridge encodes OriginalTokenBridge.bridge.
func PackOriginalBridge(token ethcmn.Address, amount *big.Int, to ethcmn.Address, params CallParams, adapterParams []byte) ([]byte, error) {
	return OriginalTokenBridgeABI.Pack("bridge", token, amount, to, params, adapterParams)
}

// PackMultiCall encodes Multicall.multiCall.
func PackMultiCall(targets []ethcmn.Address, values []*big.Int, data [][]byte) ([]byte, error) {
	return MulticallABI.Pack("multiCall", targets, values, data)
}

// PackBurnGas encodes GasBurner.burnGas.
func PackBurnGas(iterations uint64) ([]byte, error) {
	return GasBurnerABI.Pack("burnGas", new(big.Int).SetUint64(iterations))
}
