// Package contracts holds the ABI fragments of the contracts the tool talks to
// and thin typed helpers around them. No contract source or bytecode lives here.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20JSON = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"_to","type":"address"},{"name":"_amount","type":"uint256"}],"outputs":[]}
]`

const multicallJSON = `[
	{"type":"function","name":"multiCall","stateMutability":"payable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"data","type":"bytes[]"}],"outputs":[{"name":"","type":"bool[]"}]}
]`

const gasBurnerJSON = `[
	{"type":"function","name":"burnGas","stateMutability":"nonpayable","inputs":[{"name":"iterations","type":"uint256"}],"outputs":[]}
]`

const callParamsTuple = `{"name":"callParams","type":"tuple","components":[{"name":"refundAddress","type":"address"},{"name":"zroPaymentAddress","type":"address"}]}`

const feeOutputs = `[{"name":"nativeFee","type":"uint256"},{"name":"zroFee","type":"uint256"}]`

// WrappedTokenBridge lives on the wrapped-token side and is told the destination.
const wrappedTokenBridgeJSON = `[
	{"type":"function","name":"estimateBridgeFee","stateMutability":"view","inputs":[{"name":"remoteChainId","type":"uint16"},{"name":"useZro","type":"bool"},{"name":"adapterParams","type":"bytes"}],"outputs":` + feeOutputs + `},
	{"type":"function","name":"bridge","stateMutability":"payable","inputs":[{"name":"localToken","type":"address"},{"name":"remoteChainId","type":"uint16"},{"name":"amount","type":"uint256"},{"name":"to","type":"address"},{"name":"unwrapWeth","type":"bool"},` + callParamsTuple + `,{"name":"adapterParams","type":"bytes"}],"outputs":[]}
]`

// OriginalTokenBridge lives on the original-token side; the destination is fixed by the contract.
const originalTokenBridgeJSON = `[
	{"type":"function","name":"estimateBridgeFee","stateMutability":"view","inputs":[{"name":"useZro","type":"bool"},{"name":"adapterParams","type":"bytes"}],"outputs":` + feeOutputs + `},
	{"type":"function","name":"bridge","stateMutability":"payable","inputs":[{"name":"token","type":"address"},{"name":"amountLD","type":"uint256"},{"name":"to","type":"address"},` + callParamsTuple + `,{"name":"adapterParams","type":"bytes"}],"outputs":[]}
]`

var (
	ERC20ABI               = mustParse(erc20JSON)
	MulticallABI           = mustParse(multicallJSON)
	GasBurnerABI           = mustParse(gasBurnerJSON)
	WrappedTokenBridgeABI  = mustParse(wrappedTokenBridgeJSON)
	OriginalTokenBridgeABI = mustParse(originalTokenBridgeJSON)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
