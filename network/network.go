// Package network holds the per-network parameters the senders need: chain id,
// LayerZero endpoint id, bridge contract and USDC token. The table is built once
// and only handed out by value.
package network

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	ethcmn "github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownNetwork = errors.New("unknown network")
	ErrIncomplete     = errors.New("network parameters incomplete")
	ErrUnsupported    = errors.New("operation not supported on network")
)

// Side tells which bridge contract is deployed on a network.
type Side int

const (
	// SideOriginal networks hold the original token and an OriginalTokenBridge.
	SideOriginal Side = iota
	// SideWrapped networks hold the wrapped token and a WrappedTokenBridge.
	SideWrapped
)

func (s Side) String() string {
	if s == SideWrapped {
		return "wrapped"
	}
	return "original"
}

// Params are the parameters of one network. Zero values mean "not available".
type Params struct {
	Name       string
	ChainID    uint64
	EndpointID uint16
	Bridge     ethcmn.Address
	Token      ethcmn.Address // USDC
	Side       Side
	Mintable   bool // Token exposes an open mint
}

func (p Params) HasBridge() bool {
	return p.Bridge != (ethcmn.Address{})
}

func (p Params) HasToken() bool {
	return p.Token != (ethcmn.Address{})
}

// CheckChainID fails when the connected node serves another chain.
func (p Params) CheckChainID(id *big.Int) error {
	if p.ChainID == 0 || id == nil {
		return nil
	}
	if !id.IsUint64() || id.Uint64() != p.ChainID {
		return fmt.Errorf("rpc serves chain %s but network %s is chain %d", id, p.Name, p.ChainID)
	}
	return nil
}

var (
	lzBridgeMainnet = ethcmn.HexToAddress("0x1f8E735f424B7A49A885571A2fA104E8C13C26c7")
	testnetMintUSDC = ethcmn.HexToAddress("0x137d4e9C2431A3DCBa6e615E9438F2c558353a17")
	bscTestnetUSDC  = ethcmn.HexToAddress("0x89A44C4fa11630E11425c177cE08828179A249A6")
)

var table = buildTable([]Params{
	{Name: "amoy", ChainID: 80002},
	{Name: "sepolia", ChainID: 11155111, EndpointID: 10161},
	{Name: "bscTestnet", ChainID: 97, EndpointID: 10102,
		Bridge: ethcmn.HexToAddress("0x544d75a99916CA53394fFc7E0f38c4FE4d08d11b"),
		Token:  bscTestnetUSDC, Mintable: true},
	{Name: "avalancheFujiTestnet", ChainID: 43113, EndpointID: 10106,
		Bridge: ethcmn.HexToAddress("0x27539c403286750a352798e4646160e7ea284618"),
		Token:  ethcmn.HexToAddress("0x2Dbc0f2b6F5707879329cc3104eE430de4c1ACa9")},
	{Name: "arbitrumSepolia", ChainID: 421614, EndpointID: 10231,
		Bridge: ethcmn.HexToAddress("0x1687412b4Cb0f0753BA3919849e729E1bbeC8345"),
		Token:  testnetMintUSDC, Mintable: true},
	{Name: "baseSepolia", ChainID: 84532, EndpointID: 10245},
	{Name: "optimismSepolia", ChainID: 11155420, EndpointID: 10232,
		Bridge: ethcmn.HexToAddress("0x29864554C76b121cd2435962bfaF9AE72D2D5Aaf"),
		Token:  testnetMintUSDC, Mintable: true},
	{Name: "etherlinkTestnet", ChainID: 128123, EndpointID: 10239, Side: SideWrapped,
		Bridge: ethcmn.HexToAddress("0x137d4e9C2431A3DCBa6e615E9438F2c558353a17"),
		Token:  ethcmn.HexToAddress("0xc92eaA8bb3B267C3c2553e1596807c7B847192A1")},
	{Name: "etherlink", ChainID: 42793, EndpointID: 292, Side: SideWrapped,
		Bridge: lzBridgeMainnet,
		Token:  ethcmn.HexToAddress("0x796Ea11Fa2dD751eD01b53C372fFDB4AAa8f00F9")},
	{Name: "mainnet", ChainID: 1, EndpointID: 101, Bridge: lzBridgeMainnet},
	{Name: "arbitrumOne", ChainID: 42161, EndpointID: 110, Bridge: lzBridgeMainnet,
		Token: ethcmn.HexToAddress("0xaf88d065e77c8cc2239327c5edb3a432268e5831")},
	{Name: "base", ChainID: 8453, EndpointID: 184, Bridge: lzBridgeMainnet,
		Token: ethcmn.HexToAddress("0x833589fcd6edb6e08f4c7c32d4f71b54bda02913")},
	{Name: "bsc", ChainID: 56, EndpointID: 102, Bridge: lzBridgeMainnet,
		Token: ethcmn.HexToAddress("0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d")},
	{Name: "avalanche", ChainID: 43114, EndpointID: 106, Bridge: lzBridgeMainnet,
		Token: ethcmn.HexToAddress("0xb97ef9ef8734c71904d8002f8b6bc66dd9c48a6e")},
	{Name: "optimism", ChainID: 10, EndpointID: 111, Bridge: lzBridgeMainnet,
		Token: ethcmn.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85")},
})

func buildTable(params []Params) map[string]Params {
	m := make(map[string]Params, len(params))
	for _, p := range params {
		if _, dup := m[p.Name]; dup {
			panic("duplicate network " + p.Name)
		}
		m[p.Name] = p
	}
	return m
}

// Lookup returns the parameters of name.
func Lookup(name string) (Params, error) {
	p, ok := table[name]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownNetwork, name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists every known network, sorted.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Requirement is a parameter a command cannot run without.
type Requirement int

const (
	NeedEndpoint Requirement = iota
	NeedBridge
	NeedToken
	NeedMintable
)

func (r Requirement) String() string {
	switch r {
	case NeedEndpoint:
		return "endpoint id"
	case NeedBridge:
		return "bridge address"
	case NeedToken:
		return "token address"
	case NeedMintable:
		return "mintable token"
	default:
		return fmt.Sprintf("requirement(%d)", int(r))
	}
}

// Validate looks up name and checks every requirement, so a command fails at
// startup instead of in the middle of a run.
func Validate(name string, reqs ...Requirement) (Params, error) {
	p, err := Lookup(name)
	if err != nil {
		return Params{}, err
	}
	var missing []string
	for _, r := range reqs {
		switch r {
		case NeedEndpoint:
			if p.EndpointID == 0 {
				missing = append(missing, r.String())
			}
		case NeedBridge:
			if !p.HasBridge() {
				missing = append(missing, r.String())
			}
		case NeedToken:
			if !p.HasToken() {
				missing = append(missing, r.String())
			}
		case NeedMintable:
			if !p.Mintable || !p.HasToken() {
				return Params{}, fmt.Errorf("%w: minting on %s", ErrUnsupported, name)
			}
		}
	}
	if len(missing) > 0 {
		return Params{}, fmt.Errorf("%w: %s has no %s", ErrIncomplete, name, strings.Join(missing, ", "))
	}
	return p, nil
}
