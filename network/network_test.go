package network

import (
	"math/big"
	"testing"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	p, err := Lookup("etherlinkTestnet")
	require.NoError(t, err)
	require.Equal(t, uint64(128123), p.ChainID)
	require.Equal(t, uint16(10239), p.EndpointID)
	require.Equal(t, SideWrapped, p.Side)
	require.Equal(t, ethcmn.HexToAddress("0xc92eaA8bb3B267C3c2553e1596807c7B847192A1"), p.Token)

	p, err = Lookup("arbitrumSepolia")
	require.NoError(t, err)
	require.Equal(t, SideOriginal, p.Side)
	require.True(t, p.Mintable)

	_, err = Lookup("goerli")
	require.ErrorIs(t, err, ErrUnknownNetwork)
}

func TestEtherlinkFamilyIsWrapped(t *testing.T) {
	for _, name := range Names() {
		p, err := Lookup(name)
		require.NoError(t, err)
		if p.Side == SideWrapped {
			require.Contains(t, []string{"etherlink", "etherlinkTestnet"}, name)
		}
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	p, err := Lookup("bsc")
	require.NoError(t, err)
	p.EndpointID = 1

	again, err := Lookup("bsc")
	require.NoError(t, err)
	require.Equal(t, uint16(102), again.EndpointID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		network string
		reqs    []Requirement
		err     error
	}{
		{"bridge source", "optimismSepolia", []Requirement{NeedBridge, NeedToken}, nil},
		{"bridge target", "sepolia", []Requirement{NeedEndpoint}, nil},
		{"sepolia has no bridge", "sepolia", []Requirement{NeedBridge}, ErrIncomplete},
		{"mainnet has no usdc", "mainnet", []Requirement{NeedBridge, NeedToken}, ErrIncomplete},
		{"amoy has no endpoint", "amoy", []Requirement{NeedEndpoint}, ErrIncomplete},
		{"mint on testnet", "bscTestnet", []Requirement{NeedMintable}, nil},
		{"mint on mainnet", "arbitrumOne", []Requirement{NeedMintable}, ErrUnsupported},
		{"unknown", "nowhere", nil, ErrUnknownNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Validate(tt.network, tt.reqs...)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.network, p.Name)
		})
	}
}

func TestCheckChainID(t *testing.T) {
	p, err := Lookup("sepolia")
	require.NoError(t, err)
	require.NoError(t, p.CheckChainID(big.NewInt(11155111)))
	require.Error(t, p.CheckChainID(big.NewInt(1)))
}
