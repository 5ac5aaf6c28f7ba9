package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		value    string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"0.001", 6, "1000", false},
		{"0.001", 18, "1000000000000000", false},
		{"1", 6, "1000000", false},
		{"10000000", 6, "10000000000000", false},
		{".5", 2, "50", false},
		{"1.50", 1, "15", false},
		{"0.0000001", 6, "", true},
		{"-1", 6, "", true},
		{"abc", 6, "", true},
		{"", 6, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseUnits(tt.value, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseEther(t *testing.T) {
	for _, in := range []string{"0.01", "0.01ETH", "0.01 eth"} {
		wei, err := ParseEther(in)
		require.NoError(t, err, in)
		require.Equal(t, "10000000000000000", wei.String())
	}
	_, err := ParseEther("0")
	require.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	require.Equal(t, "0.001", FormatUnits(big.NewInt(1000), 6))
	require.Equal(t, "1", FormatUnits(big.NewInt(1_000_000), 6))
	require.Equal(t, "-1.5", FormatUnits(big.NewInt(-15), 1))
	require.Equal(t, "0", FormatUnits(nil, 6))
	require.Equal(t, "0.01", FormatEther(big.NewInt(1e16)))
}
