package utils

import (
	"fmt"
	"math/big"
	"strings"
)

// EtherDecimals is the number of decimals of the native asset.
const EtherDecimals = 18

// ParseUnits converts a decimal string such as "0.001" into an integer amount with
// the given number of decimals. The conversion is exact; digits beyond decimals
// are rejected.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(value, "-") {
		return nil, fmt.Errorf("amount must not be negative: %s", value)
	}

	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", value, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	amount, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value: %s", value)
	}
	return amount, nil
}

// ParseEther parses an ether amount into wei. A trailing "ETH" suffix is accepted,
// e.g. "1ETH", "0.01 eth" or "0.01". The amount must be positive.
func ParseEther(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(strings.ToUpper(value), "ETH") {
		value = strings.TrimSpace(value[:len(value)-3])
	}
	wei, err := ParseUnits(value, EtherDecimals)
	if err != nil {
		return nil, err
	}
	if wei.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}
	return wei, nil
}

// FormatUnits renders amount with the given number of decimals, trimming
// trailing zeros.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	neg := amount.Sign() < 0
	digits := new(big.Int).Abs(amount).String()
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	cut := len(digits) - int(decimals)
	whole, frac := digits[:cut], strings.TrimRight(digits[cut:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatEther renders wei as ether.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}
