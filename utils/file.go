package utils

import (
	"bufio"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	ethcmm "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

// ReadDataFromFile reads the non-empty lines of a file.
func ReadDataFromFile(filepath string) ([]string, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filepath, err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			log.Warn("Failed to close file", "path", filepath, "err", err)
		}
	}(f)

	log.Debug("Loading data", "path", filepath)

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filepath, err)
	}

	log.Debug("Records loaded", "path", filepath, "count", len(lines))
	return lines, nil
}

// ParsePrivateKey parses a hex private key with or without 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// GetEthAddressFromPK converts an ECDSA private key to an Ethereum address
func GetEthAddressFromPK(privateKey *ecdsa.PrivateKey) ethcmm.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}
