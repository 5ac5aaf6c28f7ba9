// Package accounts generates and stores the throwaway accounts the activity runs
// between.
package accounts

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/okx/fake-activity/utils"
)

// ErrNoAccounts is returned when an accounts file holds no usable entry.
var ErrNoAccounts = errors.New("no accounts")

// Account is one generated key pair. PrivateKey is empty for accounts loaded
// from an address-only file; they can receive funds but not send.
type Account struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

// New derives the account of key.
func New(key *ecdsa.PrivateKey) Account {
	return Account{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}
}

func (a Account) Addr() ethcmn.Address {
	return ethcmn.HexToAddress(a.Address)
}

func (a Account) CanSign() bool {
	return a.PrivateKey != ""
}

// Key parses the private key.
func (a Account) Key() (*ecdsa.PrivateKey, error) {
	if !a.CanSign() {
		return nil, fmt.Errorf("account %s has no private key", a.Address)
	}
	return utils.ParsePrivateKey(a.PrivateKey)
}

// Verify checks that the address derives from the private key.
func (a Account) Verify() error {
	if !ethcmn.IsHexAddress(a.Address) {
		return fmt.Errorf("invalid address %q", a.Address)
	}
	if !a.CanSign() {
		return nil
	}
	key, err := a.Key()
	if err != nil {
		return err
	}
	if derived := crypto.PubkeyToAddress(key.PublicKey); derived != a.Addr() {
		return fmt.Errorf("address %s does not match private key (derives %s)", a.Address, derived)
	}
	return nil
}

// Generate creates n fresh random accounts.
func Generate(n int) ([]Account, error) {
	out := make([]Account, 0, n)
	for i := 0; i < n; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key %d: %w", i, err)
		}
		out = append(out, New(key))
	}
	return out, nil
}

// Save writes accounts as an indented JSON array, creating the directory when needed.
func Save(path string, accs []Account) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(accs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write accounts to %s: %w", path, err)
	}
	return nil
}

// Load reads an accounts file. JSON files hold the array written by Save; any
// other file is read line by line, each line a hex private key or an address.
func Load(path string) ([]Account, error) {
	var accs []Account
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read accounts file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &accs); err != nil {
			return nil, fmt.Errorf("failed to decode accounts file %s: %w", path, err)
		}
	} else {
		lines, err := utils.ReadDataFromFile(path)
		if err != nil {
			return nil, err
		}
		accs, err = parseLines(lines)
		if err != nil {
			return nil, fmt.Errorf("accounts file %s: %w", path, err)
		}
	}

	if len(accs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAccounts, path)
	}
	for i, a := range accs {
		if err := a.Verify(); err != nil {
			return nil, fmt.Errorf("account %d in %s: %w", i, path, err)
		}
	}
	return accs, nil
}

func parseLines(lines []string) ([]Account, error) {
	accs := make([]Account, 0, len(lines))
	for i, line := range lines {
		if ethcmn.IsHexAddress(line) {
			accs = append(accs, Account{Address: ethcmn.HexToAddress(line).Hex()})
			continue
		}
		key, err := utils.ParsePrivateKey(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		accs = append(accs, New(key))
	}
	return accs, nil
}

// Addresses returns the addresses of accs in order.
func Addresses(accs []Account) []ethcmn.Address {
	out := make([]ethcmn.Address, len(accs))
	for i, a := range accs {
		out[i] = a.Addr()
	}
	return out
}
