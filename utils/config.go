package utils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FAKE_ACTIVITY_MULTICALL_BATCHSIZE.
const EnvPrefix = "FAKE_ACTIVITY"

const DefaultAccountsFilePath = "./accounts/generated-accounts.json"

// Config is the whole tool configuration. Every command reads the part it needs.
type Config struct {
	Rpc              []string `mapstructure:"rpc"`
	Network          string   `mapstructure:"network"`
	AccountsFilePath string   `mapstructure:"accountsFilePath"`
	SenderPrivateKey string   `mapstructure:"senderPrivateKey"`
	Concurrency      int      `mapstructure:"concurrency"`
	TargetTPS        int      `mapstructure:"targetTPS"`    // Target transactions per second, 0 means no limit
	GasPriceGwei     float64  `mapstructure:"gasPriceGwei"` // Legacy gas price, 0 means EIP-1559 fees from the node
	SaveTxHashes     bool     `mapstructure:"saveTxHashes"`
	TxHashFile       string   `mapstructure:"txHashFile"`
	LogLevel         string   `mapstructure:"logLevel"`

	Multicall MulticallConfig `mapstructure:"multicall"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	GasBurner GasBurnerConfig `mapstructure:"gasBurner"`
}

type MulticallConfig struct {
	Address          string        `mapstructure:"address"`
	BatchSize        int           `mapstructure:"batchSize"`
	BatchDelay       time.Duration `mapstructure:"batchDelay"`
	AccountCount     int           `mapstructure:"accountCount"` // 0 funds every account in the file
	FundNative       bool          `mapstructure:"fundNative"`
	FundERC20        bool          `mapstructure:"fundERC20"`
	NativeAmount     string        `mapstructure:"nativeAmount"` // in ether
	TokenAmount      string        `mapstructure:"tokenAmount"`  // in token units, decimals read on chain
	GasLimit         uint64        `mapstructure:"gasLimit"`     // 0 estimates every batch
	GasBufferPercent int           `mapstructure:"gasBufferPercent"`
}

type TransferConfig struct {
	Amount           string        `mapstructure:"amount"` // in ether
	BatchSize        int           `mapstructure:"batchSize"`
	BatchDelay       time.Duration `mapstructure:"batchDelay"`
	GasBufferPercent int           `mapstructure:"gasBufferPercent"`
	FundFirst        bool          `mapstructure:"fundFirst"`
	FundAmount       string        `mapstructure:"fundAmount"` // in ether
	FundBatchSize    int           `mapstructure:"fundBatchSize"`
	SettleDelay      time.Duration `mapstructure:"settleDelay"`
	RpcBatch         bool          `mapstructure:"rpcBatch"` // one JSON-RPC batch request per dispatch batch
}

type BridgeConfig struct {
	Target     string        `mapstructure:"target"`
	Count      int           `mapstructure:"count"`
	Amount     string        `mapstructure:"amount"` // in token units
	Delay      time.Duration `mapstructure:"delay"`
	AdapterGas uint64        `mapstructure:"adapterGas"`
}

type GasBurnerConfig struct {
	Address    string        `mapstructure:"address"`
	Iterations uint64        `mapstructure:"iterations"`
	Count      int           `mapstructure:"count"`
	Delay      time.Duration `mapstructure:"delay"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc", []string{"http://127.0.0.1:8545"})
	v.SetDefault("network", "")
	v.SetDefault("accountsFilePath", DefaultAccountsFilePath)
	v.SetDefault("senderPrivateKey", "")
	v.SetDefault("concurrency", 16)
	v.SetDefault("targetTPS", 0)
	v.SetDefault("gasPriceGwei", 0)
	v.SetDefault("saveTxHashes", false)
	v.SetDefault("txHashFile", "./txhashes.log")
	v.SetDefault("logLevel", "info")

	v.SetDefault("multicall.address", "0xaD8B3b3B10e86960cdB66744bf99477d28cB6362")
	v.SetDefault("multicall.batchSize", 100)
	v.SetDefault("multicall.batchDelay", 500*time.Millisecond)
	v.SetDefault("multicall.accountCount", 1000)
	v.SetDefault("multicall.fundNative", true)
	v.SetDefault("multicall.fundERC20", true)
	v.SetDefault("multicall.nativeAmount", "0.01")
	v.SetDefault("multicall.tokenAmount", "1")
	v.SetDefault("multicall.gasLimit", 0)
	v.SetDefault("multicall.gasBufferPercent", 10)

	v.SetDefault("transfer.amount", "0.001")
	v.SetDefault("transfer.batchSize", 100)
	v.SetDefault("transfer.batchDelay", 100*time.Millisecond)
	v.SetDefault("transfer.gasBufferPercent", 20)
	v.SetDefault("transfer.fundFirst", true)
	v.SetDefault("transfer.fundAmount", "0.001")
	v.SetDefault("transfer.fundBatchSize", 200)
	v.SetDefault("transfer.settleDelay", 5*time.Second)
	v.SetDefault("transfer.rpcBatch", false)

	v.SetDefault("bridge.target", "")
	v.SetDefault("bridge.count", 200)
	v.SetDefault("bridge.amount", "0.001")
	v.SetDefault("bridge.delay", 300*time.Millisecond)
	v.SetDefault("bridge.adapterGas", 200000)

	v.SetDefault("gasBurner.address", "0x4bFb77c46988F9bd97394a4C567EBa17725b0f4B")
	v.SetDefault("gasBurner.iterations", 178000)
	v.SetDefault("gasBurner.count", 200)
	v.SetDefault("gasBurner.delay", 300*time.Millisecond)
}

// LoadConfig reads the optional config file at path and applies environment
// overrides on top of it. An empty path means defaults plus environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by the hardhat scripts this tool replaces.
	bindings := map[string][]string{
		"senderPrivateKey": {"PRIVATE_KEY"},
		"rpc":              {"RPC_URL"},
		"network":          {"NETWORK"},
		"bridge.target":    {"targetNetworkName"},
	}
	for key, names := range bindings {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	if len(c.Rpc) == 0 || c.Rpc[0] == "" {
		return errors.New("at least one rpc endpoint must be configured")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.TargetTPS < 0 {
		return fmt.Errorf("targetTPS must not be negative, got %d", c.TargetTPS)
	}
	return nil
}

// SenderKey parses the configured sender private key.
func (c *Config) SenderKey() (*ecdsa.PrivateKey, error) {
	if c.SenderPrivateKey == "" {
		return nil, errors.New("senderPrivateKey must be set in config file or PRIVATE_KEY")
	}
	return ParsePrivateKey(c.SenderPrivateKey)
}
