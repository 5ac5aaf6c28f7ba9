package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	FlagConfigFile = "config-file"
	FlagTarget     = "target"
	FlagOut        = "out"
	FlagInterval   = "interval"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fake-activity",
		Short: "Synthetic activity generator for EVM networks",
		Long: `A command-line tool that generates throwaway accounts, funds them through a
multicall contract and keeps them busy with ring transfers, bridge calls and gas
burning.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, FlagConfigFile, "f", "", "Path to the configuration file (JSON, YAML or TOML)")

	rootCmd.AddCommand(
		generateAccountsCmd(),
		fundCmd(),
		transferCmd(),
		bridgeCmd(),
		burnGasCmd(),
		mintCmd(),
		nonceCmd(),
		tpsCmd(),
	)
	return rootCmd
}

func generateAccountsCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "generate-accounts [count]",
		Short: "Generate random accounts and save them as JSON",
		Long: `Generate random key pairs and write them to the accounts file.

Example:
  fake-activity generate-accounts 10000 --out ./accounts/generated-accounts.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateAccounts(cmd.Context(), args, out)
		},
	}
	cmd.Flags().StringVar(&out, FlagOut, "", "Output file, defaults to accountsFilePath")
	return cmd
}

func fundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fund",
		Short: "Fund accounts with native and/or ERC-20 tokens through the multicall contract",
		Long: `Send every account in the accounts file the configured native and token amounts,
batched through the multicall contract.

Example:
  PRIVATE_KEY=0x... NETWORK=arbitrumSepolia fake-activity fund -f ./config.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFund(cmd.Context())
		},
	}
}

func transferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer",
		Short: "Send ring transfers between the generated accounts",
		Long: `Optionally fund every account first, then make account i send to account i+1
(the last one sends to the first) in concurrent batches.

Example:
  fake-activity transfer -f ./config.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd.Context())
		},
	}
}

func bridgeCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Bridge USDC through the LayerZero token bridge",
		Long: `Send repeated bridge calls of the configured amount from the sender back to itself.
Etherlink networks use the wrapped token bridge and need a target network.

Example:
  NETWORK=etherlinkTestnet targetNetworkName=sepolia fake-activity bridge`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(cmd.Context(), target)
		},
	}
	cmd.Flags().StringVar(&target, FlagTarget, "", "Target network, overrides bridge.target")
	return cmd
}

func burnGasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "burn-gas",
		Short: "Call the gas burner contract repeatedly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBurnGas(cmd.Context())
		},
	}
}

func mintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint",
		Short: "Mint test USDC to the sender on testnets with an open mint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMint(cmd.Context())
		},
	}
}

func nonceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nonce",
		Short: "Show the confirmed and pending nonce of the sender",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNonce(cmd.Context())
		},
	}
}

func tpsCmd() *cobra.Command {
	var interval string
	cmd := &cobra.Command{
		Use:   "tps",
		Short: "Monitor on-chain throughput until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTPS(cmd.Context(), interval)
		},
	}
	cmd.Flags().StringVar(&interval, FlagInterval, "5s", "Polling interval")
	return cmd
}
