package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"

	"github.com/okx/fake-activity/accounts"
	"github.com/okx/fake-activity/bench"
	"github.com/okx/fake-activity/dispatch"
	"github.com/okx/fake-activity/network"
	"github.com/okx/fake-activity/utils"
)

const (
	defaultAccountCount = 10000
	reportTimeout       = time.Minute
)

// runtime is the state shared by the chain-facing commands.
type runtime struct {
	cfg     *utils.Config
	clients []*utils.EthClient
	log     log.Logger
}

func loadConfig() (*utils.Config, error) {
	cfg, err := utils.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := utils.SetupLogger(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	clients, err := utils.GenerateClients(ctx, cfg.Rpc)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, clients: clients, log: log.Root()}, nil
}

func (rt *runtime) Close() {
	for _, c := range rt.clients {
		c.Close()
	}
}

func (rt *runtime) client() *utils.EthClient {
	return rt.clients[0]
}

func (rt *runtime) allClients() []utils.Client {
	out := make([]utils.Client, len(rt.clients))
	for i, c := range rt.clients {
		out[i] = c
	}
	return out
}

// resolveNetwork validates the configured network against reqs and checks that
// every rpc endpoint serves that chain.
func (rt *runtime) resolveNetwork(ctx context.Context, reqs ...network.Requirement) (network.Params, error) {
	if rt.cfg.Network == "" {
		return network.Params{}, errors.New("network must be set in config file or NETWORK")
	}
	net, err := network.Validate(rt.cfg.Network, reqs...)
	if err != nil {
		return network.Params{}, err
	}
	for _, c := range rt.clients {
		id, err := c.ChainID(ctx)
		if err != nil {
			return network.Params{}, fmt.Errorf("failed to query chain id from %s: %w", c.URL(), err)
		}
		if err := net.CheckChainID(id); err != nil {
			return network.Params{}, fmt.Errorf("%s: %w", c.URL(), err)
		}
	}
	rt.log.Info("Network", "name", net.Name, "chainId", net.ChainID, "endpointId", net.EndpointID)
	return net, nil
}

func (rt *runtime) sender(ctx context.Context) (*bench.Sender, error) {
	key, err := rt.cfg.SenderKey()
	if err != nil {
		return nil, err
	}
	s, err := bench.NewSender(ctx, rt.client(), key)
	if err != nil {
		return nil, err
	}
	n, _ := s.Nonces.Current()
	rt.log.Info("Sender", "address", s.Addr, "startingNonce", n)
	return s, nil
}

func (rt *runtime) fees(ctx context.Context, multiplier int64) (utils.Fees, error) {
	fees, err := utils.ResolveFees(ctx, rt.client(), rt.cfg.GasPriceGwei, multiplier)
	if err != nil {
		return utils.Fees{}, err
	}
	rt.log.Info("Fees", "gasPrice", fees.GasPrice, "maxFeePerGas", fees.GasFeeCap, "maxPriorityFeePerGas", fees.GasTipCap)
	return fees, nil
}

// resultSet opens the tx hash file when enabled. The returned close func must
// run after the set was waited on.
func (rt *runtime) resultSet() (*dispatch.ResultSet, func(), error) {
	if !rt.cfg.SaveTxHashes {
		return dispatch.NewResultSet(nil), func() {}, nil
	}
	w, err := dispatch.NewHashWriter(rt.cfg.TxHashFile, rt.log)
	if err != nil {
		return nil, nil, err
	}
	return dispatch.NewResultSet(w), func() {
		if err := w.Close(); err != nil {
			rt.log.Warn("Failed to close tx hash file", "err", err)
		}
	}, nil
}

// report waits for every submission of set and logs the outcome. It keeps
// waiting for a while after an interrupt so in-flight sends are accounted for.
func (rt *runtime) report(ctx context.Context, set *dispatch.ResultSet) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	rep, err := set.Wait(ctx)
	if err != nil {
		rt.log.Warn("Gave up waiting for pending submissions", "run", set.ID(), "err", err)
		return
	}
	for _, f := range rep.Failures {
		rt.log.Warn("Dropped transaction", "tx", f.Label, "nonce", f.Nonce, "err", f.Err)
	}
	rt.log.Info("Run finished", "run", rep.RunID, "total", rep.Total, "succeeded", rep.Succeeded, "failed", rep.Failed)
}

func loadAccounts(path string, limit int) ([]accounts.Account, error) {
	accs, err := accounts.Load(path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(accs) {
		accs = accs[:limit]
	}
	return accs, nil
}

func runGenerateAccounts(_ context.Context, args []string, out string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	count := defaultAccountCount
	if len(args) == 1 {
		if count, err = strconv.Atoi(args[0]); err != nil || count <= 0 {
			return fmt.Errorf("invalid account count %q", args[0])
		}
	}
	if out == "" {
		out = cfg.AccountsFilePath
	}

	accs, err := accounts.Generate(count)
	if err != nil {
		return err
	}
	if err := accounts.Save(out, accs); err != nil {
		return err
	}
	log.Info("Generated accounts", "count", len(accs), "path", out)
	for i, a := range accs {
		log.Debug("Account", "index", i+1, "address", a.Address)
	}
	return nil
}

func runFund(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	mc := rt.cfg.Multicall

	var reqs []network.Requirement
	if mc.FundERC20 {
		reqs = append(reqs, network.NeedToken)
	}
	net, err := rt.resolveNetwork(ctx, reqs...)
	if err != nil {
		return err
	}
	if !ethcmn.IsHexAddress(mc.Address) {
		return fmt.Errorf("invalid multicall address %q", mc.Address)
	}

	accs, err := loadAccounts(rt.cfg.AccountsFilePath, mc.AccountCount)
	if err != nil {
		return err
	}
	fees, err := rt.fees(ctx, 1)
	if err != nil {
		return err
	}

	p := bench.FundParams{
		Multicall:        ethcmn.HexToAddress(mc.Address),
		Recipients:       accounts.Addresses(accs),
		BatchSize:        mc.BatchSize,
		Delay:            mc.BatchDelay,
		Fees:             fees,
		GasLimit:         mc.GasLimit,
		GasBufferPercent: mc.GasBufferPercent,
	}
	if mc.FundNative {
		if p.NativeAmount, err = utils.ParseEther(mc.NativeAmount); err != nil {
			return fmt.Errorf("invalid multicall.nativeAmount: %w", err)
		}
	}
	if mc.FundERC20 {
		p.Token = net.Token
		if p.TokenAmount, _, err = bench.TokenAmount(ctx, rt.client(), net.Token, mc.TokenAmount); err != nil {
			return fmt.Errorf("invalid multicall.tokenAmount: %w", err)
		}
	}

	s, err := rt.sender(ctx)
	if err != nil {
		return err
	}
	set, closeSink, err := rt.resultSet()
	if err != nil {
		return err
	}
	defer closeSink()

	err = bench.Fund(ctx, s, set, p, rt.log)
	rt.report(ctx, set)
	return err
}

func runTransfer(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	tc := rt.cfg.Transfer

	accs, err := loadAccounts(rt.cfg.AccountsFilePath, 0)
	if err != nil {
		return err
	}
	amount, err := utils.ParseEther(tc.Amount)
	if err != nil {
		return fmt.Errorf("invalid transfer.amount: %w", err)
	}
	fees, err := rt.fees(ctx, 1)
	if err != nil {
		return err
	}
	set, closeSink, err := rt.resultSet()
	if err != nil {
		return err
	}
	defer closeSink()

	if tc.FundFirst {
		if err := fundForTransfer(ctx, rt, set, accs, fees); err != nil {
			rt.report(ctx, set)
			return err
		}
	}

	var limiter *rate.Limiter
	if rt.cfg.TargetTPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(rt.cfg.TargetTPS), rt.cfg.TargetTPS)
	}

	err = bench.Transfer(ctx, rt.allClients(), set, bench.TransferParams{
		Accounts:         accs,
		Amount:           amount,
		BatchSize:        tc.BatchSize,
		Delay:            tc.BatchDelay,
		GasBufferPercent: tc.GasBufferPercent,
		Fees:             fees,
		Concurrency:      rt.cfg.Concurrency,
		Limiter:          limiter,
		RpcBatch:         tc.RpcBatch,
	}, rt.log)
	rt.report(ctx, set)
	return err
}

func fundForTransfer(ctx context.Context, rt *runtime, set *dispatch.ResultSet, accs []accounts.Account, fees utils.Fees) error {
	tc, mc := rt.cfg.Transfer, rt.cfg.Multicall
	if !ethcmn.IsHexAddress(mc.Address) {
		return fmt.Errorf("invalid multicall address %q", mc.Address)
	}
	amount, err := utils.ParseEther(tc.FundAmount)
	if err != nil {
		return fmt.Errorf("invalid transfer.fundAmount: %w", err)
	}
	s, err := rt.sender(ctx)
	if err != nil {
		return err
	}

	err = bench.Fund(ctx, s, set, bench.FundParams{
		Multicall:        ethcmn.HexToAddress(mc.Address),
		Recipients:       accounts.Addresses(accs),
		BatchSize:        tc.FundBatchSize,
		Delay:            mc.BatchDelay,
		NativeAmount:     amount,
		Fees:             fees,
		GasLimit:         mc.GasLimit,
		GasBufferPercent: mc.GasBufferPercent,
	}, rt.log)
	if err != nil {
		return fmt.Errorf("funding accounts failed: %w", err)
	}
	rt.log.Info("Waiting for funding to settle", "delay", tc.SettleDelay)
	return dispatch.Sleep(ctx, tc.SettleDelay)
}

func runBridge(ctx context.Context, target string) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	bc := rt.cfg.Bridge
	if target == "" {
		target = bc.Target
	}

	src, err := rt.resolveNetwork(ctx, network.NeedBridge, network.NeedToken)
	if err != nil {
		return err
	}
	var dst network.Params
	if src.Side == network.SideWrapped {
		if target == "" {
			return fmt.Errorf("%s bridges need a target network (--target or targetNetworkName)", src.Name)
		}
		if dst, err = network.Validate(target, network.NeedEndpoint); err != nil {
			return err
		}
	} else if target != "" {
		rt.log.Info("Target network is fixed by the bridge contract, ignoring", "target", target)
	}
	variant := bench.SelectBridge(src, dst)

	amount, decimals, err := bench.TokenAmount(ctx, rt.client(), src.Token, bc.Amount)
	if err != nil {
		return fmt.Errorf("invalid bridge.amount: %w", err)
	}
	rt.log.Info("Bridge", "variant", variant.Name(), "token", src.Token, "amount", utils.FormatUnits(amount, decimals), "count", bc.Count, "target", dst.Name)

	fees, err := rt.fees(ctx, 2)
	if err != nil {
		return err
	}
	s, err := rt.sender(ctx)
	if err != nil {
		return err
	}
	set, closeSink, err := rt.resultSet()
	if err != nil {
		return err
	}
	defer closeSink()

	err = bench.Bridge(ctx, s, set, bench.BridgeParams{
		Variant:    variant,
		Token:      src.Token,
		Amount:     amount,
		Count:      bc.Count,
		Delay:      bc.Delay,
		AdapterGas: bc.AdapterGas,
		Fees:       fees,
	}, rt.log)
	rt.report(ctx, set)
	return err
}

func runBurnGas(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	gc := rt.cfg.GasBurner
	if !ethcmn.IsHexAddress(gc.Address) {
		return fmt.Errorf("invalid gasBurner address %q", gc.Address)
	}

	fees, err := rt.fees(ctx, 2)
	if err != nil {
		return err
	}
	s, err := rt.sender(ctx)
	if err != nil {
		return err
	}
	set, closeSink, err := rt.resultSet()
	if err != nil {
		return err
	}
	defer closeSink()

	err = bench.BurnGas(ctx, s, set, bench.BurnParams{
		Burner:     ethcmn.HexToAddress(gc.Address),
		Iterations: gc.Iterations,
		Count:      gc.Count,
		Delay:      gc.Delay,
		Fees:       fees,
	}, rt.log)
	rt.report(ctx, set)
	return err
}

func runMint(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	net, err := rt.resolveNetwork(ctx, network.NeedMintable)
	if err != nil {
		return err
	}
	fees, err := rt.fees(ctx, 1)
	if err != nil {
		return err
	}
	s, err := rt.sender(ctx)
	if err != nil {
		return err
	}
	_, err = bench.Mint(ctx, s, net, fees, rt.log)
	return err
}

func runNonce(ctx context.Context) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	key, err := rt.cfg.SenderKey()
	if err != nil {
		return err
	}
	addr := utils.GetEthAddressFromPK(key)
	latest, err := rt.client().QueryConfirmedNonce(ctx, addr)
	if err != nil {
		return err
	}
	pending, err := rt.client().QueryNonce(ctx, addr)
	if err != nil {
		return err
	}
	gap := new(big.Int).Sub(new(big.Int).SetUint64(pending), new(big.Int).SetUint64(latest))
	rt.log.Info("Nonce", "address", addr, "latest", latest, "pending", pending, "inPool", gap)
	return nil
}

func runTPS(ctx context.Context, interval string) error {
	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid interval %q", interval)
	}
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	m := utils.NewTPSMonitor(rt.client(), rt.log)
	if err := m.Run(ctx, d); err != nil {
		return err
	}
	s := m.Stats()
	rt.log.Info("TPS summary", "blocks", s.LastBlock-s.StartBlock, "txs", s.TotalTxs, "avg", fmt.Sprintf("%.2f", s.AverageTPS), "max", fmt.Sprintf("%.2f", s.MaxTPS))
	return nil
}
