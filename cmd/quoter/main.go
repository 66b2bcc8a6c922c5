package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"routeScope/internal/chain"
	"routeScope/internal/config"
	"routeScope/internal/dex"
	"routeScope/internal/httpapi"
	"routeScope/internal/model"
	"routeScope/internal/router"
	"routeScope/internal/storage"
	"routeScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "quoter",
		Short:        "Swap route discovery and quoting engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch the best route for one swap",
		RunE:  runQuote,
	}
	addEngineFlags(quoteCmd)
	quoteCmd.Flags().String("token-in", "", "input token address, or 'native'")
	quoteCmd.Flags().String("token-out", "", "output token address, or 'native'")
	quoteCmd.Flags().String("amount", "", "input amount in token units (e.g. 10.5)")
	quoteCmd.Flags().String("recipient", "", "optional recipient; prints execution call when set")
	quoteCmd.Flags().Duration("deadline", 20*time.Minute, "execution deadline from now")

	root.AddCommand(quoteCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream quotes for amounts typed on stdin",
		RunE:  runWatch,
	}
	addEngineFlags(watchCmd)
	watchCmd.Flags().String("token-in", "", "input token address, or 'native'")
	watchCmd.Flags().String("token-out", "", "output token address, or 'native'")

	root.AddCommand(watchCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve quotes over HTTP",
		RunE:  runServe,
	}
	addEngineFlags(serveCmd)

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().String("factory", "", "pool factory address")
	cmd.Flags().String("quoter", "", "quoter contract address")
	cmd.Flags().String("swap-router", "", "swap router address")
	cmd.Flags().String("multicall", "", "multicall aggregator address")
	cmd.Flags().String("wrapped-native", "", "wrapped native token address")
	cmd.Flags().String("native-symbol", "ETH", "native asset display symbol")
	cmd.Flags().String("preset", "fast", "route preset (fast, expanded)")
	cmd.Flags().StringSlice("bridge", nil, "bridge token addresses (overrides preset)")
	cmd.Flags().StringSlice("fee-tier", nil, "fee tiers (overrides preset)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the pool registry")
	cmd.Flags().String("pool-file", "./data/pools.jsonl", "JSONL pool registry path (used when pg-dsn is empty)")
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().Uint32("slippage-bps", 50, "slippage tolerance in basis points")
	cmd.Flags().Duration("debounce", 600*time.Millisecond, "input debounce window")
	cmd.Flags().Int("max-retries", 2, "maximum transport retry attempts")
	cmd.Flags().Duration("retry-backoff", 200*time.Millisecond, "initial transport retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	tokenInRaw, _ := cmd.Flags().GetString("token-in")
	tokenOutRaw, _ := cmd.Flags().GetString("token-out")
	amountRaw, _ := cmd.Flags().GetString("amount")

	tokenIn, err := resolveTokenArg(ctx, engine, tokenInRaw)
	if err != nil {
		return fmt.Errorf("token-in: %w", err)
	}
	tokenOut, err := resolveTokenArg(ctx, engine, tokenOutRaw)
	if err != nil {
		return fmt.Errorf("token-out: %w", err)
	}

	amountIn, err := scaleAmount(amountRaw, tokenIn.Decimals)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}

	route, err := engine.GetQuote(ctx, router.QuoteRequest{
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
		AmountIn: amountIn,
	})
	if err != nil {
		if errors.Is(err, router.ErrNoRoute) {
			fmt.Println("no pool or liquidity found for this pair")
			return nil
		}
		return err
	}

	printRoute(route)

	recipientRaw, _ := cmd.Flags().GetString("recipient")
	if recipientRaw != "" {
		recipient, err := config.ParseAddress("recipient", recipientRaw)
		if err != nil {
			return err
		}
		deadlineIn, _ := cmd.Flags().GetDuration("deadline")
		deadline := big.NewInt(time.Now().Add(deadlineIn).Unix())

		call, err := engine.BuildExecutionParams(route, recipient, deadline, cfg.SlippageBps)
		if err != nil {
			return err
		}
		printExecution(call)
	}

	return nil
}

// runWatch reads one amount per stdin line and keeps the displayed quote
// fresh: rapid edits are debounced and a quote for a superseded amount is
// never printed.
func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	tokenInRaw, _ := cmd.Flags().GetString("token-in")
	tokenOutRaw, _ := cmd.Flags().GetString("token-out")

	tokenIn, err := resolveTokenArg(ctx, engine, tokenInRaw)
	if err != nil {
		return fmt.Errorf("token-in: %w", err)
	}
	tokenOut, err := resolveTokenArg(ctx, engine, tokenOutRaw)
	if err != nil {
		return fmt.Errorf("token-out: %w", err)
	}

	scheduler := router.NewScheduler(engine, cfg.DebounceDelay, logger)
	defer scheduler.Stop()

	go func() {
		for outcome := range scheduler.Results() {
			switch {
			case errors.Is(outcome.Err, router.ErrNoRoute):
				fmt.Println("no pool or liquidity found for this pair")
			case outcome.Err != nil:
				fmt.Fprintln(os.Stderr, outcome.Err)
			default:
				printRoute(outcome.Route)
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		amountIn, err := scaleAmount(line, tokenIn.Decimals)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		scheduler.Submit(ctx, router.QuoteRequest{
			TokenIn:  tokenIn,
			TokenOut: tokenOut,
			AmountIn: amountIn,
		})
	}
	return scanner.Err()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      httpapi.NewServer(engine, logger).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Listen))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*router.Engine, func(), error) {
	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc url is required")
	}

	factory, err := config.ParseAddress("factory", cfg.Factory)
	if err != nil {
		return nil, nil, err
	}
	quoter, err := config.ParseAddress("quoter", cfg.Quoter)
	if err != nil {
		return nil, nil, err
	}
	swapRouter, err := config.ParseAddress("swap-router", cfg.SwapRouter)
	if err != nil {
		return nil, nil, err
	}
	multicall, err := config.ParseAddress("multicall", cfg.Multicall)
	if err != nil {
		return nil, nil, err
	}
	wrappedNative, err := config.ParseAddress("wrapped-native", cfg.WrappedNative)
	if err != nil {
		return nil, nil, err
	}

	preset, err := cfg.ResolvePreset()
	if err != nil {
		return nil, nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, multicall, chain.WithRetry(cfg.MaxRetries, cfg.RetryBackoff))
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	cleanup := func() { client.Close() }

	cache := router.NewPoolCache(client, factory, logger)

	store, closeStore, err := buildPoolStore(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if store != nil {
		chainID, err := client.ChainID(ctx)
		if err != nil {
			logger.Warn("chain id lookup failed, pool registry disabled", zap.Error(err))
			if closeStore != nil {
				closeStore()
			}
		} else {
			if err := cache.AttachStore(ctx, store, chainID.Uint64()); err != nil {
				logger.Warn("pool registry warm-up failed", zap.Error(err))
			}
			if closeStore != nil {
				prev := cleanup
				cleanup = func() { closeStore(); prev() }
			}
		}
	}

	engine := router.NewEngine(client, cache, router.Deployment{
		Factory:       factory,
		Quoter:        quoter,
		SwapRouter:    swapRouter,
		WrappedNative: wrappedNative,
		NativeSymbol:  cfg.NativeSymbol,
	}, preset, logger)

	logger.Info("engine ready",
		zap.String("rpc", cfg.RPCURL),
		zap.String("preset", preset.Name),
		zap.Int("fee_tiers", len(preset.FeeTiers)),
		zap.Int("bridges", len(preset.Bridges)),
		zap.Int("warm_pools", cache.Len()),
	)

	return engine, cleanup, nil
}

func buildPoolStore(ctx context.Context, cfg config.Config) (storage.PoolStore, func(), error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, store.Close, nil
	}
	if cfg.PoolFile != "" {
		return storage.NewJsonlStore(cfg.PoolFile), nil, nil
	}
	return nil, nil, nil
}

func resolveTokenArg(ctx context.Context, engine *router.Engine, raw string) (model.Token, error) {
	if raw == "" {
		return model.Token{}, fmt.Errorf("token address is required")
	}
	if raw == "native" {
		return engine.ResolveToken(ctx, model.NativeTokenAddress)
	}
	address, err := config.ParseAddress("token", raw)
	if err != nil {
		return model.Token{}, err
	}
	return engine.ResolveToken(ctx, address)
}

// scaleAmount converts a human amount to base units, e.g. "10.5" with 6
// decimals -> 10500000. Fractional digits beyond the token's precision are
// rejected rather than silently truncated.
func scaleAmount(raw string, decimals uint8) (*big.Int, error) {
	if raw == "" {
		return nil, fmt.Errorf("amount is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	scaled := amount.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", raw, decimals)
	}
	if scaled.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return scaled.BigInt(), nil
}

func printRoute(route *model.BestRoute) {
	out := map[string]any{
		"kind":       route.Candidate.Kind.String(),
		"amountIn":   route.AmountIn.String(),
		"amountOut":  route.AmountOut.String(),
		"feePercent": route.FeePercent,
	}
	switch route.Candidate.Kind {
	case model.RouteSingleHop:
		out["fee"] = uint32(route.Candidate.Fee)
	case model.RouteTwoHop:
		out["bridge"] = route.Candidate.Bridge.Hex()
		out["feeIn"] = uint32(route.Candidate.FeeIn)
		out["feeOut"] = uint32(route.Candidate.FeeOut)
		out["path"] = dex.PathHex(route.Candidate.Path)
	}
	printJSON(out)
}

func printExecution(call *router.ExecutionCall) {
	printJSON(map[string]any{
		"to":           call.To.Hex(),
		"value":        call.Value.String(),
		"data":         "0x" + common.Bytes2Hex(call.Data),
		"minAmountOut": call.MinAmountOut.String(),
	})
}

func printJSON(v any) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(encoded))
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
