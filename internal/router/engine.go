package router

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"routeScope/internal/chain"
	"routeScope/internal/config"
	"routeScope/internal/dex"
	"routeScope/internal/metrics"
	"routeScope/internal/model"
)

// Caller is the read-only chain access the engine needs. *chain.Client
// satisfies it; tests substitute an in-process fake.
type Caller interface {
	BatchCall(ctx context.Context, calls []chain.Call) ([]chain.Result, error)
}

// Deployment holds the contract addresses of one chain deployment.
type Deployment struct {
	Factory       common.Address
	Quoter        common.Address
	SwapRouter    common.Address
	WrappedNative common.Address
	NativeSymbol  string
}

// QuoteRequest is one routing query. FeeTiers and Bridges override the
// engine's default preset when set.
type QuoteRequest struct {
	TokenIn  model.Token
	TokenOut model.Token
	AmountIn *big.Int

	FeeTiers []model.FeeTier
	Bridges  []common.Address
}

// Engine is the shared route-discovery and quoting pipeline. One instance
// serves every caller; the pool cache is its only mutable state.
type Engine struct {
	gateway    Caller
	cache      *PoolCache
	deployment Deployment
	preset     config.RoutePreset
	tokens     *dex.TokenMetaCache
	logger     *zap.Logger
}

// NewEngine wires the pipeline. A nil logger is replaced with a no-op one.
func NewEngine(gateway Caller, cache *PoolCache, deployment Deployment, preset config.RoutePreset, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		gateway:    gateway,
		cache:      cache,
		deployment: deployment,
		preset:     preset,
		tokens:     dex.NewTokenMetaCache(),
		logger:     logger,
	}
}

// ResolveToken loads token metadata, caching per address. The native
// sentinel resolves locally without a network call.
func (e *Engine) ResolveToken(ctx context.Context, address common.Address) (model.Token, error) {
	if address == model.NativeTokenAddress {
		return model.NativeToken(e.deployment.NativeSymbol), nil
	}
	if token, ok := e.tokens.Get(address); ok {
		return token, nil
	}
	token, err := dex.FetchToken(ctx, e.gateway, address)
	if err != nil {
		return model.Token{}, err
	}
	e.tokens.Set(token)
	return token, nil
}

// GetQuote runs the three-phase pipeline for one query: resolve pools,
// generate candidates, batch-quote, select. The native↔wrapped pair
// short-circuits to a fixed 1:1 route with zero network calls.
func (e *Engine) GetQuote(ctx context.Context, req QuoteRequest) (*model.BestRoute, error) {
	start := time.Now()
	route, err := e.getQuote(ctx, req)
	metrics.QuoteDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.QuoteRequests.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrNoRoute):
		metrics.QuoteRequests.WithLabelValues("no_route").Inc()
	case errors.Is(err, ErrInvalidInput):
		metrics.QuoteRequests.WithLabelValues("invalid").Inc()
	default:
		var rpcErr *chain.RPCError
		if errors.As(err, &rpcErr) {
			metrics.RPCErrors.Inc()
		}
		metrics.QuoteRequests.WithLabelValues("error").Inc()
	}
	return route, err
}

func (e *Engine) getQuote(ctx context.Context, req QuoteRequest) (*model.BestRoute, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, ErrInvalidInput
	}
	if req.TokenIn.Address == req.TokenOut.Address {
		return nil, ErrInvalidInput
	}
	// A zero-value token means the caller skipped resolution. Decimals
	// are deliberately not checked: 0 is a legal ERC-20 precision.
	if req.TokenIn.Address == (common.Address{}) || req.TokenOut.Address == (common.Address{}) {
		return nil, ErrInvalidInput
	}

	if kind, ok := e.wrapShortcut(req); ok {
		e.logger.Debug("wrap shortcut",
			zap.Stringer("kind", kind),
			zap.String("amount", req.AmountIn.String()),
		)
		candidate := model.RouteCandidate{Kind: kind}
		return &model.BestRoute{
			Candidate:  candidate,
			TokenIn:    req.TokenIn,
			TokenOut:   req.TokenOut,
			AmountIn:   req.AmountIn,
			AmountOut:  new(big.Int).Set(req.AmountIn),
			FeePercent: feePercent(candidate),
		}, nil
	}

	preset := e.preset
	if len(req.FeeTiers) > 0 {
		preset.FeeTiers = req.FeeTiers
	}
	if len(req.Bridges) > 0 {
		preset.Bridges = req.Bridges
	}

	routeIn := e.routingAddress(req.TokenIn)
	routeOut := e.routingAddress(req.TokenOut)
	if routeIn == routeOut {
		return nil, ErrInvalidInput
	}

	candidates, err := buildCandidates(ctx, e.cache, routeIn, routeOut, preset)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoRoute
	}

	quotes, err := quoteCandidates(ctx, e.gateway, e.deployment.Quoter, candidates, routeIn, routeOut, req.AmountIn)
	if err != nil {
		return nil, err
	}

	best, ok := selectBest(quotes)
	if !ok {
		return nil, ErrNoRoute
	}

	e.logger.Debug("route selected",
		zap.Stringer("kind", best.Candidate.Kind),
		zap.String("amount_in", req.AmountIn.String()),
		zap.String("amount_out", best.AmountOut.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("quoted", len(quotes)),
	)

	return &model.BestRoute{
		Candidate:  best.Candidate,
		TokenIn:    req.TokenIn,
		TokenOut:   req.TokenOut,
		AmountIn:   req.AmountIn,
		AmountOut:  best.AmountOut,
		FeePercent: feePercent(best.Candidate),
	}, nil
}

// wrapShortcut reports whether the pair is native↔wrapped-native, which
// trades 1:1 through the wrapped token contract with no pool involved.
func (e *Engine) wrapShortcut(req QuoteRequest) (model.RouteKind, bool) {
	switch {
	case req.TokenIn.IsNative() && req.TokenOut.Address == e.deployment.WrappedNative:
		return model.RouteWrap, true
	case req.TokenIn.Address == e.deployment.WrappedNative && req.TokenOut.IsNative():
		return model.RouteUnwrap, true
	default:
		return 0, false
	}
}

// routingAddress maps the native sentinel to the wrapped token for pool
// lookups and quoting; pools only ever hold the wrapped form.
func (e *Engine) routingAddress(token model.Token) common.Address {
	if token.IsNative() {
		return e.deployment.WrappedNative
	}
	return token.Address
}
