package router

import (
	"bytes"
	"context"
	"encoding/hex"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"routeScope/internal/chain"
	"routeScope/internal/config"
	"routeScope/internal/dex"
	"routeScope/internal/model"
)

var (
	testFactory = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	testQuoter  = common.HexToAddress("0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6")
	testRouter  = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
	testWETH    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testBridge  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testTokenA  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	testTokenB  = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")

	testPoolA = common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")
	testPoolB = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
)

// fakeGateway serves factory and quoter calls from in-memory tables so the
// whole pipeline runs without a node. Pool lookups answer with the zero
// address when the pair is unknown, matching the real factory.
type fakeGateway struct {
	t *testing.T

	pools        map[model.PoolKey]common.Address
	singleQuotes map[model.FeeTier]*big.Int
	pathQuotes   map[string]*big.Int

	err     error
	onQuote func(amountIn *big.Int)

	mu      sync.Mutex
	batches [][]chain.Call
}

func newFakeGateway(t *testing.T) *fakeGateway {
	return &fakeGateway{
		t:            t,
		pools:        make(map[model.PoolKey]common.Address),
		singleQuotes: make(map[model.FeeTier]*big.Int),
		pathQuotes:   make(map[string]*big.Int),
	}
}

func (g *fakeGateway) addPool(a, b common.Address, fee model.FeeTier, pool common.Address) {
	g.pools[model.NewPoolKey(a, b, fee)] = pool
}

func (g *fakeGateway) addPathQuote(path []byte, amountOut *big.Int) {
	g.pathQuotes[hex.EncodeToString(path)] = amountOut
}

func (g *fakeGateway) BatchCall(_ context.Context, calls []chain.Call) ([]chain.Result, error) {
	g.mu.Lock()
	g.batches = append(g.batches, calls)
	err := g.err
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	results := make([]chain.Result, len(calls))
	for i, call := range calls {
		switch call.Target {
		case testFactory:
			results[i] = g.servePoolLookup(call)
		case testQuoter:
			results[i] = g.serveQuote(call)
		default:
			results[i] = chain.Result{}
		}
	}
	return results, nil
}

func (g *fakeGateway) servePoolLookup(call chain.Call) chain.Result {
	factoryABI, err := dex.FactoryABI()
	if err != nil {
		g.t.Fatalf("parse factory abi: %v", err)
	}
	method := factoryABI.Methods["getPool"]
	if !bytes.HasPrefix(call.Data, method.ID) {
		g.t.Fatalf("unexpected factory selector %x", call.Data[:4])
	}

	values, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		g.t.Fatalf("unpack getPool: %v", err)
	}
	tokenA := values[0].(common.Address)
	tokenB := values[1].(common.Address)
	fee := model.FeeTier(values[2].(*big.Int).Uint64())

	pool := g.pools[model.NewPoolKey(tokenA, tokenB, fee)]
	out, err := method.Outputs.Pack(pool)
	if err != nil {
		g.t.Fatalf("pack getPool result: %v", err)
	}
	return chain.Result{Success: true, ReturnData: out}
}

func (g *fakeGateway) serveQuote(call chain.Call) chain.Result {
	quoterABI, err := dex.QuoterABI()
	if err != nil {
		g.t.Fatalf("parse quoter abi: %v", err)
	}
	single := quoterABI.Methods["quoteExactInputSingle"]
	multi := quoterABI.Methods["quoteExactInput"]

	var amountOut *big.Int
	switch {
	case bytes.HasPrefix(call.Data, single.ID):
		values, err := single.Inputs.Unpack(call.Data[4:])
		if err != nil {
			g.t.Fatalf("unpack quoteExactInputSingle: %v", err)
		}
		if g.onQuote != nil {
			g.onQuote(values[3].(*big.Int))
		}
		amountOut = g.singleQuotes[model.FeeTier(values[2].(*big.Int).Uint64())]
	case bytes.HasPrefix(call.Data, multi.ID):
		values, err := multi.Inputs.Unpack(call.Data[4:])
		if err != nil {
			g.t.Fatalf("unpack quoteExactInput: %v", err)
		}
		if g.onQuote != nil {
			g.onQuote(values[1].(*big.Int))
		}
		amountOut = g.pathQuotes[hex.EncodeToString(values[0].([]byte))]
	default:
		g.t.Fatalf("unexpected quoter selector %x", call.Data[:4])
	}

	if amountOut == nil {
		// No table entry: the quoter reverts on missing liquidity.
		return chain.Result{}
	}
	out, err := single.Outputs.Pack(amountOut)
	if err != nil {
		g.t.Fatalf("pack quote result: %v", err)
	}
	return chain.Result{Success: true, ReturnData: out}
}

func testPreset(tiers []model.FeeTier, bridges ...common.Address) config.RoutePreset {
	return config.RoutePreset{Name: "test", FeeTiers: tiers, Bridges: bridges}
}

func newTestEngine(gw *fakeGateway, preset config.RoutePreset) *Engine {
	cache := NewPoolCache(gw, testFactory, nil)
	return NewEngine(gw, cache, Deployment{
		Factory:       testFactory,
		Quoter:        testQuoter,
		SwapRouter:    testRouter,
		WrappedNative: testWETH,
		NativeSymbol:  "ETH",
	}, preset, nil)
}

func mustEncodePath(t *testing.T, tokens []common.Address, fees []model.FeeTier) []byte {
	t.Helper()
	path, err := dex.EncodePath(tokens, fees)
	if err != nil {
		t.Fatalf("encode path: %v", err)
	}
	return path
}
