package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"routeScope/internal/dex"
	"routeScope/internal/model"
)

// ExecutionCall describes the single contract call that executes a selected
// route. Signing and submission belong to the caller's wallet layer.
type ExecutionCall struct {
	To           common.Address
	Value        *big.Int
	Data         []byte
	MinAmountOut *big.Int
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputParams struct {
	Path             []byte
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

// BuildExecutionParams converts a selected route into the swap router (or
// wrapped-native) call it executes through. slippageBps guards the minimum
// acceptable output: minOut = amountOut * (10000 - slippageBps) / 10000,
// truncated toward zero. Wrap and unwrap are exact and take no slippage.
func (e *Engine) BuildExecutionParams(route *model.BestRoute, recipient common.Address, deadline *big.Int, slippageBps uint32) (*ExecutionCall, error) {
	if route == nil || route.AmountIn == nil || route.AmountOut == nil {
		return nil, ErrInvalidInput
	}
	if slippageBps > 10_000 {
		return nil, fmt.Errorf("slippage %d bps exceeds 100%%", slippageBps)
	}

	switch route.Candidate.Kind {
	case model.RouteWrap:
		return e.buildWrapCall(route, true)
	case model.RouteUnwrap:
		return e.buildWrapCall(route, false)
	}

	minOut := minAmountOut(route.AmountOut, slippageBps)

	routerABI, err := dex.SwapRouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse swap router abi: %w", err)
	}

	var data []byte
	switch route.Candidate.Kind {
	case model.RouteSingleHop:
		data, err = routerABI.Pack("exactInputSingle", exactInputSingleParams{
			TokenIn:           e.routingAddress(route.TokenIn),
			TokenOut:          e.routingAddress(route.TokenOut),
			Fee:               route.Candidate.Fee.BigInt(),
			Recipient:         recipient,
			Deadline:          deadline,
			AmountIn:          route.AmountIn,
			AmountOutMinimum:  minOut,
			SqrtPriceLimitX96: big.NewInt(0),
		})
	case model.RouteTwoHop:
		data, err = routerABI.Pack("exactInput", exactInputParams{
			Path:             route.Candidate.Path,
			Recipient:        recipient,
			Deadline:         deadline,
			AmountIn:         route.AmountIn,
			AmountOutMinimum: minOut,
		})
	default:
		return nil, fmt.Errorf("route kind %s cannot be executed", route.Candidate.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("pack execution call: %w", err)
	}

	value := big.NewInt(0)
	if route.TokenIn.IsNative() {
		value = new(big.Int).Set(route.AmountIn)
	}

	return &ExecutionCall{
		To:           e.deployment.SwapRouter,
		Value:        value,
		Data:         data,
		MinAmountOut: minOut,
	}, nil
}

func (e *Engine) buildWrapCall(route *model.BestRoute, wrap bool) (*ExecutionCall, error) {
	wethABI, err := dex.WETH9ABI()
	if err != nil {
		return nil, fmt.Errorf("parse weth abi: %w", err)
	}

	call := &ExecutionCall{
		To:           e.deployment.WrappedNative,
		Value:        big.NewInt(0),
		MinAmountOut: new(big.Int).Set(route.AmountIn),
	}
	if wrap {
		call.Data, err = wethABI.Pack("deposit")
		call.Value = new(big.Int).Set(route.AmountIn)
	} else {
		call.Data, err = wethABI.Pack("withdraw", route.AmountIn)
	}
	if err != nil {
		return nil, fmt.Errorf("pack wrap call: %w", err)
	}
	return call, nil
}

// minAmountOut truncates toward zero; a one-base-unit shortfall on the
// guard is preferable to a guard the pool can never satisfy.
func minAmountOut(amountOut *big.Int, slippageBps uint32) *big.Int {
	factor := decimal.New(int64(10_000-slippageBps), -4)
	return decimal.NewFromBigInt(amountOut, 0).Mul(factor).BigInt()
}
