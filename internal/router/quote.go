package router

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"routeScope/internal/chain"
	"routeScope/internal/dex"
	"routeScope/internal/metrics"
	"routeScope/internal/model"
)

// Quoter simulations walk ticks and can burn real gas; cap high enough for
// deep two-hop paths.
const quoteCallGasLimit = 2_000_000

// quoteCandidates prices every candidate in one batched quoter call.
// Candidates whose call reverted, or which quote to zero output, are
// dropped rather than reported as zero; they simply leave the running.
// A transport-level failure aborts the whole step.
func quoteCandidates(ctx context.Context, gateway Caller, quoter common.Address, candidates []model.RouteCandidate, tokenIn, tokenOut common.Address, amountIn *big.Int) ([]model.QuoteResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	quoterABI, err := dex.QuoterABI()
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}

	methods := make([]string, 0, len(candidates))
	calls := make([]chain.Call, 0, len(candidates))
	for _, candidate := range candidates {
		var data []byte
		var method string
		switch candidate.Kind {
		case model.RouteSingleHop:
			method = "quoteExactInputSingle"
			data, err = quoterABI.Pack(method, tokenIn, tokenOut, candidate.Fee.BigInt(), amountIn, big.NewInt(0))
		case model.RouteTwoHop:
			method = "quoteExactInput"
			data, err = quoterABI.Pack(method, candidate.Path, amountIn)
		default:
			return nil, fmt.Errorf("candidate kind %s cannot be quoted", candidate.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		methods = append(methods, method)
		calls = append(calls, chain.Call{Target: quoter, GasLimit: quoteCallGasLimit, Data: data})
	}

	metrics.CandidatesQuoted.Add(float64(len(calls)))

	results, err := gateway.BatchCall(ctx, calls)
	if err != nil {
		return nil, err
	}

	quotes := make([]model.QuoteResult, 0, len(candidates))
	for i, result := range results {
		if !result.Success || len(result.ReturnData) == 0 {
			continue
		}
		values, err := quoterABI.Unpack(methods[i], result.ReturnData)
		if err != nil || len(values) != 1 {
			continue
		}
		amountOut, ok := values[0].(*big.Int)
		if !ok || amountOut.Sign() <= 0 {
			continue
		}
		quotes = append(quotes, model.QuoteResult{Candidate: candidates[i], AmountOut: amountOut})
	}
	return quotes, nil
}
