package router

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"routeScope/internal/config"
	"routeScope/internal/dex"
	"routeScope/internal/model"
)

// buildCandidates resolves every pool the preset could route through in one
// cache call and emits a candidate for each path whose pools all exist:
// one SingleHop per fee tier with a direct pool, one TwoHop per
// (bridge, feeIn, feeOut) combination where both legs have pools.
func buildCandidates(ctx context.Context, cache *PoolCache, tokenIn, tokenOut common.Address, preset config.RoutePreset) ([]model.RouteCandidate, error) {
	bridges := make([]common.Address, 0, len(preset.Bridges))
	for _, bridge := range preset.Bridges {
		if bridge == tokenIn || bridge == tokenOut {
			continue
		}
		bridges = append(bridges, bridge)
	}

	keys := make([]model.PoolKey, 0, len(preset.FeeTiers)*(1+2*len(bridges)))
	seen := make(map[model.PoolKey]struct{})
	addKey := func(key model.PoolKey) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	for _, fee := range preset.FeeTiers {
		addKey(model.NewPoolKey(tokenIn, tokenOut, fee))
	}
	for _, bridge := range bridges {
		for _, fee := range preset.FeeTiers {
			addKey(model.NewPoolKey(tokenIn, bridge, fee))
			addKey(model.NewPoolKey(bridge, tokenOut, fee))
		}
	}

	entries, err := cache.Resolve(ctx, keys)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.RouteCandidate, 0)
	for _, fee := range preset.FeeTiers {
		if entries[model.NewPoolKey(tokenIn, tokenOut, fee)].Exists {
			candidates = append(candidates, model.RouteCandidate{Kind: model.RouteSingleHop, Fee: fee})
		}
	}

	for _, bridge := range bridges {
		for _, feeIn := range preset.FeeTiers {
			if !entries[model.NewPoolKey(tokenIn, bridge, feeIn)].Exists {
				continue
			}
			for _, feeOut := range preset.FeeTiers {
				if !entries[model.NewPoolKey(bridge, tokenOut, feeOut)].Exists {
					continue
				}
				path, err := dex.EncodePath(
					[]common.Address{tokenIn, bridge, tokenOut},
					[]model.FeeTier{feeIn, feeOut},
				)
				if err != nil {
					return nil, fmt.Errorf("encode path via %s: %w", bridge.Hex(), err)
				}
				candidates = append(candidates, model.RouteCandidate{
					Kind:   model.RouteTwoHop,
					Bridge: bridge,
					FeeIn:  feeIn,
					FeeOut: feeOut,
					Path:   path,
				})
			}
		}
	}

	return candidates, nil
}
