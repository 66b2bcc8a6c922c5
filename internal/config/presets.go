package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"routeScope/internal/model"
)

// RoutePreset names one latency/coverage trade-off: the fee tiers to probe
// and the bridge tokens allowed as the middle hop. fast keeps the candidate
// set (and so the multicall size) small; expanded probes everything.
type RoutePreset struct {
	Name     string
	FeeTiers []model.FeeTier
	Bridges  []common.Address
}

// Common bridge tokens on Ethereum mainnet; per-deployment configuration
// overrides these.
var (
	mainnetWETH = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	mainnetUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	mainnetUSDT = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	mainnetDAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	mainnetWBTC = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

// DefaultPresets returns the built-in presets.
func DefaultPresets() map[string]RoutePreset {
	return map[string]RoutePreset{
		"fast": {
			Name:     "fast",
			FeeTiers: []model.FeeTier{500, 3000},
			Bridges:  []common.Address{mainnetWETH, mainnetUSDC},
		},
		"expanded": {
			Name:     "expanded",
			FeeTiers: []model.FeeTier{100, 500, 3000, 10000},
			Bridges:  []common.Address{mainnetWETH, mainnetUSDC, mainnetUSDT, mainnetDAI, mainnetWBTC},
		},
	}
}

// ResolvePreset picks the named preset and applies any bridge or fee-tier
// overrides from the config.
func (c Config) ResolvePreset() (RoutePreset, error) {
	preset, ok := DefaultPresets()[c.Preset]
	if !ok {
		return RoutePreset{}, fmt.Errorf("unknown preset %q", c.Preset)
	}

	if len(c.Bridges) > 0 {
		bridges, err := ParseAddresses(c.Bridges)
		if err != nil {
			return RoutePreset{}, fmt.Errorf("bridges: %w", err)
		}
		preset.Bridges = bridges
	}
	if len(c.FeeTiers) > 0 {
		tiers := make([]model.FeeTier, 0, len(c.FeeTiers))
		for _, tier := range c.FeeTiers {
			tiers = append(tiers, model.FeeTier(tier))
		}
		preset.FeeTiers = tiers
	}

	return preset, nil
}
