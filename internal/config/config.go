package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL        string
	Factory       string
	Quoter        string
	SwapRouter    string
	Multicall     string
	WrappedNative string
	NativeSymbol  string
	Preset        string
	Bridges       []string
	FeeTiers      []uint32
	PGDSN         string
	PoolFile      string
	Listen        string
	SlippageBps   uint32
	DebounceDelay time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	LogLevel      string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("native-symbol", "ETH")
	v.SetDefault("preset", "fast")
	v.SetDefault("pool-file", "./data/pools.jsonl")
	v.SetDefault("listen", ":8080")
	v.SetDefault("slippage-bps", uint32(50))
	v.SetDefault("debounce", 600*time.Millisecond)
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 200*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:        v.GetString("rpc"),
		Factory:       v.GetString("factory"),
		Quoter:        v.GetString("quoter"),
		SwapRouter:    v.GetString("swap-router"),
		Multicall:     v.GetString("multicall"),
		WrappedNative: v.GetString("wrapped-native"),
		NativeSymbol:  v.GetString("native-symbol"),
		Preset:        v.GetString("preset"),
		Bridges:       getStringSlice(v, "bridge"),
		FeeTiers:      getUint32Slice(v, "fee-tier"),
		PGDSN:         v.GetString("pg-dsn"),
		PoolFile:      v.GetString("pool-file"),
		Listen:        v.GetString("listen"),
		SlippageBps:   v.GetUint32("slippage-bps"),
		DebounceDelay: v.GetDuration("debounce"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func getUint32Slice(v *viper.Viper, key string) []uint32 {
	items := getStringSlice(v, key)
	if len(items) == 0 {
		return nil
	}
	out := make([]uint32, 0, len(items))
	for _, item := range items {
		var value uint32
		if _, err := fmt.Sscanf(item, "%d", &value); err != nil {
			continue
		}
		out = append(out, value)
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
