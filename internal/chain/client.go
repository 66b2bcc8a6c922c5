package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// RPCError wraps a transport-level failure (timeout, malformed response,
// connection loss). Per-call reverts inside a batch are never RPCErrors;
// they surface as Result.Success == false.
type RPCError struct {
	Op  string
	Err error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s: %v", e.Op, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// Call is one entry of a batched multicall.
type Call struct {
	Target   common.Address
	GasLimit uint64
	Data     []byte
}

// Result is the per-call outcome of a batched multicall.
type Result struct {
	Success    bool
	ReturnData []byte
}

// Client wraps go-ethereum RPC and provides read-only contract calls plus a
// batched multicall primitive.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	multicall    common.Address
	maxRetries   int
	retryBackoff time.Duration
}

// Option adjusts Client construction.
type Option func(*Client)

// WithRetry enables transport-level retries with exponential backoff.
// Retrying is a transport concern; callers above this layer never retry.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryBackoff = backoff
	}
}

// NewClient dials the RPC endpoint. multicall is the on-chain aggregator
// contract used by BatchCall.
func NewClient(ctx context.Context, rpcURL string, multicall common.Address, opts ...Option) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, &RPCError{Op: "dial", Err: err}
	}

	c := &Client{
		rpcClient:    rpcClient,
		ethClient:    ethclient.NewClient(rpcClient),
		multicall:    multicall,
		retryBackoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, &RPCError{Op: "chain id", Err: err}
	}
	return id, nil
}

// Call performs a single eth_call against target at the latest block.
func (c *Client) Call(ctx context.Context, target common.Address, data []byte) ([]byte, error) {
	var out []byte
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, nil)
		return err
	})
	if err != nil {
		return nil, &RPCError{Op: fmt.Sprintf("call %s", target.Hex()), Err: err}
	}
	return out, nil
}

// BatchCall bundles the calls into one multicall round trip. The returned
// slice preserves input order and length; a reverting call is reported with
// Success=false instead of failing the batch.
func (c *Client) BatchCall(ctx context.Context, calls []Call) ([]Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	data, err := packMulticall(calls)
	if err != nil {
		return nil, fmt.Errorf("pack multicall: %w", err)
	}

	raw, err := c.Call(ctx, c.multicall, data)
	if err != nil {
		return nil, err
	}

	results, err := unpackMulticall(raw)
	if err != nil {
		return nil, &RPCError{Op: "decode multicall", Err: err}
	}
	if len(results) != len(calls) {
		return nil, &RPCError{Op: "decode multicall", Err: fmt.Errorf("got %d results for %d calls", len(results), len(calls))}
	}
	return results, nil
}

func (c *Client) withRetry(ctx context.Context, fn func(context.Context) error) error {
	delay := c.retryBackoff
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= c.maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
