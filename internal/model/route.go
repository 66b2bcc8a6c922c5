package model

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FeeTier is a pool fee bucket in hundredths of a basis point, matching the
// uint24 fee parameter of the factory and quoter contracts (500 = 0.05%).
type FeeTier uint32

// BigInt returns the fee as a uint24-compatible big integer for ABI packing.
func (f FeeTier) BigInt() *big.Int {
	return big.NewInt(int64(f))
}

// PoolKey is the order-independent identity of a potential pool. Token0 is
// always the byte-wise lower address so (A,B,fee) and (B,A,fee) map to the
// same key.
type PoolKey struct {
	Token0 common.Address
	Token1 common.Address
	Fee    FeeTier
}

// NewPoolKey builds a normalized PoolKey for the token pair and fee tier.
func NewPoolKey(a, b common.Address, fee FeeTier) PoolKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return PoolKey{Token0: a, Token1: b, Fee: fee}
}

func (k PoolKey) String() string {
	return fmt.Sprintf("%s/%s@%d", k.Token0.Hex(), k.Token1.Hex(), k.Fee)
}

// PoolEntry is the resolved state of a PoolKey. Exists=false is the explicit
// "no pool at this tier" sentinel, distinct from a key that was never probed.
type PoolEntry struct {
	Address common.Address
	Exists  bool
}

// RouteKind tags the shape of a route candidate.
type RouteKind int

const (
	RouteSingleHop RouteKind = iota
	RouteTwoHop
	RouteWrap
	RouteUnwrap
)

func (k RouteKind) String() string {
	switch k {
	case RouteSingleHop:
		return "single-hop"
	case RouteTwoHop:
		return "two-hop"
	case RouteWrap:
		return "wrap"
	case RouteUnwrap:
		return "unwrap"
	default:
		return fmt.Sprintf("route-kind(%d)", int(k))
	}
}

// RouteCandidate is one feasible trade path. For single-hop routes only Fee
// is set; two-hop routes carry the bridge token, both leg fees and the
// encoded quoter path.
type RouteCandidate struct {
	Kind   RouteKind
	Fee    FeeTier
	Bridge common.Address
	FeeIn  FeeTier
	FeeOut FeeTier
	Path   []byte
}

// QuoteResult pairs a candidate with the output amount returned by the
// quoter. Only successfully decoded quotes are ever constructed; reverted
// candidates are dropped before this type is built.
type QuoteResult struct {
	Candidate RouteCandidate
	AmountOut *big.Int
}

// BestRoute is the winning candidate for one query together with everything
// the caller needs to display and execute it. It is rebuilt from scratch on
// every query and never reused.
type BestRoute struct {
	Candidate RouteCandidate
	TokenIn   Token
	TokenOut  Token
	AmountIn  *big.Int
	AmountOut *big.Int

	// FeePercent is the pool fee as a display percentage. For two-hop
	// routes it is the arithmetic sum of both legs, not the compounded
	// rate.
	FeePercent string
}
