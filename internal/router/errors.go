package router

import "errors"

var (
	// ErrNoRoute means every candidate either had no pool or failed to
	// quote. It is a normal terminal result, not a transport failure.
	ErrNoRoute = errors.New("no pool or liquidity found for this pair")

	// ErrInvalidInput covers a zero or missing amount, a missing token
	// address, or identical tokens. No network call is made.
	ErrInvalidInput = errors.New("invalid quote input")
)
