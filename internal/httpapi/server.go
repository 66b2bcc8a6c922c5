// Package httpapi exposes the routing engine over HTTP so every UI variant
// consumes one shared implementation instead of embedding its own copy.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"routeScope/internal/chain"
	"routeScope/internal/dex"
	"routeScope/internal/model"
	"routeScope/internal/router"
)

// QuoteService is the engine surface the HTTP layer needs.
type QuoteService interface {
	GetQuote(ctx context.Context, req router.QuoteRequest) (*model.BestRoute, error)
	ResolveToken(ctx context.Context, address common.Address) (model.Token, error)
}

// Server serves quote requests over HTTP.
type Server struct {
	engine QuoteService
	logger *zap.Logger
}

func NewServer(engine QuoteService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, logger: logger}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/quote", s.handleQuote)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type routeJSON struct {
	Kind   string `json:"kind"`
	Fee    uint32 `json:"fee,omitempty"`
	Bridge string `json:"bridge,omitempty"`
	FeeIn  uint32 `json:"feeIn,omitempty"`
	FeeOut uint32 `json:"feeOut,omitempty"`
	Path   string `json:"path,omitempty"`
}

type quoteResponse struct {
	TokenIn    model.Token `json:"tokenIn"`
	TokenOut   model.Token `json:"tokenOut"`
	AmountIn   string      `json:"amountIn"`
	AmountOut  string      `json:"amountOut"`
	FeePercent string      `json:"feePercent"`
	Route      routeJSON   `json:"route"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	tokenIn, err := s.resolveParam(ctx, query.Get("tokenIn"))
	if err != nil {
		s.writeResolveError(w, "tokenIn", err)
		return
	}
	tokenOut, err := s.resolveParam(ctx, query.Get("tokenOut"))
	if err != nil {
		s.writeResolveError(w, "tokenOut", err)
		return
	}

	amountIn, ok := new(big.Int).SetString(query.Get("amountIn"), 10)
	if !ok || amountIn.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "amountIn must be a positive base-unit integer")
		return
	}

	route, err := s.engine.GetQuote(ctx, router.QuoteRequest{
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
		AmountIn: amountIn,
	})
	if err != nil {
		s.writeQuoteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, buildQuoteResponse(route))
}

func (s *Server) resolveParam(ctx context.Context, raw string) (model.Token, error) {
	if raw == "native" {
		return s.engine.ResolveToken(ctx, model.NativeTokenAddress)
	}
	if !common.IsHexAddress(raw) {
		return model.Token{}, router.ErrInvalidInput
	}
	return s.engine.ResolveToken(ctx, common.HexToAddress(raw))
}

// writeResolveError keeps 400 for a malformed address; a failure while
// fetching token metadata is a quote failure (a node outage with a cold
// token cache must not read as a caller mistake).
func (s *Server) writeResolveError(w http.ResponseWriter, param string, err error) {
	if errors.Is(err, router.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return
	}
	s.writeQuoteError(w, err)
}

func (s *Server) writeQuoteError(w http.ResponseWriter, err error) {
	var rpcErr *chain.RPCError
	switch {
	case errors.Is(err, router.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid quote input")
	case errors.Is(err, router.ErrNoRoute):
		writeError(w, http.StatusNotFound, "no pool or liquidity found for this pair")
	case errors.As(err, &rpcErr):
		s.logger.Warn("quote rpc failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "quote temporarily unavailable")
	default:
		s.logger.Error("quote failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "quote failed")
	}
}

func buildQuoteResponse(route *model.BestRoute) quoteResponse {
	resp := quoteResponse{
		TokenIn:    route.TokenIn,
		TokenOut:   route.TokenOut,
		AmountIn:   route.AmountIn.String(),
		AmountOut:  route.AmountOut.String(),
		FeePercent: route.FeePercent,
		Route:      routeJSON{Kind: route.Candidate.Kind.String()},
	}
	switch route.Candidate.Kind {
	case model.RouteSingleHop:
		resp.Route.Fee = uint32(route.Candidate.Fee)
	case model.RouteTwoHop:
		resp.Route.Bridge = route.Candidate.Bridge.Hex()
		resp.Route.FeeIn = uint32(route.Candidate.FeeIn)
		resp.Route.FeeOut = uint32(route.Candidate.FeeOut)
		resp.Route.Path = dex.PathHex(route.Candidate.Path)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
