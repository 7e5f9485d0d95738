package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ihs-daytrader/pkg/backtest"
	"github.com/ihs-daytrader/pkg/feed"
	"github.com/ihs-daytrader/pkg/risk"
)

// ==================== REQUEST/RESPONSE TYPES ====================

// SeriesInput is one instrument's samples. Samples may be in either time order.
type SeriesInput struct {
	Ticker  string        `json:"ticker" binding:"required"`
	Samples []feed.Sample `json:"samples"`
}

// BacktestRequest runs one parameter set. Omitted parameters take defaults.
type BacktestRequest struct {
	InitialCash      *decimal.Decimal `json:"initialCash"`
	ProfitLimit      *float64         `json:"profitLimit"`
	LossLimit        *float64         `json:"lossLimit"`
	PositionFraction *float64         `json:"positionFraction"`
	Series           []SeriesInput    `json:"series" binding:"required,min=1,dive"`
}

// SweepRequest runs every cell of a grid. Omitted grid takes the default.
type SweepRequest struct {
	BacktestRequest
	Grid *backtest.Grid `json:"grid"`
}

// SweepResponse is a sweep with its best cell
type SweepResponse struct {
	*backtest.SweepResult
	Best *backtest.Cell `json:"best,omitempty"`
}

func (r BacktestRequest) limits() risk.Limits {
	limits := risk.DefaultLimits()
	if r.ProfitLimit != nil {
		limits.ProfitLimit = *r.ProfitLimit
	}
	if r.LossLimit != nil {
		limits.LossLimit = *r.LossLimit
	}
	if r.PositionFraction != nil {
		limits.PositionFraction = *r.PositionFraction
	}
	return limits
}

// validate rejects what binding tags cannot express
func (r BacktestRequest) validate() error {
	if r.InitialCash != nil && !r.InitialCash.IsPositive() {
		return errors.New("initialCash must be > 0")
	}
	tickers := lo.Map(r.Series, func(in SeriesInput, _ int) string { return in.Ticker })
	if dups := lo.FindDuplicates(tickers); len(dups) > 0 {
		return fmt.Errorf("series repeats tickers %v", dups)
	}
	return nil
}

// runner serves the request's series in the order given. Tickers are
// unique after validate.
func (s *Server) runner(r BacktestRequest) (*backtest.Runner, []string) {
	source := make(feed.StaticSource, len(r.Series))
	for _, in := range r.Series {
		source[in.Ticker] = in.Samples
	}
	tickers := lo.Map(r.Series, func(in SeriesInput, _ int) string { return in.Ticker })

	opts := []backtest.Option{backtest.WithLogger(s.logger)}
	if r.InitialCash != nil {
		opts = append(opts, backtest.WithInitialCash(*r.InitialCash))
	}
	return backtest.NewRunner(source, opts...), tickers
}

// ==================== HANDLERS ====================

// handleBacktest runs a single backtest over the posted series
// POST /v1/backtest
func (s *Server) handleBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	runner, tickers := s.runner(req)
	result, err := runner.Run(c.Request.Context(), tickers, req.limits())
	if err != nil {
		s.respondRunError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleSweep runs the posted series once per grid cell
// POST /v1/sweep
func (s *Server) handleSweep(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	grid := backtest.DefaultGrid()
	if req.Grid != nil {
		grid = *req.Grid
	}

	runner, tickers := s.runner(req.BacktestRequest)
	sweep, err := runner.Sweep(c.Request.Context(), tickers, req.limits(), grid)
	if err != nil {
		s.respondRunError(c, err)
		return
	}

	response := SweepResponse{SweepResult: sweep}
	if best, ok := sweep.Best(); ok {
		response.Best = &best
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) respondRunError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, risk.ErrInvalidLimits),
		errors.Is(err, backtest.ErrInvalidGrid),
		errors.Is(err, backtest.ErrNoTickers):
		errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("backtest failed")
		errorResponse(c, http.StatusInternalServerError, "Backtest failed: "+err.Error())
	}
}
