package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	lop "github.com/samber/lo/parallel"
	"github.com/shopspring/decimal"

	"github.com/ihs-daytrader/pkg/risk"
)

// ErrInvalidGrid is returned for a range that produces no values or a
// grid too large to run
var ErrInvalidGrid = errors.New("invalid grid")

// MaxGridCells caps the points of one range and the cells of a grid
const MaxGridCells = 10000

// Range is a half-open float range walked in Step increments. Values are
// computed as Start + i*Step so rounding error does not accumulate.
type Range struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
	Step  float64 `json:"step"`
}

func (r Range) finite() bool {
	for _, v := range []float64{r.Start, r.Stop, r.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// span estimates the number of points without materializing them
func (r Range) span() float64 {
	return math.Ceil((r.Stop - r.Start) / r.Step)
}

// Values returns the points of the range, excluding Stop. A non-finite,
// zero-step or oversized range has no values.
func (r Range) Values() []float64 {
	if r.Step == 0 || !r.finite() || r.span() > MaxGridCells {
		return nil
	}

	var values []float64
	for i := 0; ; i++ {
		v := r.Start + float64(i)*r.Step
		if (r.Step > 0 && v >= r.Stop) || (r.Step < 0 && v <= r.Stop) {
			break
		}
		values = append(values, v)
	}
	return values
}

// Validate checks that the range is finite, walks toward Stop and stays
// under MaxGridCells points
func (r Range) Validate() error {
	if !r.finite() {
		return fmt.Errorf("%w: range %v..%v step %v is not finite", ErrInvalidGrid, r.Start, r.Stop, r.Step)
	}
	if r.Step != 0 && r.span() > MaxGridCells {
		return fmt.Errorf("%w: range %v..%v step %v exceeds %d points", ErrInvalidGrid, r.Start, r.Stop, r.Step, MaxGridCells)
	}
	if len(r.Values()) == 0 {
		return fmt.Errorf("%w: range %v..%v step %v is empty", ErrInvalidGrid, r.Start, r.Stop, r.Step)
	}
	return nil
}

// Grid is the cartesian product of profit and loss limits to sweep
type Grid struct {
	Profit Range `json:"profit"`
	Loss   Range `json:"loss"`
}

// DefaultGrid returns profit limits 0.005..0.06 and loss limits -0.02..-0.10
func DefaultGrid() Grid {
	return Grid{
		Profit: Range{Start: 0.005, Stop: 0.065, Step: 0.005},
		Loss:   Range{Start: -0.02, Stop: -0.11, Step: -0.01},
	}
}

// Validate checks both ranges, the cell count and that every cell is a
// runnable limit pair
func (g Grid) Validate() error {
	if err := g.Profit.Validate(); err != nil {
		return fmt.Errorf("profit: %w", err)
	}
	if err := g.Loss.Validate(); err != nil {
		return fmt.Errorf("loss: %w", err)
	}
	if size := g.Size(); size > MaxGridCells {
		return fmt.Errorf("%w: %d cells exceeds %d", ErrInvalidGrid, size, MaxGridCells)
	}
	if lo.Min(g.Profit.Values()) <= 0 {
		return fmt.Errorf("%w: profit limits must be > 0", ErrInvalidGrid)
	}
	if lo.Max(g.Loss.Values()) >= 0 {
		return fmt.Errorf("%w: loss limits must be < 0", ErrInvalidGrid)
	}
	return nil
}

// Size is the number of cells in the grid
func (g Grid) Size() int {
	return len(g.Profit.Values()) * len(g.Loss.Values())
}

// Cell is the outcome of one profit/loss pair
type Cell struct {
	ProfitLimit float64         `json:"profitLimit"`
	LossLimit   float64         `json:"lossLimit"`
	TotalAssets decimal.Decimal `json:"totalAssets"`
	Fills       int             `json:"fills"`
	Failures    []Failure       `json:"failures,omitempty"`
}

// SweepResult holds every cell of a sweep in grid order, profit-major
type SweepResult struct {
	RunID       string          `json:"runId"`
	Grid        Grid            `json:"grid"`
	InitialCash decimal.Decimal `json:"initialCash"`
	Cells       []Cell          `json:"cells"`
	Skipped     []string        `json:"skipped,omitempty"`
	Failures    []Failure       `json:"failures,omitempty"`
}

// Best returns the cell with the highest total assets. Ties go to the
// earlier cell.
func (s *SweepResult) Best() (Cell, bool) {
	if len(s.Cells) == 0 {
		return Cell{}, false
	}
	return lo.MaxBy(s.Cells, func(a, b Cell) bool {
		return a.TotalAssets.GreaterThan(b.TotalAssets)
	}), true
}

// Ranked returns the cells ordered by total assets, best first
func (s *SweepResult) Ranked() []Cell {
	ranked := append([]Cell(nil), s.Cells...)
	sortCells(ranked)
	return ranked
}

// Sweep runs the universe once per grid cell. Every cell gets its own
// portfolio holding the initial cash, so cells are independent and run in
// parallel. Price data is fetched once and shared read-only. Open
// positions are marked at the last close of their series.
func (r *Runner) Sweep(ctx context.Context, tickers []string, base risk.Limits, grid Grid) (*SweepResult, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}

	data, err := r.load(ctx, tickers)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := r.logger.With().Str("run_id", runID).Logger()
	logger.Info().
		Int("tickers", len(tickers)).
		Int("cells", grid.Size()).
		Msg("starting sweep")

	type pair struct{ profit, loss float64 }
	pairs := make([]pair, 0, grid.Size())
	for _, p := range grid.Profit.Values() {
		for _, l := range grid.Loss.Values() {
			pairs = append(pairs, pair{p, l})
		}
	}

	cellLogger := logger.Level(cellLevel(logger.GetLevel()))

	runCell := func(c pair, _ int) Cell {
		limits := base.WithThresholds(c.profit, c.loss)
		result, p := r.simulate(data, limits, cellLogger)

		cell := Cell{
			ProfitLimit: c.profit,
			LossLimit:   c.loss,
			Fills:       len(result.Events),
			Failures:    result.Failures[len(data.failures):],
		}
		if err := value(result, p, data.lastClose); err != nil {
			cell.Failures = append(cell.Failures, newFailure("", err))
			cell.TotalAssets = result.Cash
			return cell
		}
		cell.TotalAssets = result.TotalAssets
		return cell
	}

	// At most one goroutine per CPU, batch by batch in grid order
	cells := make([]Cell, 0, len(pairs))
	for _, batch := range lo.Chunk(pairs, runtime.GOMAXPROCS(0)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells = append(cells, lop.Map(batch, runCell)...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sweep := &SweepResult{
		RunID:       runID,
		Grid:        grid,
		InitialCash: r.initialCash,
		Cells:       cells,
		Skipped:     data.skipped,
		Failures:    data.failures,
	}

	if best, ok := sweep.Best(); ok {
		logger.Info().
			Float64("profit_limit", best.ProfitLimit).
			Float64("loss_limit", best.LossLimit).
			Str("total_assets", best.TotalAssets.String()).
			Msg("sweep complete")
	}
	return sweep, nil
}

func sortCells(cells []Cell) {
	sort.SliceStable(cells, func(i, j int) bool {
		return cells[i].TotalAssets.GreaterThan(cells[j].TotalAssets)
	})
}

// cellLevel raises info to warn so a sweep logs its summary, not every fill
func cellLevel(level zerolog.Level) zerolog.Level {
	if level == zerolog.InfoLevel {
		return zerolog.WarnLevel
	}
	return level
}
