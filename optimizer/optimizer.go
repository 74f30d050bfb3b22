// Package optimizer implements the MTOM Optimizer: the bracketing
// search controller that spawns a generation of workers per epoch,
// observes their telemetry, classifies their final statuses, and
// decides the next mass bracket.
package optimizer

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	channerics "github.com/niceyeti/channerics/channels"
	"gonum.org/v1/gonum/floats"

	"github.com/b-samee/MaximumTakeOffMassOptimizer/analyzer"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/config"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/display"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/dynamics"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/telemetry"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/telemetry/broadcast"
)

// pollInterval paces the optimizer's own liveness poll loop. The
// display has no independent timer of its own; this is the one clock
// that drives it, and it belongs to the optimizer.
const pollInterval = 40 * time.Millisecond

// Optimizer owns the Worker Telemetry Channel and drives epochs to
// convergence for one RunConfiguration.
type Optimizer struct {
	Config    *config.RunConfiguration
	N         int
	Renderer  *display.Renderer
	Broadcast *broadcast.Server
	Logger    log.Logger
	// Analyzer overrides the external analyzer each worker calls. When
	// nil, workers build an analyzer.Process from Config — the
	// production path. Tests set this to a stub to avoid forking a
	// real subprocess.
	Analyzer analyzer.Interface

	channel *telemetry.Channel
}

// New constructs an Optimizer with N ≥ 3 workers.
func New(cfg *config.RunConfiguration, n int, renderer *display.Renderer, logger log.Logger) *Optimizer {
	if n < 3 {
		n = 3
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Optimizer{
		Config:   cfg,
		N:        n,
		Renderer: renderer,
		Logger:   logger,
		channel:  telemetry.NewChannel(n),
	}
}

type indexedOutcome struct {
	index   int
	outcome dynamics.Outcome
}

// Run drives the optimizer to one of the three terminal ResultStates.
// It never returns an error for in-core worker failures — those flow
// through classification; Run's error return is reserved for context
// cancellation.
func (o *Optimizer) Run(ctx context.Context) (Result, error) {
	cfg := o.Config
	n := o.N

	mLower := cfg.MassMin
	mUpper := cfg.MassMax
	mLowerBackup := cfg.RoundMass(cfg.MassMin)
	mUpperBackup := cfg.RoundMass(cfg.MassMax)

	grid := linspace(mLower, mUpper, n)
	roundGrid(grid, cfg)

	precisionMultiplier := pow10(cfg.ArithmeticPrecision)
	start := time.Now()

	if o.Renderer != nil {
		defer o.Renderer.Close()
	}

	for epoch := 1; ; epoch++ {
		if int64(grid[n-1]*precisionMultiplier)-int64(grid[0]*precisionMultiplier) <= 1 {
			level.Info(o.Logger).Log("msg", "MTOM found", "mass", grid[0], "epoch", epoch)
			return Result{State: ResultMTOMFound, Mass: grid[0], Epoch: epoch}, nil
		}

		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		outcomes, err := o.runEpoch(ctx, grid, epoch, start)
		if err != nil {
			return Result{}, err
		}

		best, anySuccess := classify(outcomes, grid, &mLower, &mUpper)

		switch {
		case !anySuccess:
			// Case A: grid is above MTOM.
			if mLowerBackup < grid[0] {
				oldLowest := grid[0]
				grid = linspaceExcludingEndpoints(mLowerBackup, oldLowest, n)
				roundGrid(grid, cfg)
				mUpperBackup = oldLowest
				continue
			}
			level.Warn(o.Logger).Log("msg", "mass lower bound beyond MTOM", "lower_bound", mLowerBackup)
			return Result{State: ResultMassLowerboundBeyondMTOM, Mass: mLowerBackup, Epoch: epoch}, nil

		case best == n-1:
			// Case B: bracket is below MTOM.
			if mUpperBackup > grid[n-1] {
				oldHighest := grid[n-1]
				grid = linspaceExcludingEndpoints(oldHighest, mUpperBackup, n)
				roundGrid(grid, cfg)
				mLowerBackup = oldHighest
				continue
			}
			level.Warn(o.Logger).Log("msg", "mass upper bound below MTOM", "best_mass", grid[best])
			return Result{State: ResultMassUpperboundBelowMTOM, Mass: grid[best], Epoch: epoch}, nil

		default:
			// Case C: narrow within the confirmed bracket.
			grid = linspaceExcludingEndpoints(mLower, mUpper, n)
			roundGrid(grid, cfg)
			mLowerBackup = mLower
			mUpperBackup = mUpper
		}
	}
}

// runEpoch forks n simulation workers bound to the telemetry channel,
// drives the display/broadcast poll loop until all workers terminate,
// and returns their outcomes indexed by grid position.
func (o *Optimizer) runEpoch(ctx context.Context, grid []float64, epoch int, start time.Time) ([]dynamics.Outcome, error) {
	cfg := o.Config
	n := o.N
	o.channel.ResetAll()

	an := o.Analyzer
	if an == nil {
		an = analyzer.Process{
			Binary:        cfg.AnalyzerBinary,
			PropellerFile: cfg.PropellerFile,
			MotorFile:     cfg.MotorFile,
			Setpoint:      cfg.Setpoint,
			Timeout:       time.Duration(cfg.AnalyzerTimeoutMS) * time.Millisecond,
		}
	}

	chans := make([]<-chan indexedOutcome, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		ch := make(chan indexedOutcome, 1)
		chans[i] = ch
		go func(i int, mass float64) {
			defer wg.Done()
			cell := o.channel.Cell(i)
			cell.SetStatus(0)
			in := dynamics.Input{
				Mass:                mass,
				TimestepSize:        cfg.TimestepSize,
				TakeoffDisplacement: cfg.TakeoffDisplacement,
				InitialVelocity:     cfg.SetpointVelocity,
				Aero:                cfg.Aero,
				Analyzer:            an,
			}
			out := dynamics.Simulate(ctx, in, cell)
			ch <- indexedOutcome{i, out}
			close(ch)
		}(i, grid[i])
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			goto drain
		default:
		}
		o.renderTick(grid, epoch, start)
		time.Sleep(pollInterval)
	}

drain:
	o.renderTick(grid, epoch, start)
	merged := channerics.Merge(ctx.Done(), chans...)
	outcomes := make([]dynamics.Outcome, n)
	for io := range merged {
		outcomes[io.index] = io.outcome
	}
	return outcomes, nil
}

func (o *Optimizer) renderTick(grid []float64, epoch int, start time.Time) {
	if o.Renderer == nil && o.Broadcast == nil {
		return
	}
	snaps := o.channel.Snapshot()
	rows := make([]display.WorkerRow, len(grid))
	masses := make([]float64, len(grid))
	for i, m := range grid {
		rows[i] = display.WorkerRow{Index: i, Mass: m, Snapshot: snaps[i]}
		masses[i] = m
	}
	if o.Renderer != nil {
		o.Renderer.Render(display.Frame{
			Identifier: o.Config.Identifier,
			MassLower:  grid[0],
			MassUpper:  grid[len(grid)-1],
			Precision:  o.Config.ArithmeticPrecision,
			Epoch:      epoch,
			Elapsed:    time.Since(start),
			Rows:       rows,
		})
	}
	if o.Broadcast != nil {
		o.Broadcast.Publish(broadcast.Document{
			Epoch:     epoch,
			MassLower: grid[0],
			MassUpper: grid[len(grid)-1],
			Masses:    masses,
			Cells:     snaps,
		})
	}
}

// classify performs the two-pass sweep: ascending for
// the largest qualifying success (updating mLower), descending for the
// smallest qualifying failure (updating mUpper). It returns the index of
// the largest success seen this epoch (or -1) and whether any success
// occurred.
func classify(outcomes []dynamics.Outcome, grid []float64, mLower, mUpper *float64) (best int, anySuccess bool) {
	best = -1
	n := len(grid)

	for i := 0; i < n; i++ {
		if outcomes[i].Status == dynamics.StatusSuccessTakeoff && grid[i] >= *mLower {
			*mLower = grid[i]
			best = i
			anySuccess = true
		}
	}

	for i := 0; i < n; i++ {
		j := n - 1 - i
		if outcomes[j].Status.Failed() && grid[j] <= *mUpper {
			*mUpper = grid[j]
		}
	}

	return best, anySuccess
}

func pow10(precision int) float64 {
	v := 1.0
	for i := 0; i < precision; i++ {
		v *= 10
	}
	return v
}

func roundGrid(grid []float64, cfg *config.RunConfiguration) {
	for i, m := range grid {
		grid[i] = cfg.RoundMass(m)
	}
}

// linspace returns n values evenly spaced over [lo, hi], inclusive of
// both endpoints — the Go-native rendering of numpy.linspace using
// gonum's floats.Span, the pack's chosen linear-space primitive.
func linspace(lo, hi float64, n int) []float64 {
	dst := make([]float64, n)
	floats.Span(dst, lo, hi)
	return dst
}

// linspaceExcludingEndpoints returns n interior points of [lo, hi],
// excluding both endpoints (the "excluding endpoints" bracket-narrowing rule).
func linspaceExcludingEndpoints(lo, hi float64, n int) []float64 {
	dst := make([]float64, n+2)
	floats.Span(dst, lo, hi)
	return dst[1 : n+1]
}
