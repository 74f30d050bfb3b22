package dynamics

import (
	"context"

	"github.com/b-samee/MaximumTakeOffMassOptimizer/analyzer"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/telemetry"
)

// Trace is the per-worker Simulation Trace: parallel
// monotone sequences T, X, V one entry longer than A, Thrust, Drag,
// because step k's acceleration/thrust/drag produce step k+1's
// position/velocity/time.
type Trace struct {
	T      []float64
	X      []float64
	V      []float64
	A      []float64
	Thrust []float64
	Drag   []float64
}

// Input is everything one Simulate call needs to run a single mass to a
// terminal condition.
type Input struct {
	Mass                float64
	TimestepSize        float64
	TakeoffDisplacement float64
	InitialVelocity     float64
	Aero                Aero
	Analyzer            analyzer.Interface
}

// Outcome is the result of one worker's run: its final classification,
// full trace, and (for SUCCESS_TAKEOFF/FAILED_VELOCITY) how far past the
// configured takeoff displacement the last step landed. The optimizer
// in this module does not read Overshoot and emits no precision warning.
type Outcome struct {
	Mass         float64
	Status       Status
	Trace        Trace
	StallV       float64
	Overshoot    float64
	AnalyzerErr  error
}

// Simulate advances the dynamics model for one mass until exactly one
// terminal condition fires, publishing live state into
// cell as it goes. It has no error return: analyzer failures (and a
// cancelled ctx) are folded into StatusAnalyzerError — worker failures
// are never raised into the caller as Go errors, only encoded in the
// returned Outcome's Status.
func Simulate(ctx context.Context, in Input, cell *telemetry.Cell) Outcome {
	stallV := StallVelocity(in.Mass, in.Aero)

	trace := Trace{
		T: []float64{0},
		X: []float64{0},
		V: []float64{in.InitialVelocity},
	}

	cell.SetStatus(int32(StatusForkingProcess))

	for {
		cell.SetStatus(int32(StatusExecutingAnalyzer))
		vCurrent := trace.V[len(trace.V)-1]
		row, err := in.Analyzer.Analyze(ctx, vCurrent)
		if err != nil {
			cell.SetStatus(int32(StatusAnalyzerError))
			return Outcome{Mass: in.Mass, Status: StatusAnalyzerError, Trace: trace, StallV: stallV, AnalyzerErr: err}
		}

		cell.SetStatus(int32(StatusExtractingData))
		thrust := row.Thrust
		drag := in.Aero.Drag(vCurrent)

		cell.SetStatus(int32(StatusIteratingState))
		accel := (thrust - drag) / in.Mass
		vNew := vCurrent + accel*in.TimestepSize
		xNew := trace.X[len(trace.X)-1] + vNew*in.TimestepSize
		tNew := trace.T[len(trace.T)-1] + in.TimestepSize

		trace.A = append(trace.A, accel)
		trace.Thrust = append(trace.Thrust, thrust)
		trace.Drag = append(trace.Drag, drag)
		trace.V = append(trace.V, vNew)
		trace.X = append(trace.X, xNew)
		trace.T = append(trace.T, tNew)

		cell.SetStatus(int32(StatusUpdatingCounts))
		cell.SetState(tNew, xNew, vNew, accel, thrust, drag)

		cell.SetStatus(int32(StatusCheckingLimits))
		if xNew > in.TakeoffDisplacement {
			overshoot := xNew - in.TakeoffDisplacement
			if vNew > stallV {
				cell.SetStatus(int32(StatusSuccessTakeoff))
				return Outcome{Mass: in.Mass, Status: StatusSuccessTakeoff, Trace: trace, StallV: stallV, Overshoot: overshoot}
			}
			cell.SetStatus(int32(StatusFailedVelocity))
			return Outcome{Mass: in.Mass, Status: StatusFailedVelocity, Trace: trace, StallV: stallV, Overshoot: overshoot}
		}

		if ctx.Err() != nil {
			cell.SetStatus(int32(StatusAnalyzerError))
			return Outcome{Mass: in.Mass, Status: StatusAnalyzerError, Trace: trace, StallV: stallV, AnalyzerErr: ctx.Err()}
		}
	}
}
