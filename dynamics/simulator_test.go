package dynamics

import (
	"context"
	"math"
	"testing"

	"github.com/b-samee/MaximumTakeOffMassOptimizer/analyzer"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/telemetry"
)

// constantThrust is a stub External Analyzer Interface returning a fixed
// thrust regardless of velocity, standing in for a real qprop subprocess.
type constantThrust struct {
	thrust float64
}

func (c constantThrust) Analyze(ctx context.Context, velocity float64) (analyzer.Row, error) {
	return analyzer.Row{Thrust: c.thrust}, nil
}

func flatAero(dragCoeffTimesRhoTimesS, liftCoeffTimesRhoTimesS float64) Aero {
	// Solve for Cd and S (and CL) given fixed rho=1, S=1 so that
	// Cd*rho*S == dragCoeffTimesRhoTimesS and CL*rho*S == liftCoeffTimesRhoTimesS.
	return Aero{
		FluidDensity:        1,
		DragCoefficient:     dragCoeffTimesRhoTimesS,
		ReferenceArea:       1,
		AccelerationGravity: 9.81,
		LiftCoefficient:     liftCoeffTimesRhoTimesS,
	}
}

func TestStallVelocityFormula(t *testing.T) {
	aero := flatAero(1, 2)
	mass := 5.0
	sv := StallVelocity(mass, aero)
	// P3: stall_velocity(m)^2 * C_L * rho * S == 2*m*g
	got := sv * sv * aero.LiftCoefficient * aero.FluidDensity * aero.ReferenceArea
	want := 2 * mass * aero.AccelerationGravity
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("P3 violated: got %f want %f", got, want)
	}
}

func TestSemiImplicitEulerOrdering(t *testing.T) {
	// P2: with constant (T, D, m), one step produces v1 = v0 + a*dt and
	// x1 = x0 + v1*dt (not v0*dt).
	const mass = 2.0
	const dt = 0.1
	const thrust = 10.0
	aero := Aero{FluidDensity: 0, DragCoefficient: 0, ReferenceArea: 1, AccelerationGravity: 9.81, LiftCoefficient: 1}
	cell := &telemetry.Cell{}
	in := Input{
		Mass:                mass,
		TimestepSize:        dt,
		TakeoffDisplacement: 1e9, // runOneStep overrides this
		InitialVelocity:     0,
		Aero:                aero,
		Analyzer:            constantThrust{thrust: thrust},
	}
	// Run only long enough to inspect the first step by capping via a
	// cancelled context after the first analyzer call would be awkward;
	// instead verify the closed-form relation directly against trace[1].
	out := runOneStep(t, in, cell)
	a0 := thrust / mass // drag is zero
	v1Expected := 0 + a0*dt
	x1Expected := 0 + v1Expected*dt
	if math.Abs(out.Trace.V[1]-v1Expected) > 1e-12 {
		t.Fatalf("v1 = %.12f, want %.12f", out.Trace.V[1], v1Expected)
	}
	if math.Abs(out.Trace.X[1]-x1Expected) > 1e-12 {
		t.Fatalf("x1 = %.12f, want %.12f", out.Trace.X[1], x1Expected)
	}
	wrongX1 := 0 + 0*dt // the v0*dt mistake this test guards against
	if math.Abs(out.Trace.X[1]-wrongX1) < 1e-12 {
		t.Fatalf("x1 matches the v0*dt (forward-Euler) form, want semi-implicit v1*dt")
	}
}

// runOneStep drives the simulator with a takeoff displacement small
// enough that the very first step already ends the run, then returns
// the outcome; Trace.V[1]/Trace.X[1] hold that first step.
func runOneStep(t *testing.T, in Input, cell *telemetry.Cell) Outcome {
	t.Helper()
	// Shrink the displacement so the loop terminates after its first
	// step, which is all the assertions above read.
	in.TakeoffDisplacement = 0.0000001
	return Simulate(context.Background(), in, cell)
}

func TestTraceMonotonicity(t *testing.T) {
	// P1: for a successful run, t[k] and x[k] strictly increase.
	aero := flatAero(0.5, 4)
	in := Input{
		Mass:                1.0,
		TimestepSize:        0.05,
		TakeoffDisplacement: 2.0,
		InitialVelocity:     0.1,
		Aero:                aero,
		Analyzer:            constantThrust{thrust: 50},
	}
	cell := &telemetry.Cell{}
	out := Simulate(context.Background(), in, cell)
	if out.Status != StatusSuccessTakeoff {
		t.Fatalf("expected SUCCESS_TAKEOFF, got %s", out.Status)
	}
	for k := 1; k < len(out.Trace.T); k++ {
		if out.Trace.T[k] <= out.Trace.T[k-1] {
			t.Fatalf("t not strictly increasing at k=%d", k)
		}
		if out.Trace.X[k] <= out.Trace.X[k-1] {
			t.Fatalf("x not strictly increasing at k=%d", k)
		}
		if out.Trace.V[k] <= 0 {
			t.Fatalf("v not positive at k=%d", k)
		}
	}
}

func TestAnalyzerErrorIsolatedAsFailure(t *testing.T) {
	aero := flatAero(1, 2)
	in := Input{
		Mass:                1.0,
		TimestepSize:        0.1,
		TakeoffDisplacement: 5.0,
		InitialVelocity:     0.1,
		Aero:                aero,
		Analyzer:            failingAnalyzer{},
	}
	cell := &telemetry.Cell{}
	out := Simulate(context.Background(), in, cell)
	if out.Status != StatusAnalyzerError {
		t.Fatalf("expected ANALYZER_ERROR, got %s", out.Status)
	}
	if !out.Status.Failed() {
		t.Fatal("ANALYZER_ERROR must classify as a failure")
	}
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(ctx context.Context, velocity float64) (analyzer.Row, error) {
	return analyzer.Row{}, errAnalyzer
}

var errAnalyzer = &stubErr{"stub analyzer failure"}

type stubErr struct{ msg string }

func (e *stubErr) Error() string { return e.msg }
