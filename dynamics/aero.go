package dynamics

import "math"

// Aero carries the closed-form aerodynamic/propulsion constants a
// simulation run needs: drag model and stall-velocity parameters.
// A nil TrueAirspeed selects variable-drag mode — drag uses the
// instantaneous velocity instead of a fixed airspeed.
type Aero struct {
	FluidDensity        float64
	TrueAirspeed        *float64
	DragCoefficient     float64
	ReferenceArea       float64
	AccelerationGravity float64
	LiftCoefficient     float64
}

// dragVelocity returns the velocity term the drag equation uses: the
// fixed true airspeed if one was configured, otherwise v itself.
func (a Aero) dragVelocity(v float64) float64 {
	if a.TrueAirspeed != nil {
		return *a.TrueAirspeed
	}
	return v
}

// Drag computes D = 0.5 * rho * u^2 * Cd * S for the current velocity.
func (a Aero) Drag(v float64) float64 {
	u := a.dragVelocity(v)
	return 0.5 * a.FluidDensity * u * u * a.DragCoefficient * a.ReferenceArea
}

// StallVelocity computes sqrt(2*m*g / (C_L*rho*S)) for the given mass.
func StallVelocity(mass float64, a Aero) float64 {
	return math.Sqrt((2.0 * mass * a.AccelerationGravity) / (a.LiftCoefficient * a.FluidDensity * a.ReferenceArea))
}
