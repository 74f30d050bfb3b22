// Package config implements the Run Configuration Loader:
// it validates a JSON document against the expected shape, fills
// defaults, checks domain invariants, and resets the results directory.
// Everything downstream — analyzer, dynamics, optimizer — consumes only
// the immutable RunConfiguration this package produces; malformed input
// never reaches the core.
package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/b-samee/MaximumTakeOffMassOptimizer/analyzer"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/dynamics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RunConfiguration is the immutable value object every other component
// consumes.
type RunConfiguration struct {
	Identifier          string
	PropellerFile       string
	MotorFile           string
	TimestepSize        float64
	MassMin             float64
	MassMax             float64
	ArithmeticPrecision int
	TakeoffDisplacement float64
	Setpoint            analyzer.Setpoint
	SetpointVelocity    float64
	Aero                dynamics.Aero
	AnalyzerBinary      string
	AnalyzerTimeoutMS   int
	ResultsDir          string
}

// Load reads, validates, and defaults the JSON configuration at path,
// resets its results directory, and returns the resulting
// RunConfiguration. Any error returned is one of the fatal, pre-core
// kinds (ConfigShape, ConfigDomain) — the core never sees
// malformed input.
func Load(path string) (*RunConfiguration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "configuration file does not exist at path %q", path)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "configuration file is not valid JSON")
	}

	if err := validateShape(doc); err != nil {
		return nil, err
	}

	rc := &RunConfiguration{
		Identifier: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	rc.PropellerFile = doc["propeller_file"].(string)
	if _, err := os.Stat(rc.PropellerFile); err != nil {
		return nil, errors.Wrapf(err, "propeller file %q not found", rc.PropellerFile)
	}

	rc.MotorFile = doc["motor_file"].(string)
	if _, err := os.Stat(rc.MotorFile); err != nil {
		return nil, errors.Wrapf(err, "motor file %q not found", rc.MotorFile)
	}

	rc.TimestepSize = doc["timestep_size"].(float64)
	rc.TakeoffDisplacement = doc["takeoff_displacement"].(float64)

	massRange := doc["mass_range"].([]interface{})
	rc.MassMin = massRange[0].(float64)
	rc.MassMax = massRange[1].(float64)
	if rc.MassMin <= 0 {
		return nil, errors.Errorf("mass_range minimum (%g) must be > 0", rc.MassMin)
	}
	if rc.MassMin > rc.MassMax {
		return nil, errors.Errorf("mass_range minimum (%g) cannot exceed maximum (%g)", rc.MassMin, rc.MassMax)
	}

	if precision, ok := doc["arithmetic_precision"].(float64); ok {
		rc.ArithmeticPrecision = int(precision)
	}

	setpoint := doc["setpoint_parameters"].(map[string]interface{})
	rc.SetpointVelocity = numberOrDefault(setpoint["velocity"], 0)
	rc.Setpoint = analyzer.Setpoint{
		Voltage: numberOrDefault(setpoint["voltage"], 0),
		DBeta:   numberOrDefault(setpoint["dbeta"], 0),
		Current: numberOrDefault(setpoint["current"], 0),
		Torque:  numberOrDefault(setpoint["torque"], 0),
		Thrust:  numberOrDefault(setpoint["thrust"], 0),
		Pele:    numberOrDefault(setpoint["pele"], 0),
		RPM:     numberOrDefault(setpoint["rpm"], 0),
	}

	aero := doc["aerodynamic_forces"].(map[string]interface{})
	rc.Aero = dynamics.Aero{
		FluidDensity:        numberOrDefault(aero["fluid_density"], 0),
		DragCoefficient:     numberOrDefault(aero["drag_coefficient"], 0),
		ReferenceArea:       numberOrDefault(aero["reference_area"], 0),
		AccelerationGravity: numberOrDefault(aero["acceleration_gravity"], 9.81),
		LiftCoefficient:     numberOrDefault(aero["lift_coefficient"], 1.0),
	}
	if rc.Aero.LiftCoefficient == 0 {
		return nil, errors.New("lift_coefficient cannot be 0")
	}
	if trueAirspeed, ok := aero["true_airspeed"].(float64); ok {
		rc.Aero.TrueAirspeed = &trueAirspeed
	}

	rc.AnalyzerBinary = analyzer.BinaryName

	rc.ResultsDir = rc.Identifier
	if err := resetResultsDir(rc.ResultsDir); err != nil {
		return nil, errors.Wrapf(err, "could not reset results directory %q", rc.ResultsDir)
	}

	return rc, nil
}

// RoundMass rounds m to the configuration's arithmetic precision, the
// way every mass-grid value is rounded before comparison.
func (rc *RunConfiguration) RoundMass(m float64) float64 {
	p := math.Pow10(rc.ArithmeticPrecision)
	return math.Round(m*p) / p
}

func numberOrDefault(v interface{}, def float64) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return def
}

func resetResultsDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
