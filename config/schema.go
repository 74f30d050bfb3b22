package config

import (
	"fmt"
	"sort"
	"strings"
)

// kindSet is the set of JSON value kinds a field may take, mirroring the
// original loader's EXPECTED_CONFIGURATION_STRUCTURE dict-of-type-tuples
// (components/utils/config_structure.py in the Python original this
// module was distilled from).
type kindSet map[string]bool

func kinds(ks ...string) kindSet {
	s := make(kindSet, len(ks))
	for _, k := range ks {
		s[k] = true
	}
	return s
}

func (ks kindSet) String() string {
	names := make([]string, 0, len(ks))
	for k := range ks {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

var numberOrNull = kinds("number", "null")

var expectedSetpoint = map[string]kindSet{
	"velocity": numberOrNull,
	"voltage":  numberOrNull,
	"dbeta":    numberOrNull,
	"current":  numberOrNull,
	"torque":   numberOrNull,
	"thrust":   numberOrNull,
	"pele":     numberOrNull,
	"rpm":      numberOrNull,
}

var expectedAero = map[string]kindSet{
	"fluid_density":        numberOrNull,
	"true_airspeed":        numberOrNull,
	"drag_coefficient":     numberOrNull,
	"reference_area":       numberOrNull,
	"acceleration_gravity": numberOrNull,
	"lift_coefficient":     numberOrNull,
}

var expectedTop = map[string]kindSet{
	"propeller_file":       kinds("string"),
	"motor_file":           kinds("string"),
	"timestep_size":        kinds("number"),
	"mass_range":           kinds("array"),
	"arithmetic_precision": numberOrNull,
	"takeoff_displacement": kinds("number"),
	"setpoint_parameters":  kinds("object"),
	"aerodynamic_forces":   kinds("object"),
}

// jsonKind classifies a decoded JSON value the way encoding/json and
// jsoniter represent it: nil, bool, float64, string, []interface{}, or
// map[string]interface{}.
func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// shapeError collects every mismatch between a decoded document and an
// expected-kind table, so a caller gets one GOT/EXPECTED diff naming
// every problem instead of failing on the first one, mirroring the
// original loader's SyntaxError contract.
type shapeError struct {
	mismatches []string
}

func (e *shapeError) add(path string, got string, want kindSet) {
	e.mismatches = append(e.mismatches, fmt.Sprintf("%s: got %s, expected %s", path, got, want))
}

func (e *shapeError) missing(path string) {
	e.mismatches = append(e.mismatches, fmt.Sprintf("%s: missing", path))
}

func (e *shapeError) unknown(path string) {
	e.mismatches = append(e.mismatches, fmt.Sprintf("%s: unknown key", path))
}

func (e *shapeError) ok() bool { return len(e.mismatches) == 0 }

func (e *shapeError) Error() string {
	return "configuration shape invalid:\n  " + strings.Join(e.mismatches, "\n  ")
}

func checkObject(doc map[string]interface{}, expected map[string]kindSet, prefix string, errs *shapeError) {
	for key, want := range expected {
		path := prefix + key
		v, present := doc[key]
		if !present {
			errs.missing(path)
			continue
		}
		if !want[jsonKind(v)] {
			errs.add(path, jsonKind(v), want)
		}
	}
	for key := range doc {
		if _, known := expected[key]; !known {
			errs.unknown(prefix + key)
		}
	}
}

// validateShape checks the full nested structure of a decoded JSON
// configuration document and returns nil, or a *shapeError naming
// every mismatch found.
func validateShape(doc map[string]interface{}) error {
	errs := &shapeError{}
	checkObject(doc, expectedTop, "", errs)

	if massRange, ok := doc["mass_range"].([]interface{}); ok {
		if len(massRange) != 2 {
			errs.add("mass_range", fmt.Sprintf("array of length %d", len(massRange)), kinds("array-of-2"))
		} else {
			for i, v := range massRange {
				if jsonKind(v) != "number" {
					errs.add(fmt.Sprintf("mass_range[%d]", i), jsonKind(v), kinds("number"))
				}
			}
		}
	}

	if setpoint, ok := doc["setpoint_parameters"].(map[string]interface{}); ok {
		checkObject(setpoint, expectedSetpoint, "setpoint_parameters.", errs)
	}

	if aero, ok := doc["aerodynamic_forces"].(map[string]interface{}); ok {
		checkObject(aero, expectedAero, "aerodynamic_forces.", errs)
	}

	if !errs.ok() {
		return errs
	}
	return nil
}
