// Package analyzer implements the External Analyzer Interface: a thin,
// stateless wrapper around the qprop-shaped propeller/motor analysis
// binary. It knows nothing about dynamics, masses, or brackets — only
// how to form a command line, run it, and parse the first data row of
// its stdout.
package analyzer

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// BinaryName is the fixed external analysis program invoked for every
// step. Commonly "qprop".
const BinaryName = "qprop"

// headerLines is the number of preamble lines the analyzer always emits
// before its first data row.
const headerLines = 17

// minDataColumns is the narrowest row this package will accept: the
// contract only reads columns up to index 7 (current).
const minDataColumns = 8

// Row is the first-row result of one analyzer invocation.
type Row struct {
	Freestream float64
	RPM        float64
	Thrust     float64
	Torque     float64
	Voltage    float64
	Current    float64
}

// Setpoint carries the operating-point fields passed through verbatim
// to the analyzer on every call; Velocity is supplied per-call instead
// (the simulator overrides it with the instantaneous velocity).
type Setpoint struct {
	Voltage float64
	DBeta   float64
	Current float64
	Torque  float64
	Thrust  float64
	Pele    float64
	RPM     float64
}

// Interface is implemented by anything that can stand in for the
// external analyzer — the concrete Process below, or a test double.
type Interface interface {
	Analyze(ctx context.Context, velocity float64) (Row, error)
}

// Process is the concrete, subprocess-backed External Analyzer Interface.
type Process struct {
	Binary        string // defaults to BinaryName when empty
	PropellerFile string
	MotorFile     string
	Setpoint      Setpoint
	Timeout       time.Duration // per-call ceiling; <= 0 means no ceiling
}

// Analyze forms the ten-positional-argument command line, runs it, and
// parses the first data row of stdout.
func (p Process) Analyze(ctx context.Context, velocity float64) (Row, error) {
	binary := p.Binary
	if binary == "" {
		binary = BinaryName
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args := []string{
		p.PropellerFile,
		p.MotorFile,
		formatArg(velocity),
		formatArg(p.Setpoint.RPM),
		formatArg(p.Setpoint.Voltage),
		formatArg(p.Setpoint.DBeta),
		formatArg(p.Setpoint.Thrust),
		formatArg(p.Setpoint.Torque),
		formatArg(p.Setpoint.Current),
		formatArg(p.Setpoint.Pele),
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.Output()
	if err != nil {
		return Row{}, errors.Wrapf(err, "analyzer failure running %q %v", binary, args)
	}

	return parseFirstRow(string(out))
}

func formatArg(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseFirstRow skips the fixed header and parses the first
// whitespace-separated numeric row that follows it.
func parseFirstRow(stdout string) (Row, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= headerLines {
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < minDataColumns {
			return Row{}, errors.Errorf("analyzer malformed: row has %d columns, need at least %d", len(fields), minDataColumns)
		}
		return rowFromFields(fields)
	}
	return Row{}, errors.New("analyzer empty: no data row after header")
}

func rowFromFields(fields []string) (Row, error) {
	get := func(i int) (float64, error) {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return 0, errors.Wrapf(err, "analyzer malformed: column %d %q not numeric", i, fields[i])
		}
		return v, nil
	}

	freestream, err := get(0)
	if err != nil {
		return Row{}, err
	}
	rpm, err := get(1)
	if err != nil {
		return Row{}, err
	}
	thrust, err := get(3)
	if err != nil {
		return Row{}, err
	}
	torque, err := get(4)
	if err != nil {
		return Row{}, err
	}
	voltage, err := get(6)
	if err != nil {
		return Row{}, err
	}
	current, err := get(7)
	if err != nil {
		return Row{}, err
	}

	return Row{
		Freestream: freestream,
		RPM:        rpm,
		Thrust:     thrust,
		Torque:     torque,
		Voltage:    voltage,
		Current:    current,
	}, nil
}
