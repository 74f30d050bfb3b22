// Package display implements the Progress Display: a multi-line TTY
// renderer with one header row and N per-worker rows.
// It has no internal timer — every frame is pushed to it by the
// optimizer's own poll loop.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/b-samee/MaximumTakeOffMassOptimizer/dynamics"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/telemetry"
)

// WorkerRow is everything one worker's row needs to render.
type WorkerRow struct {
	Index    int
	Mass     float64
	Snapshot telemetry.Snapshot
}

// Frame is one refresh tick's worth of state.
type Frame struct {
	Identifier    string
	MassLower     float64
	MassUpper     float64
	Precision     int
	Epoch         int
	Elapsed       time.Duration
	Rows          []WorkerRow
}

// Renderer draws frames to a TTY-like writer. Close ends the display
// once a terminal ResultState is reached, leaving the last frame as is.
type Renderer struct {
	w io.Writer
	// linesWritten tracks how many lines the previous frame printed, so
	// the next frame can move the cursor back up over them before
	// redrawing (a minimal ANSI multi-line repaint, the TTY analogue of
	// tqdm's multi-position progress bars in the source this module
	// generalizes).
	linesWritten int
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Render draws one frame: a header line, then one line per worker row.
func (r *Renderer) Render(f Frame) {
	if r.linesWritten > 0 {
		fmt.Fprintf(r.w, "\x1b[%dA", r.linesWritten)
	}

	lines := make([]string, 0, len(f.Rows)+1)
	lines = append(lines, headerLine(f))
	for _, row := range f.Rows {
		lines = append(lines, workerLine(f.Precision, row))
	}

	for _, line := range lines {
		fmt.Fprintf(r.w, "\x1b[2K%s\n", line)
	}
	r.linesWritten = len(lines)
}

// Close finalizes the display — in a real TTY this leaves the cursor
// below the last rendered frame instead of repainting over it again.
func (r *Renderer) Close() {
	r.linesWritten = 0
}

func headerLine(f Frame) string {
	return fmt.Sprintf(
		"Optimizing MTOM | Config[%s]: m=[%.*f, %.*f] kg | Elapsed: %s | Epoch: %d",
		f.Identifier, f.Precision, f.MassLower, f.Precision, f.MassUpper, f.Elapsed.Round(time.Second), f.Epoch,
	)
}

func workerLine(precision int, row WorkerRow) string {
	s := row.Snapshot
	status := dynamics.Status(s.Status)
	return fmt.Sprintf(
		"Process %d | m = %.*f kg | [%s] | t = %.2f s | x = %.2f m | v = %.2f m/s | a = %.2f m/s^2 | T = %.2f N | D = %.2f N",
		row.Index, precision, row.Mass, status, s.T, s.X, s.V, s.A, s.Thrust, s.Drag,
	)
}

// PlainText renders a Frame without ANSI repaint control, for non-TTY
// writers (log files, tests).
func PlainText(f Frame) string {
	var b strings.Builder
	b.WriteString(headerLine(f))
	b.WriteByte('\n')
	for _, row := range f.Rows {
		b.WriteString(workerLine(f.Precision, row))
		b.WriteByte('\n')
	}
	return b.String()
}
