// Command mtom runs the Maximum Take-Off Mass optimizer against a run
// configuration file, streaming per-worker progress to the terminal and,
// optionally, over HTTP/websocket for external spectators.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/b-samee/MaximumTakeOffMassOptimizer/config"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/display"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/optimizer"
	"github.com/b-samee/MaximumTakeOffMassOptimizer/telemetry/broadcast"
)

func init() {
	pflag.StringP("config", "c", "", "path to the run configuration JSON file")
	pflag.IntP("processes", "p", runtime.NumCPU()-1, "number of simulation workers per epoch")
	pflag.String("listen", "", "optional address to serve live telemetry on, e.g. :8080")
	pflag.Bool("quiet", false, "suppress the progress display, logging only the final result")
}

func main() {
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		fmt.Fprintln(os.Stderr, "mtom:", err)
		os.Exit(1)
	}
	viper.SetEnvPrefix("mtom")
	viper.AutomaticEnv()

	logger := log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	if cores := runtime.NumCPU(); cores < 4 {
		level.Error(logger).Log("msg", "system resources insufficient to run the optimizer",
			"kind", "SystemResources", "cores", cores, "cores_required", 4)
		os.Exit(1)
	}

	configPath := viper.GetString("config")
	if configPath == "" {
		level.Error(logger).Log("msg", "no configuration file provided, use -c/--config")
		os.Exit(1)
	}

	rc, err := config.Load(configPath)
	if err != nil {
		level.Error(logger).Log("msg", "configuration rejected", "err", err)
		os.Exit(1)
	}

	requested := viper.GetInt("processes")
	n, clamped := resolveProcessCount(requested)
	if clamped {
		level.Warn(logger).Log("msg", "process count clamped", "requested", requested, "used", n)
	}

	opt := optimizer.New(rc, n, nil, logger)
	if !viper.GetBool("quiet") {
		opt.Renderer = display.NewRenderer(os.Stdout)
	}

	var bcast *broadcast.Server
	if addr := viper.GetString("listen"); addr != "" {
		bcast = broadcast.NewServer()
		opt.Broadcast = bcast
		go func() {
			if err := bcast.ListenAndServe(addr); err != nil {
				level.Warn(logger).Log("msg", "telemetry server stopped", "err", err)
			}
		}()
		level.Info(logger).Log("msg", "serving live telemetry", "addr", addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level.Info(logger).Log("msg", "starting optimizer",
		"identifier", rc.Identifier, "processes", n,
		"mass_min", rc.MassMin, "mass_max", rc.MassMax)

	result, err := opt.Run(ctx)
	if bcast != nil {
		bcast.Shutdown()
	}
	if err != nil {
		level.Error(logger).Log("msg", "optimizer aborted", "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log(
		"msg", "optimizer finished",
		"state", result.State.String(),
		"mass", result.Mass,
		"epoch", result.Epoch,
	)
}

// resolveProcessCount enforces the N >= 3 worker-count floor and leaves
// at least one core free for the display/broadcast loop and the OS.
// Only called once the SystemResources check in main has already
// guaranteed runtime.NumCPU() >= 4, so the ceiling is always >= 3.
func resolveProcessCount(requested int) (n int, clamped bool) {
	n = requested
	if n < 3 {
		n = 3
		clamped = true
	}
	if max := runtime.NumCPU() - 1; n > max {
		n = max
		clamped = true
	}
	return n, clamped
}
