// Command matbench times square matrix multiplication on the naive loop, BLAS
// sgemm and the NPU matmul unit, and prints one row per size.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/23skdu/longbow-matbench/internal/backend"
	"github.com/23skdu/longbow-matbench/internal/backend/blas"
	"github.com/23skdu/longbow-matbench/internal/backend/naive"
	"github.com/23skdu/longbow-matbench/internal/backend/npu"
	"github.com/23skdu/longbow-matbench/internal/bench"
	"github.com/23skdu/longbow-matbench/internal/config"
	"github.com/23skdu/longbow-matbench/internal/device"
	"github.com/23skdu/longbow-matbench/internal/logger"
	"github.com/23skdu/longbow-matbench/internal/matrix"
	"github.com/23skdu/longbow-matbench/internal/metrics"
	"github.com/23skdu/longbow-matbench/internal/monitoring"
	"github.com/23skdu/longbow-matbench/internal/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	cfg, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "matbench: %v\n", err)
		return 2
	}

	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.Log.Info("matbench starting",
		"sizes", cfg.Sizes,
		"repeat", cfg.Repeat,
		"naive_repeat", cfg.NaiveRepeat,
		"format", string(cfg.Format),
	)

	drv, err := device.Open(cfg.NPUDriver)
	if err != nil {
		metrics.RecordSetupFailure(npu.Name)
		logger.Log.Error("npu driver unavailable", err, "driver", cfg.NPUDriver)
		return 1
	}
	hw := npu.New(drv, npu.Options{NativeLayout: cfg.NativeLayout && drv.Name() == npu.Name})
	if drv.Name() != npu.Name {
		logger.Log.Warn("timing a software npu driver", "driver", drv.Name(), "column", hw.Name())
	}

	var mon *monitoring.Monitor
	suite := &bench.Suite{
		Sizes: cfg.Sizes,
		Entries: []bench.Entry{
			{Backend: naive.New(), Repeat: cfg.NaiveRepeat},
			{Backend: blas.New(), Repeat: cfg.Repeat},
			{Backend: hw, Repeat: cfg.Repeat},
		},
		OnResult: func(r bench.Result) {
			logger.Log.Debug("result",
				"backend", r.Backend,
				"shape", r.Shape.String(),
				"min_s", r.Min,
				"mean_s", r.Mean,
				"stddev_s", r.StdDev,
			)
			if mon != nil {
				mon.RecordResult(r)
			}
		},
	}
	logger.Log.Info("backends ready", "blas", blas.Implementation(), "columns", suite.Names())

	if cfg.MetricsAddr != "" {
		mon = monitoring.NewMonitor(len(suite.Sizes) * len(suite.Entries))
		go func() {
			if err := mon.Start(cfg.MetricsAddr); err != nil {
				logger.Log.Error("monitor stopped", err, "addr", cfg.MetricsAddr)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = mon.Stop(ctx)
		}()
	}

	runner := bench.NewRunner(matrix.NewSeededGenerator(),
		bench.WithObserver(func(name string, shape backend.Shape, d time.Duration) {
			metrics.RecordMatMul(name, shape.M, d)
		}),
	)

	results, err := suite.Run(runner)
	if mon != nil {
		mon.Finish(err)
	}
	if err != nil {
		recordSetupFailure(err)
		logger.Log.Error("benchmark aborted", err, "completed", len(results))
		return 1
	}

	tbl := report.NewTable(nil, results).WithColumns(suite.Names())
	defer tbl.Release()
	if err := report.Write(stdout, tbl, cfg.Format); err != nil {
		logger.Log.Error("write report", err)
		return 1
	}
	return 0
}

// recordSetupFailure counts an open or bind failure under the backend that
// failed. Failures inside the timed loop are not setup failures.
func recordSetupFailure(err error) {
	var se *bench.StageError
	if errors.As(err, &se) && se.Setup() {
		metrics.RecordSetupFailure(se.Backend)
	}
}

func parseFlags(args []string) (config.Config, error) {
	cfg := config.Default()

	fs := flag.NewFlagSet("matbench", flag.ContinueOnError)
	sizes := fs.String("sizes", joinSizes(cfg.Sizes), "Comma-separated square matrix sizes, ascending")
	fs.IntVar(&cfg.Repeat, "repeat", cfg.Repeat, "Timed runs per size for cblas and rknn")
	fs.IntVar(&cfg.NaiveRepeat, "naive-repeat", cfg.NaiveRepeat, "Timed runs per size for the naive loop")
	format := fs.String("format", string(cfg.Format), "Output format: markdown, csv or json")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (DEBUG, INFO, WARN, ERROR)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (console, json)")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Address to serve Prometheus metrics, empty to disable")
	fs.StringVar(&cfg.NPUDriver, "npu", cfg.NPUDriver, "NPU driver: rknn or emulated")
	fs.BoolVar(&cfg.NativeLayout, "native-layout", cfg.NativeLayout, "Use the NPU native operand layout (rknn only)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	parsed, err := config.ParseSizes(*sizes)
	if err != nil {
		return cfg, err
	}
	cfg.Sizes = parsed
	cfg.Format = config.Format(*format)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func joinSizes(sizes []int) string {
	parts := make([]string, len(sizes))
	for i, s := range sizes {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}
