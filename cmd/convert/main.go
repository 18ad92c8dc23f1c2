// Command convert performs a one-shot conversion of a DSCOVR magnetometer
// NetCDF file to a JSON document.
//
// Usage:
//
//	go run ./cmd/convert -in data/oe_m1m_dscovr_s20251204.nc -out magnetic_data.json
//
// Paths default to INPUT_PATH / OUTPUT_PATH from the environment. Exits
// non-zero on any failure, leaving no partial output behind.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/dscovr-mag-etl/internal/config"
	"github.com/couchcryptid/dscovr-mag-etl/internal/converter"
	"github.com/couchcryptid/dscovr-mag-etl/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	in := flag.String("in", cfg.InputPath, "path to the source NetCDF file")
	out := flag.String("out", cfg.OutputPath, "path for the JSON output document")
	flag.Parse()

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := converter.New(logger, metrics, nil, nil)
	report, err := c.Convert(ctx, *in, *out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting file: %v\n", err)
		return 1
	}

	fmt.Printf("Successfully converted %d records to %s\n", report.Records, report.OutputPath)
	return 0
}
