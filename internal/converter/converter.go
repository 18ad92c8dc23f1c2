// Package converter orchestrates one NetCDF-to-JSON conversion: open the
// source, read the five magnetometer variables, substitute missing
// values, assemble records, and write the output document atomically.
package converter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/dscovr-mag-etl/internal/domain"
	"github.com/couchcryptid/dscovr-mag-etl/internal/netcdf"
	"github.com/couchcryptid/dscovr-mag-etl/internal/observability"
)

// Source variable names, fixed by the DSCOVR m1m product.
const (
	varTime = "time"
	varBx   = "bx_gsm"
	varBy   = "by_gsm"
	varBz   = "bz_gsm"
	varBt   = "bt"
)

// Report summarizes a successful conversion.
type Report struct {
	InputPath   string        `json:"input"`
	OutputPath  string        `json:"output"`
	Records     int           `json:"records"`
	Skipped     int           `json:"skipped"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"-"`
}

// Notifier is told about completed conversions. Implementations must not
// block longer than the passed context allows.
type Notifier interface {
	ConversionCompleted(ctx context.Context, report Report) error
}

// Converter runs conversions. Safe for concurrent use; the only shared
// state is the readiness flag.
type Converter struct {
	logger   *slog.Logger
	metrics  *observability.Metrics
	notifier Notifier
	clock    clockwork.Clock
	ready    atomic.Bool
}

// New creates a Converter. notifier may be nil to disable completion
// events; clock may be nil for the real clock.
func New(logger *slog.Logger, metrics *observability.Metrics, notifier Notifier, clock clockwork.Clock) *Converter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Converter{
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
		clock:    clock,
	}
}

// CheckReadiness returns nil once at least one conversion has succeeded.
func (c *Converter) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("no conversion has completed yet")
	}
	return nil
}

// Convert reads the NetCDF file at inputPath and writes the JSON document
// to outputPath. On failure no output file is created or modified. The
// returned error wraps one of the package error kinds.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath string) (Report, error) {
	start := c.clock.Now()

	report, err := c.convert(inputPath, outputPath)
	if err != nil {
		c.metrics.ConversionErrors.WithLabelValues(Kind(err)).Inc()
		c.logger.Error("conversion failed",
			"error", err,
			"kind", Kind(err),
			"input", inputPath,
		)
		return Report{}, err
	}

	report.Duration = c.clock.Since(start)
	report.CompletedAt = c.clock.Now()

	c.metrics.ConversionsTotal.Inc()
	c.metrics.RecordsEmitted.Add(float64(report.Records))
	c.metrics.RecordsSkipped.Add(float64(report.Skipped))
	c.metrics.ConversionDuration.Observe(report.Duration.Seconds())
	c.metrics.LastSuccessTime.Set(float64(report.CompletedAt.Unix()))
	c.ready.Store(true)

	c.logger.Info("conversion complete",
		"input", inputPath,
		"output", outputPath,
		"records", report.Records,
		"skipped", report.Skipped,
		"duration", report.Duration,
	)

	c.notify(ctx, report)
	return report, nil
}

func (c *Converter) convert(inputPath, outputPath string) (Report, error) {
	f, err := netcdf.Open(inputPath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	c.warnOnUnexpectedFill(f)

	series, err := readSeries(f)
	if err != nil {
		return Report{}, err
	}

	records, skipped, err := domain.AssembleRecords(series)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrAlignment, err)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return Report{}, fmt.Errorf("%w: encode records: %w", ErrWrite, err)
	}
	if err := writeAtomic(outputPath, data); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return Report{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Records:    len(records),
		Skipped:    skipped,
	}, nil
}

// readSeries extracts the five magnetometer variables.
func readSeries(f *netcdf.File) (domain.Series, error) {
	var s domain.Series
	for _, v := range []struct {
		name string
		dst  *[]float64
	}{
		{varTime, &s.Time},
		{varBx, &s.Bx},
		{varBy, &s.By},
		{varBz, &s.Bz},
		{varBt, &s.Bt},
	} {
		values, err := f.Float64s(v.name)
		if err != nil {
			return domain.Series{}, classifyReadError(v.name, err)
		}
		*v.dst = values
	}
	return s, nil
}

// classifyReadError maps netcdf read failures onto conversion error kinds:
// absent or mis-shaped variables are schema problems, everything else is
// a container-level IO problem.
func classifyReadError(name string, err error) error {
	switch {
	case errors.Is(err, netcdf.ErrVariableNotFound),
		errors.Is(err, netcdf.ErrNotNumeric),
		errors.Is(err, netcdf.ErrNotOneDimensional):
		return fmt.Errorf("%w: %w", ErrSchema, err)
	default:
		return fmt.Errorf("%w: read %q: %w", ErrIO, name, err)
	}
}

// warnOnUnexpectedFill flags files whose declared missing_value differs
// from the documented constant, since the substitution threshold assumes
// fills near -99999.
func (c *Converter) warnOnUnexpectedFill(f *netcdf.File) {
	for _, name := range []string{varTime, varBx, varBy, varBz, varBt} {
		v, ok := f.Var(name)
		if !ok {
			continue
		}
		attr, ok := v.Attr("missing_value")
		if !ok || len(attr.Values) == 0 {
			continue
		}
		if fill := attr.Values[0]; fill != domain.FillValue {
			c.logger.Warn("unexpected missing_value attribute",
				"variable", name,
				"declared", fill,
				"expected", domain.FillValue,
			)
		}
	}
}

// writeAtomic writes data to path via a temp file in the same directory
// plus rename, so a failure never leaves a partial document behind.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// notify publishes a completion event. Notification failures are logged
// and counted but never fail a finished conversion.
func (c *Converter) notify(ctx context.Context, report Report) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.ConversionCompleted(ctx, report); err != nil {
		c.metrics.NotificationErrors.Inc()
		c.logger.Warn("completion notification failed", "error", err)
		return
	}
	c.metrics.NotificationsSent.Inc()
}
