package converter_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/dscovr-mag-etl/internal/converter"
	"github.com/couchcryptid/dscovr-mag-etl/internal/domain"
	"github.com/couchcryptid/dscovr-mag-etl/internal/netcdf"
	"github.com/couchcryptid/dscovr-mag-etl/internal/netcdf/netcdftest"
	"github.com/couchcryptid/dscovr-mag-etl/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeFixture builds a fixed-layout NetCDF file with the five
// magnetometer variables and writes it into dir.
func writeFixture(t *testing.T, dir string, s domain.Series) string {
	t.Helper()
	data := netcdftest.Build(nil,
		netcdftest.Var{Name: "time", Type: netcdf.TypeDouble, Values: s.Time},
		netcdftest.Var{Name: "bx_gsm", Type: netcdf.TypeFloat, Values: s.Bx},
		netcdftest.Var{Name: "by_gsm", Type: netcdf.TypeFloat, Values: s.By},
		netcdftest.Var{Name: "bz_gsm", Type: netcdf.TypeFloat, Values: s.Bz},
		netcdftest.Var{Name: "bt", Type: netcdf.TypeFloat, Values: s.Bt},
	)
	path := filepath.Join(dir, "mag.nc")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

type mockNotifier struct {
	reports []converter.Report
	err     error
}

func (m *mockNotifier) ConversionCompleted(_ context.Context, report converter.Report) error {
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, report)
	return nil
}

func TestConvert_HappyPath(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, domain.Series{
		Time: []float64{1, 2, -99999, 4},
		Bx:   []float64{10, 20, 30, 40},
		By:   []float64{11, 21, 31, 41},
		Bz:   []float64{12, 22, 32, 42},
		Bt:   []float64{13, 23, 33, 43},
	})
	out := filepath.Join(dir, "mag.json")

	now := time.Date(2025, time.December, 5, 2, 0, 36, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	notifier := &mockNotifier{}
	c := converter.New(discardLogger(), observability.NewMetricsForTesting(), notifier, clock)

	report, err := c.Convert(context.Background(), in, out)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, in, report.InputPath)
	assert.Equal(t, out, report.OutputPath)
	assert.Equal(t, now, report.CompletedAt)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	// Field order is part of the contract.
	assert.True(t, strings.HasPrefix(string(data), `[{"time":1,"bx":10,"by":11,"bz":12,"bt":13}`),
		"unexpected document prefix: %s", data)

	// Round-trip: parsed length equals the reported count; index 2 is gone.
	var records []domain.MagRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, report.Records)
	assert.Equal(t, 4.0, *records[2].Time)
	assert.Equal(t, 40.0, *records[2].Bx)

	// Completion event carried the same report.
	require.Len(t, notifier.reports, 1)
	assert.Equal(t, report, notifier.reports[0])
}

func TestConvert_SentinelSubstitution(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, domain.Series{
		Time: []float64{1, 2},
		Bx:   []float64{-90000, -89999.9},
		By:   []float64{-99999, 5},
		Bz:   []float64{3, -95000},
		Bt:   []float64{4, 6},
	})
	out := filepath.Join(dir, "mag.json")

	c := converter.New(discardLogger(), observability.NewMetricsForTesting(), nil, nil)
	report, err := c.Convert(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Records)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var records []domain.MagRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)

	// -90000.0 exactly is missing; -89999.9 survives.
	assert.Nil(t, records[0].Bx)
	require.NotNil(t, records[1].Bx)
	assert.InDelta(t, -89999.9, *records[1].Bx, 0.01)
	assert.Nil(t, records[0].By)
	assert.Nil(t, records[1].Bz)
}

func TestConvert_EmptyTimeArray(t *testing.T) {
	dir := t.TempDir()
	data := netcdftest.BuildRecord(nil,
		netcdftest.Var{Name: "time", Type: netcdf.TypeDouble},
		netcdftest.Var{Name: "bx_gsm", Type: netcdf.TypeFloat},
		netcdftest.Var{Name: "by_gsm", Type: netcdf.TypeFloat},
		netcdftest.Var{Name: "bz_gsm", Type: netcdf.TypeFloat},
		netcdftest.Var{Name: "bt", Type: netcdf.TypeFloat},
	)
	in := filepath.Join(dir, "empty.nc")
	require.NoError(t, os.WriteFile(in, data, 0o600))
	out := filepath.Join(dir, "empty.json")

	c := converter.New(discardLogger(), observability.NewMetricsForTesting(), nil, nil)
	report, err := c.Convert(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Records)
	assert.Equal(t, 0, report.Skipped)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(content))
}

func TestConvert_Failures(t *testing.T) {
	t.Run("missing input file", func(t *testing.T) {
		dir := t.TempDir()
		c := converter.New(discardLogger(), observability.NewMetricsForTesting(), nil, nil)

		_, err := c.Convert(context.Background(), filepath.Join(dir, "absent.nc"), filepath.Join(dir, "out.json"))
		assert.ErrorIs(t, err, converter.ErrIO)
		assert.NoFileExists(t, filepath.Join(dir, "out.json"))
	})

	t.Run("not a netcdf container", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "bogus.nc")
		require.NoError(t, os.WriteFile(in, []byte("plain text"), 0o600))

		c := converter.New(discardLogger(), observability.NewMetricsForTesting(), nil, nil)
		_, err := c.Convert(context.Background(), in, filepath.Join(dir, "out.json"))
		assert.ErrorIs(t, err, converter.ErrIO)
	})

	t.Run("missing required variable", func(t *testing.T) {
		dir := t.TempDir()
		data := netcdftest.Build(nil,
			netcdftest.Var{Name: "time", Type: netcdf.TypeDouble, Values: []float64{1}},
			netcdftest.Var{Name: "bx_gsm", Type: netcdf.TypeFloat, Values: []float64{1}},
			// by_gsm absent
			netcdftest.Var{Name: "bz_gsm", Type: netcdf.TypeFloat, Values: []float64{1}},
			netcdftest.Var{Name: "bt", Type: netcdf.TypeFloat, Values: []float64{1}},
		)
		in := filepath.Join(dir, "partial.nc")
		require.NoError(t, os.WriteFile(in, data, 0o600))
		out := filepath.Join(dir, "out.json")

		c := converter.New(discardLogger(), observability.NewMetricsForTesting(), nil, nil)
		_, err := c.Convert(context.Background(), in, out)
		assert.ErrorIs(t, err, converter.ErrSchema)
		assert.Contains(t, err.Error(), "by_gsm")
		assert.NoFileExists(t, out, "no output on schema failure")
	})

	t.Run("misaligned arrays", func(t *testing.T) {
		dir := t.TempDir()
		data := netcdftest.Build(nil,
			netcdftest.Var{Name: "time", Type: netcdf.TypeDouble, Values: []float64{1, 2, 3}},
			netcdftest.Var{Name: "bx_gsm", Type: netcdf.TypeFloat, Values: []float64{1, 2}},
			netcdftest.Var{Name: "by_gsm", Type: netcdf.TypeFloat, Values: []float64{1, 2, 3}},
			netcdftest.Var{Name: "bz_gsm", Type: netcdf.TypeFloat, Values: []float64{1, 2, 3}},
			netcdftest.Var{Name: "bt", Type: netcdf.TypeFloat, Values: []float64{1, 2, 3}},
		)
		in := filepath.Join(dir, "skewed.nc")
		require.NoError(t, os.WriteFile(in, data, 0o600))
		out := filepath.Join(dir, "out.json")

		c := converter.New(discardLogger(), observability.NewMetricsForTesting(), nil, nil)
		_, err := c.Convert(context.Background(), in, out)
		assert.ErrorIs(t, err, converter.ErrAlignment)
		assert.NoFileExists(t, out)
	})

	t.Run("unwritable output path", func(t *testing.T) {
		dir := t.TempDir()
		in := writeFixture(t, dir, domain.Series{
			Time: []float64{1},
			Bx:   []float64{1},
			By:   []float64{1},
			Bz:   []float64{1},
			Bt:   []float64{1},
		})

		c := converter.New(discardLogger(), observability.NewMetricsForTesting(), nil, nil)
		_, err := c.Convert(context.Background(), in, filepath.Join(dir, "no-such-dir", "out.json"))
		assert.ErrorIs(t, err, converter.ErrWrite)
	})
}

func TestConvert_OverwritesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, domain.Series{
		Time: []float64{7},
		Bx:   []float64{1},
		By:   []float64{2},
		Bz:   []float64{3},
		Bt:   []float64{4},
	})
	out := filepath.Join(dir, "mag.json")
	require.NoError(t, os.WriteFile(out, []byte(`{"stale": true}`), 0o600))

	c := converter.New(discardLogger(), observability.NewMetricsForTesting(), nil, nil)
	_, err := c.Convert(context.Background(), in, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `[{"time":7,`))
}

func TestConverter_Readiness(t *testing.T) {
	dir := t.TempDir()
	c := converter.New(discardLogger(), observability.NewMetricsForTesting(), nil, nil)

	require.Error(t, c.CheckReadiness(context.Background()), "not ready before any conversion")

	// A failed conversion does not make the service ready.
	_, err := c.Convert(context.Background(), filepath.Join(dir, "absent.nc"), filepath.Join(dir, "out.json"))
	require.Error(t, err)
	require.Error(t, c.CheckReadiness(context.Background()))

	in := writeFixture(t, dir, domain.Series{
		Time: []float64{1},
		Bx:   []float64{1},
		By:   []float64{1},
		Bz:   []float64{1},
		Bt:   []float64{1},
	})
	_, err = c.Convert(context.Background(), in, filepath.Join(dir, "out.json"))
	require.NoError(t, err)
	assert.NoError(t, c.CheckReadiness(context.Background()))
}

func TestConvert_NotifierFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, domain.Series{
		Time: []float64{1},
		Bx:   []float64{1},
		By:   []float64{1},
		Bz:   []float64{1},
		Bt:   []float64{1},
	})
	out := filepath.Join(dir, "mag.json")

	notifier := &mockNotifier{err: errors.New("broker unavailable")}
	c := converter.New(discardLogger(), observability.NewMetricsForTesting(), notifier, nil)

	report, err := c.Convert(context.Background(), in, out)
	require.NoError(t, err, "conversion succeeds even when notification fails")
	assert.Equal(t, 1, report.Records)
	assert.FileExists(t, out)
}
