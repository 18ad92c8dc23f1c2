package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/dscovr-mag-etl/internal/converter"
)

type stubService struct {
	ready      bool
	convertErr error
	lastIn     string
	lastOut    string
}

func (s *stubService) Convert(_ context.Context, in, out string) (converter.Report, error) {
	s.lastIn, s.lastOut = in, out
	if s.convertErr != nil {
		return converter.Report{}, s.convertErr
	}
	return converter.Report{InputPath: in, OutputPath: out, Records: 3, Skipped: 1}, nil
}

func (s *stubService) CheckReadiness(context.Context) error {
	if !s.ready {
		return errors.New("no conversion has completed yet")
	}
	return nil
}

func newTestServer(svc ConversionService) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", svc, "default.nc", "default.json", logger)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&stubService{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHandleReady(t *testing.T) {
	t.Run("not ready", func(t *testing.T) {
		srv := newTestServer(&stubService{ready: false})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "not ready")
	})

	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(&stubService{ready: true})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHandleConvert(t *testing.T) {
	t.Run("explicit paths", func(t *testing.T) {
		svc := &stubService{}
		srv := newTestServer(svc)

		body := strings.NewReader(`{"input":"a.nc","output":"b.json"}`)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/convert", body))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a.nc", svc.lastIn)
		assert.Equal(t, "b.json", svc.lastOut)

		var report converter.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, 3, report.Records)
		assert.Equal(t, 1, report.Skipped)
	})

	t.Run("empty body falls back to configured paths", func(t *testing.T) {
		svc := &stubService{}
		srv := newTestServer(svc)

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/convert", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "default.nc", svc.lastIn)
		assert.Equal(t, "default.json", svc.lastOut)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newTestServer(&stubService{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader("{not json")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("error kinds map to status codes", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
			kind   string
		}{
			{fmt.Errorf("%w: no such file", converter.ErrIO), http.StatusBadRequest, "io"},
			{fmt.Errorf("%w: bz_gsm", converter.ErrSchema), http.StatusUnprocessableEntity, "schema"},
			{fmt.Errorf("%w: bx=2", converter.ErrAlignment), http.StatusUnprocessableEntity, "alignment"},
			{fmt.Errorf("%w: permission denied", converter.ErrWrite), http.StatusInternalServerError, "write"},
		}

		for _, tt := range tests {
			srv := newTestServer(&stubService{convertErr: tt.err})

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/convert", nil))

			assert.Equal(t, tt.status, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp["kind"])
		}
	})
}
