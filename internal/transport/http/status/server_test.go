package statushttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/husnusametd/spectra/internal/report"
	"github.com/husnusametd/spectra/internal/scanner"
	"github.com/husnusametd/spectra/internal/thresholds"
	"github.com/husnusametd/spectra/internal/walkforward"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScans struct {
	res scanner.Result
	ok  bool
}

func (f fakeScans) Latest() (scanner.Result, bool) { return f.res, f.ok }

type fakeWalks struct {
	rep walkforward.Report
	ok  bool
}

func (f fakeWalks) LatestWalk() (walkforward.Report, bool) { return f.rep, f.ok }

type fakeThresholds thresholds.Snapshot

func (f fakeThresholds) Snapshot() thresholds.Snapshot { return thresholds.Snapshot(f) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	srv := NewServer(ServerConfig{})
	rec := get(t, srv.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, ":9991", srv.Addr())
}

func TestScanLatest(t *testing.T) {
	srv := NewServer(ServerConfig{Scans: fakeScans{}})
	assert.Equal(t, http.StatusNotFound, get(t, srv.Handler(), "/api/scan/latest").Code)

	res := scanner.Result{
		TraceID:   "abc",
		Universe:  3,
		Evaluated: 2,
		Skipped:   1,
		Rows:      []report.Row{{Rank: 1, Ticker: "BTCUSDT", Signal: "breakout", Conviction: "High", Entry: 100}},
	}
	srv = NewServer(ServerConfig{Scans: fakeScans{res: res, ok: true}})
	rec := get(t, srv.Handler(), "/api/scan/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var got scanner.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.TraceID)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "BTCUSDT", got.Rows[0].Ticker)
}

func TestWalkLatest(t *testing.T) {
	srv := NewServer(ServerConfig{})
	assert.Equal(t, http.StatusNotFound, get(t, srv.Handler(), "/api/walkforward/latest").Code)

	rep := walkforward.Report{RunID: "run-1", Symbol: "BTCUSDT", Median: 1.1, Passed: true}
	srv = NewServer(ServerConfig{Walks: fakeWalks{rep: rep, ok: true}})
	rec := get(t, srv.Handler(), "/api/walkforward/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var got walkforward.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, got.Passed)
}

func TestThresholds(t *testing.T) {
	loaded := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv := NewServer(ServerConfig{Thresholds: fakeThresholds{Version: 3, LoadedAt: loaded, Values: thresholds.Set{"rsi_max": 70}}})
	rec := get(t, srv.Handler(), "/api/thresholds")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version":3,"loaded_at":"2024-05-01T12:00:00Z","values":{"rsi_max":70}}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	srv := NewServer(ServerConfig{})
	assert.Equal(t, http.StatusNotFound, get(t, srv.Handler(), "/metrics").Code)

	srv = NewServer(ServerConfig{Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("spectra_scans_total 1\n"))
	})})
	rec := get(t, srv.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spectra_scans_total")
}
