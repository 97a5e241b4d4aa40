package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexbeta/internal/api/handlers"
	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/metrics"
	"github.com/wonny/indexbeta/internal/strategyconfig"
	"github.com/wonny/indexbeta/pkg/database"
	"github.com/wonny/indexbeta/pkg/logger"
)

type fakeStrategy struct {
	gotDate time.Time
	evalErr error
	reports map[string]error // index → error, nil means ok
	panics  bool
}

func (f *fakeStrategy) Evaluate(_ context.Context, indexID string, baseDate time.Time) (*contracts.PositionDecision, error) {
	if f.panics {
		panic("boom")
	}
	f.gotDate = baseDate
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return &contracts.PositionDecision{
		ID:       "d-1",
		IndexID:  indexID,
		Date:     baseDate,
		PE:       12,
		PB:       1.3,
		Position: -0.1,
		Rule:     contracts.RuleGraduatedSell,
	}, nil
}

func (f *fakeStrategy) Report(_ context.Context, indexID string, baseDate time.Time) (*contracts.ValuationReport, error) {
	f.gotDate = baseDate
	if err := f.reports[indexID]; err != nil {
		return nil, err
	}
	return &contracts.ValuationReport{
		IndexID: indexID,
		Date:    baseDate,
		PE:      contracts.FactorStats{Current: 12, Percentile: 0.4, SampleCount: 250},
	}, nil
}

type fakeDecisions struct {
	gotLimit int
	err      error
}

func (f *fakeDecisions) ListDecisions(_ context.Context, indexID string, limit int) ([]*contracts.PositionDecision, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []*contracts.PositionDecision{{ID: "d-1", IndexID: indexID}}, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) (*database.HealthStatus, error) {
	return &database.HealthStatus{Healthy: f.err == nil}, f.err
}

var testUniverse = strategyconfig.Universe{Indices: []strategyconfig.IndexFund{
	{Index: "000300.XSHG", Fund: "110020", Name: "CSI 300"},
	{Index: "000905.XSHG", Fund: "000478", Name: "CSI 500"},
}}

func newTestRouter(strategy *fakeStrategy, decisions handlers.DecisionLister, health HealthChecker) http.Handler {
	h := handlers.NewValuationHandler(strategy, decisions, testUniverse, time.UTC, logger.Nop())
	return NewRouter(h, health, metrics.New().Handler(), logger.Nop())
}

func do(t *testing.T, router http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthChecker
		wantStatus int
		wantBody   string
	}{
		{"no database", nil, http.StatusOK, "ok"},
		{"database up", fakeHealth{}, http.StatusOK, "ok"},
		{"database down", fakeHealth{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(&fakeStrategy{}, nil, tt.health), http.MethodGet, "/health", "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]interface{}
			decodeBody(t, rec, &body)
			assert.Equal(t, tt.wantBody, body["status"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(&fakeStrategy{}, nil, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestGetUniverse(t *testing.T) {
	rec := do(t, newTestRouter(&fakeStrategy{}, nil, nil), http.MethodGet, "/api/valuation/indices", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []strategyconfig.IndexFund
	decodeBody(t, rec, &got)
	assert.Equal(t, testUniverse.Indices, got)
}

func TestGetDecision(t *testing.T) {
	strategy := &fakeStrategy{}
	router := newTestRouter(strategy, nil, nil)

	rec := do(t, router, http.MethodGet, "/api/valuation/000300.XSHG/decision?date=2024-01-09", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got contracts.PositionDecision
	decodeBody(t, rec, &got)
	assert.Equal(t, "000300.XSHG", got.IndexID)
	assert.Equal(t, contracts.RuleGraduatedSell, got.Rule)
	assert.InDelta(t, -0.1, got.Position, 1e-12)
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), strategy.gotDate)
}

func TestGetDecision_DefaultsToToday(t *testing.T) {
	strategy := &fakeStrategy{}
	rec := do(t, newTestRouter(strategy, nil, nil), http.MethodGet, "/api/valuation/000300.XSHG/decision", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strategy.gotDate.IsZero())
}

func TestGetDecision_Errors(t *testing.T) {
	tests := []struct {
		name       string
		strategy   *fakeStrategy
		path       string
		wantStatus int
	}{
		{"bad date", &fakeStrategy{}, "/api/valuation/000300.XSHG/decision?date=09-01-2024", http.StatusBadRequest},
		{"provider failure", &fakeStrategy{evalErr: errors.New("calendar unavailable")}, "/api/valuation/000300.XSHG/decision", http.StatusInternalServerError},
		{"panic", &fakeStrategy{panics: true}, "/api/valuation/000300.XSHG/decision", http.StatusInternalServerError},
		{"wrong method", &fakeStrategy{}, "/api/valuation/000300.XSHG/decision", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := http.MethodGet
			if tt.name == "wrong method" {
				method = http.MethodPost
			}
			rec := do(t, newTestRouter(tt.strategy, nil, nil), method, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetReport(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"no data", fmt.Errorf("000300.XSHG on 2024-01-09: %w", contracts.ErrNoData), http.StatusNotFound},
		{"empty history", fmt.Errorf("pe stats: %w", contracts.ErrInsufficientHistory), http.StatusUnprocessableEntity},
		{"provider failure", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := &fakeStrategy{reports: map[string]error{"000300.XSHG": tt.err}}
			rec := do(t, newTestRouter(strategy, nil, nil), http.MethodGet, "/api/valuation/000300.XSHG/report?date=2024-01-09", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetReports_SkipsFailedIndices(t *testing.T) {
	strategy := &fakeStrategy{reports: map[string]error{"000905.XSHG": contracts.ErrNoData}}
	rec := do(t, newTestRouter(strategy, nil, nil), http.MethodGet, "/api/valuation/report", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []contracts.ValuationReport
	decodeBody(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "000300.XSHG", got[0].IndexID)
}

func TestGetDecisions(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		rec := do(t, newTestRouter(&fakeStrategy{}, nil, nil), http.MethodGet, "/api/valuation/000300.XSHG/decisions", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("default limit", func(t *testing.T) {
		store := &fakeDecisions{}
		rec := do(t, newTestRouter(&fakeStrategy{}, store, nil), http.MethodGet, "/api/valuation/000300.XSHG/decisions", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 20, store.gotLimit)

		var got []contracts.PositionDecision
		decodeBody(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "000300.XSHG", got[0].IndexID)
	})

	t.Run("custom limit", func(t *testing.T) {
		store := &fakeDecisions{}
		rec := do(t, newTestRouter(&fakeStrategy{}, store, nil), http.MethodGet, "/api/valuation/000300.XSHG/decisions?limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, store.gotLimit)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := do(t, newTestRouter(&fakeStrategy{}, &fakeDecisions{}, nil), http.MethodGet, "/api/valuation/000300.XSHG/decisions?limit=0", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &fakeDecisions{err: errors.New("relation does not exist")}
		rec := do(t, newTestRouter(&fakeStrategy{}, store, nil), http.MethodGet, "/api/valuation/000300.XSHG/decisions", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestPercentile(t *testing.T) {
	router := newTestRouter(&fakeStrategy{}, nil, nil)

	rec := do(t, router, http.MethodPost, "/api/valuation/percentile", `{"value":6,"distribution":[1,2,3,4,5,6,7,8,9,10,11]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got handlers.PercentileResponse
	decodeBody(t, rec, &got)
	assert.InDelta(t, 0.5, got.Percentile, 1e-12)
	assert.Equal(t, 1.0, got.Deciles[0])
	assert.Equal(t, 11.0, got.Deciles[10])

	rec = do(t, router, http.MethodPost, "/api/valuation/percentile", `{"value":6,"distribution":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/valuation/percentile", `{"value":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPosition(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantRule   contracts.Rule
		wantPos    float64
	}{
		{"systemic sell", `{"pe":55,"pb":2,"pe_quantile":0.5,"pb_quantile":0.5}`, http.StatusOK, contracts.RuleSystemicSell, -1},
		{"systemic buy", `{"pe":5,"pb":0.95,"pe_quantile":0.5,"pb_quantile":0.5}`, http.StatusOK, contracts.RuleSystemicBuy, 1},
		{"hold", `{"pe":12,"pb":2,"pe_quantile":0.5,"pb_quantile":0.5}`, http.StatusOK, contracts.RuleHold, 0},
		{"invalid pe", `{"pe":0,"pb":2}`, http.StatusUnprocessableEntity, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(&fakeStrategy{}, nil, nil), http.MethodPost, "/api/valuation/position", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				assert.True(t, strings.Contains(rec.Body.String(), "error"))
				return
			}

			var got handlers.PositionResponse
			decodeBody(t, rec, &got)
			assert.Equal(t, tt.wantRule, got.Rule)
			assert.InDelta(t, tt.wantPos, got.Position, 1e-12)
		})
	}
}
