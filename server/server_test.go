package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sartorproj/salescast/analysis"
	"github.com/sartorproj/salescast/config"
	"github.com/sartorproj/salescast/metrics"
	"github.com/sartorproj/salescast/sales"
)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Shops(ctx context.Context) (sales.Shops, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(sales.Shops), args.Error(1)
}

func (m *MockAnalyzer) Run(ctx context.Context, req analysis.Request) (*analysis.Report, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Report), args.Error(1)
}

func sampleReport() *analysis.Report {
	start := time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)
	report := &analysis.Report{
		RunID:   "run-1",
		Shop:    &sales.Shop{ID: 25, Name: "Moscow TC"},
		Title:   "Monthly Sales for Shop 25",
		Monthly: analysis.Series{Name: "total_monthly_sales"},
	}
	for i := 0; i < 6; i++ {
		report.Monthly.Points = append(report.Monthly.Points, analysis.Point{
			Date:  start.AddDate(0, i, 0),
			Value: analysis.Number(100 + i),
		})
	}
	report.Selection.Reason = "no viable holt-winters configuration"
	return report
}

func newTestHandler(analyzer Analyzer) (http.Handler, *metrics.Collector) {
	logger, _ := test.NewNullLogger()
	collector := metrics.New()
	return Handler(analyzer, collector, logger, time.Minute), collector
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(new(MockAnalyzer))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(CorrelationHeader))
}

func TestShops(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockAnalyzer)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "lists shops",
			setupMock: func(m *MockAnalyzer) {
				m.On("Shops", mock.Anything).Return(sales.Shops{{ID: 25, Name: "Moscow TC"}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"count":1,"shops":[{"shop_id":25,"shop_name":"Moscow TC"}]}`,
		},
		{
			name: "no shops",
			setupMock: func(m *MockAnalyzer) {
				m.On("Shops", mock.Anything).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"count":0,"shops":[]}`,
		},
		{
			name: "source failure hides the cause",
			setupMock: func(m *MockAnalyzer) {
				m.On("Shops", mock.Anything).Return(nil, errors.Wrap(sales.ErrRead, "/secret/path"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := new(MockAnalyzer)
			tt.setupMock(analyzer)
			h, _ := newTestHandler(analyzer)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shops", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			} else {
				assert.NotContains(t, rec.Body.String(), "/secret/path")
				assert.Contains(t, rec.Body.String(), `"correlation_id"`)
			}
			analyzer.AssertExpectations(t)
		})
	}
}

func TestAnalyze(t *testing.T) {
	id := 25

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockAnalyzer)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "runs by shop id",
			body: `{"shop_id":25,"horizon":6}`,
			setupMock: func(m *MockAnalyzer) {
				m.On("Run", mock.Anything, analysis.Request{ShopID: &id, Horizon: 6}).Return(sampleReport(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"run_id":"run-1"`,
		},
		{
			name: "empty body aggregates all shops",
			body: ``,
			setupMock: func(m *MockAnalyzer) {
				m.On("Run", mock.Anything, analysis.Request{}).Return(sampleReport(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"viable":false`,
		},
		{
			name:           "malformed json",
			body:           `{"shop_id":`,
			setupMock:      func(m *MockAnalyzer) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "malformed JSON body",
		},
		{
			name: "unknown shop",
			body: `{"shop_name":"Nowhere"}`,
			setupMock: func(m *MockAnalyzer) {
				m.On("Run", mock.Anything, analysis.Request{ShopName: "Nowhere"}).
					Return(nil, errors.Wrap(analysis.ErrUnknownShop, "Nowhere"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "unknown shop",
		},
		{
			name: "invalid request",
			body: `{"horizon":500}`,
			setupMock: func(m *MockAnalyzer) {
				m.On("Run", mock.Anything, analysis.Request{Horizon: 500}).
					Return(nil, errors.Wrap(analysis.ErrInvalidRequest, "horizon"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "pipeline failure",
			body: `{}`,
			setupMock: func(m *MockAnalyzer) {
				m.On("Run", mock.Anything, analysis.Request{}).Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   http.StatusText(http.StatusInternalServerError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := new(MockAnalyzer)
			tt.setupMock(analyzer)
			h, _ := newTestHandler(analyzer)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader(tt.body))
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			analyzer.AssertExpectations(t)
		})
	}
}

func TestWorkbook(t *testing.T) {
	id := 25
	analyzer := new(MockAnalyzer)
	analyzer.On("Run", mock.Anything, analysis.Request{ShopID: &id, Horizon: 3}).Return(sampleReport(), nil)
	h, _ := newTestHandler(analyzer)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis/25/workbook?horizon=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="salescast-shop-25.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Monthly")
	require.NoError(t, err)
	assert.Len(t, rows, 7)
	analyzer.AssertExpectations(t)
}

func TestWorkbookAllShops(t *testing.T) {
	report := sampleReport()
	report.Shop = nil
	analyzer := new(MockAnalyzer)
	analyzer.On("Run", mock.Anything, analysis.Request{}).Return(report, nil)
	h, _ := newTestHandler(analyzer)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis/all/workbook", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="salescast-all.xlsx"`, rec.Header().Get("Content-Disposition"))
}

func TestWorkbookBadParameters(t *testing.T) {
	for _, target := range []string{
		"/api/analysis/abc/workbook",
		"/api/analysis/25/workbook?horizon=soon",
	} {
		t.Run(target, func(t *testing.T) {
			analyzer := new(MockAnalyzer)
			h, _ := newTestHandler(analyzer)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			analyzer.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, collector := newTestHandler(new(MockAnalyzer))
	collector.RunFinished(metrics.OutcomeSuccess)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `salescast_runs_total{outcome="success"} 1`)
}

func TestRecover(t *testing.T) {
	analyzer := new(MockAnalyzer)
	analyzer.On("Shops", mock.Anything).Run(func(mock.Arguments) { panic("boom") })

	logger, hook := test.NewNullLogger()
	h := Handler(analyzer, nil, logger, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shops", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotEmpty(t, hook.AllEntries())

	var panicked bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "panic while serving request" {
			panicked = true
			assert.Equal(t, "boom", entry.Data["panic"])
		}
	}
	assert.True(t, panicked)
	assert.Equal(t, "request failed", hook.LastEntry().Message)
}

func TestRequestLogging(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := Handler(new(MockAnalyzer), nil, logger, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "request completed", entry.Message)
	assert.Equal(t, http.StatusOK, entry.Data["status_code"])
	assert.Equal(t, rec.Header().Get(CorrelationHeader), entry.Data["correlation_id"])
}

func TestRunShutsDownOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := New(config.Server{Host: "127.0.0.1", Port: 0}, new(MockAnalyzer), nil, logger)
	assert.Equal(t, "127.0.0.1:0", srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunListenError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := New(config.Server{Host: "127.0.0.1", Port: -1}, new(MockAnalyzer), nil, logger)

	err := srv.Run(context.Background())
	assert.Error(t, err)
}
