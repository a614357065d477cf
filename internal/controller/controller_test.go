package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/internal/pkg/serverutils"
	"confusion-engine-be/internal/repository/memory"
	"confusion-engine-be/internal/service"
	"confusion-engine-be/pkg/baseline"
	"confusion-engine-be/pkg/heuristic"
	"confusion-engine-be/pkg/publisher"
	"confusion-engine-be/pkg/scoring"
	"confusion-engine-be/pkg/weights"
	"confusion-engine-be/pkg/window"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	app       *fiber.App
	ingestion service.IIngestionService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := logger.NewNopLogger()

	windows := window.NewManager(window.DefaultHorizon, log)
	store := baseline.NewStore(baseline.DefaultConfig(), baseline.NewMemoryLog(), nil, log)
	t.Cleanup(store.Close)
	controller := weights.NewController(weights.DefaultConfig(), nil, log)
	pub := publisher.New(16, log)
	require.NoError(t, pub.Start(context.Background()))
	t.Cleanup(func() { _ = pub.Close() })

	aggregator := scoring.NewAggregator(heuristic.NewEvaluator(heuristic.DefaultConfig()), controller)
	engine := service.NewEngineService(windows, store, aggregator, pub, 500*time.Millisecond, log)
	ingestion := service.NewIngestionService(engine, 2, 64, log, log)
	require.NoError(t, ingestion.Start(context.Background()))
	t.Cleanup(func() { _ = ingestion.Close() })

	feedback := service.NewFeedbackService(controller, memory.NewExplanationRepository(time.Hour), log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewEventController(ingestion).RegisterRoutes(api)
	NewFeedbackController(feedback).RegisterRoutes(api)
	NewBaselineController(service.NewBaselineService(store, nil, log)).RegisterRoutes(api)
	NewEngineController(engine, ingestion, service.NewConfusionService(nil), controller, store).RegisterRoutes(api)
	NewAdminController(service.NewAdminService(log)).RegisterRoutes(api)

	return &testApp{app: app, ingestion: ingestion}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) (int, serverutils.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out serverutils.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestIngestEventsReturnsCounts(t *testing.T) {
	a := newTestApp(t)

	status, res := a.do(t, http.MethodPost, "/api/events/v1", map[string]interface{}{
		"events": []map[string]interface{}{
			{"learner_id": "l1", "content_id": "c", "segment_id": "S", "content_type": "text", "type": "rewind", "timestamp": 1000},
			{"learner_id": "l1", "content_id": "c", "segment_id": "S", "content_type": "audio", "type": "rewind", "timestamp": 2000},
		},
	})

	assert.Equal(t, http.StatusAccepted, status)
	assert.True(t, res.Success)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, 1.0, data["accepted"])
	assert.Equal(t, 1.0, data["invalid"])
}

func TestEndpointValidation(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{name: "empty event batch", method: http.MethodPost, path: "/api/events/v1", body: map[string]interface{}{"events": []interface{}{}}, want: http.StatusBadRequest},
		{name: "close without learner", method: http.MethodPost, path: "/api/segments/v1/close", body: map[string]string{"segment_id": "S"}, want: http.StatusBadRequest},
		{name: "explanation with unknown heuristic", method: http.MethodPost, path: "/api/explanations/v1", body: map[string]interface{}{
			"explanation_id": "x", "segment_id": "S", "learner_id": "l1", "content_type": "text", "triggering_heuristics": []string{"boredom"},
		}, want: http.StatusBadRequest},
		{name: "baseline bad content type", method: http.MethodGet, path: "/api/baselines/v1/S?content_type=audio", want: http.StatusBadRequest},
		{name: "points without database", method: http.MethodGet, path: "/api/confusion/v1/points/S", want: http.StatusServiceUnavailable},
		{name: "points with unknown severity floor", method: http.MethodGet, path: "/api/confusion/v1/points/S?min_severity=low", want: http.StatusBadRequest},
		{name: "log level filter", method: http.MethodGet, path: "/api/admin/v1/logs?level=TRACE", want: http.StatusBadRequest},
		{name: "weights", method: http.MethodGet, path: "/api/weights/v1", want: http.StatusOK},
		{name: "recompute", method: http.MethodPost, path: "/api/baselines/v1/recompute", want: http.StatusOK},
		{name: "engine stats", method: http.MethodGet, path: "/api/engine/v1/stats", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, res := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.want < 300, res.Success)
		})
	}
}

func TestBaselineDefaultForUnknownSegment(t *testing.T) {
	a := newTestApp(t)

	status, res := a.do(t, http.MethodGet, "/api/baselines/v1/never-seen?content_type=video", nil)

	require.Equal(t, http.StatusOK, status)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, "default", data["kind"])
	assert.Equal(t, 10000.0, data["avg_dwell_time_ms"])
	assert.Equal(t, 0.5, data["avg_rewind_count"])
}

func TestCloseSegmentReportsTerminalMetrics(t *testing.T) {
	a := newTestApp(t)
	a.do(t, http.MethodPost, "/api/events/v1", map[string]interface{}{
		"events": []map[string]interface{}{
			{"learner_id": "l1", "content_id": "c", "segment_id": "S", "content_type": "text", "type": "select", "timestamp": 1000},
			{"learner_id": "l1", "content_id": "c", "segment_id": "S", "content_type": "text", "type": "rewind", "timestamp": 6000},
		},
	})

	status, res := a.do(t, http.MethodPost, "/api/segments/v1/close", map[string]string{"learner_id": "l1", "segment_id": "S"})

	require.Equal(t, http.StatusOK, status)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, true, data["closed"])
	assert.Equal(t, 5000.0, data["dwell_time_ms"])
	assert.Equal(t, 1.0, data["rewind_count"])
}

func TestFeedbackFlowAdjustsWeights(t *testing.T) {
	a := newTestApp(t)
	status, _ := a.do(t, http.MethodPost, "/api/explanations/v1", map[string]interface{}{
		"explanation_id": "x1", "segment_id": "S", "learner_id": "l1", "content_type": "text", "triggering_heuristics": []string{"excessive_dwell"},
	})
	require.Equal(t, http.StatusCreated, status)

	signals := make([]map[string]string, 0, 5)
	for i := 0; i < 5; i++ {
		signals = append(signals, map[string]string{"explanation_id": "x1", "learner_id": "l1", "outcome": "negative"})
	}
	status, res := a.do(t, http.MethodPost, "/api/feedback/v1", map[string]interface{}{"signals": signals})

	require.Equal(t, http.StatusOK, status)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, 5.0, data["accepted"])
	adjustments := data["adjustments"].([]interface{})
	require.Len(t, adjustments, 1)
	adj := adjustments[0].(map[string]interface{})
	assert.Equal(t, "excessive_dwell", adj["heuristic"])
	assert.Equal(t, 0.25, adj["to"])
}
