package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"spectrum-monitor/db"
	"spectrum-monitor/models"
	"spectrum-monitor/spectrum"
)

type fixedAnalyzer struct {
	analysis *spectrum.AIAnalysis
	err      error
}

func (f *fixedAnalyzer) Analyze(ctx context.Context, data *models.SpectrumData) (*spectrum.AIAnalysis, error) {
	return f.analysis, f.err
}

func jammingAnalyzer() *fixedAnalyzer {
	anomalyType := spectrum.AnomalyJamming
	return &fixedAnalyzer{analysis: &spectrum.AIAnalysis{
		IsAnomaly:       true,
		AnomalyType:     &anomalyType,
		ConfidenceScore: 0.95,
		Reasoning:       "Power is 30 dBm above the LTE reference level.",
	}}
}

func newTestRouter(t *testing.T, analyzer spectrum.Analyzer) (http.Handler, *db.MemoryClient) {
	t.Helper()
	store := db.NewMemoryClient()
	if err := store.SeedLocations(db.DefaultLocations()); err != nil {
		t.Fatalf("failed to seed locations: %v", err)
	}
	srv := newAPIServer(store, analyzer, nil)
	return newRouter(srv, nil), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

func postMeasurement(t *testing.T, handler http.Handler, freq, power float64, locationID string) models.SpectrumData {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/spectrum", map[string]any{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"frequency":   freq,
		"power":       power,
		"location_id": locationID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/spectrum = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("envelope not successful: %s", rec.Body.String())
	}
	var data models.SpectrumData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode measurement: %v", err)
	}
	return data
}

func analyzeMeasurement(t *testing.T, handler http.Handler, id int64) models.AnalysisResult {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/analyze", map[string]any{"spectrum_data_id": id})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/analyze = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var result models.AnalysisResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("failed to decode analysis result: %v", err)
	}
	return result
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(t, jammingAnalyzer())
	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
}

func TestPostSpectrumValidation(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(t, jammingAnalyzer())

	cases := []struct {
		name string
		body map[string]any
	}{
		{name: "empty body", body: map[string]any{}},
		{name: "missing frequency", body: map[string]any{
			"timestamp": "2025-03-14T05:00:00Z", "power": -40.0, "location_id": "seoul-01",
		}},
		{name: "missing power", body: map[string]any{
			"timestamp": "2025-03-14T05:00:00Z", "frequency": 1800.0, "location_id": "seoul-01",
		}},
		{name: "missing timestamp", body: map[string]any{
			"frequency": 1800.0, "power": -40.0, "location_id": "seoul-01",
		}},
		{name: "missing location", body: map[string]any{
			"timestamp": "2025-03-14T05:00:00Z", "frequency": 1800.0, "power": -40.0,
		}},
	}
	for _, tc := range cases {
		rec := doJSON(t, handler, http.MethodPost, "/api/spectrum", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Success || env.Error == "" {
			t.Errorf("%s: expected failure envelope, got %s", tc.name, rec.Body.String())
		}
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/spectrum", map[string]any{
		"timestamp": "2025-03-14T05:00:00Z", "frequency": 1800.0, "power": -40.0, "location_id": "atlantis-01",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown location: status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(t, jammingAnalyzer())

	rec := doJSON(t, handler, http.MethodPost, "/api/analyze", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/analyze", map[string]any{"spectrum_data_id": 12345})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown measurement: status = %d, want 404", rec.Code)
	}
}

func TestAnalyzeDuplicateRejected(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(t, jammingAnalyzer())
	data := postMeasurement(t, handler, 1800, -40, "seoul-01")
	analyzeMeasurement(t, handler, data.ID)

	rec := doJSON(t, handler, http.MethodPost, "/api/analyze", map[string]any{"spectrum_data_id": data.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate analyze = %d, want 409 (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeFailOpenNeverSurfaces(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(t, &fixedAnalyzer{err: context.DeadlineExceeded})
	data := postMeasurement(t, handler, 1800, -40, "seoul-01")

	result := analyzeMeasurement(t, handler, data.ID)
	if result.IsAnomaly {
		t.Error("fail-open verdict must not be anomalous")
	}
	if result.ConfidenceScore != 0.5 || result.Reasoning != spectrum.FallbackReasoning {
		t.Errorf("fail-open verdict = %+v", result)
	}
}

func TestJammingScenarioEndToEnd(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(t, jammingAnalyzer())

	// A strong carrier in the LTE band: 30 dBm above the -70 dBm reference.
	data := postMeasurement(t, handler, 1800, -40, "seoul-01")
	result := analyzeMeasurement(t, handler, data.ID)

	if !result.IsAnomaly {
		t.Fatal("expected anomalous verdict")
	}
	if result.AnomalyType == nil || *result.AnomalyType != spectrum.AnomalyJamming {
		t.Fatalf("anomaly type = %v, want Jamming", result.AnomalyType)
	}

	// The anomaly shows up in the listing with joined station fields.
	rec := doJSON(t, handler, http.MethodGet, "/api/anomalies", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/anomalies = %d", rec.Code)
	}
	var records []models.AnomalyRecord
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &records); err != nil {
		t.Fatalf("failed to decode anomalies: %v", err)
	}
	if len(records) != 1 || records[0].LocationID != "seoul-01" || records[0].Region != "Seoul" {
		t.Fatalf("anomalies = %+v, want one seoul record", records)
	}
	analysisID := records[0].AnalysisID

	// Detail and history endpoints resolve by analysis id.
	rec = doJSON(t, handler, http.MethodGet, "/api/anomalies/"+jsonID(analysisID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/anomalies/{id} = %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/anomalies/"+jsonID(analysisID)+"/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/anomalies/{id}/history = %d", rec.Code)
	}
	var points []models.HistoryPoint
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &points); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(points) != 1 || !points[0].IsAnomaly {
		t.Fatalf("history = %+v, want the anchor sample flagged", points)
	}

	// And the station's health drops below 100.
	rec = doJSON(t, handler, http.MethodGet, "/api/locations?include_health=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/locations?include_health=true = %d", rec.Code)
	}
	var health []models.LocationHealth
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &health); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	for _, lh := range health {
		if lh.ID == "seoul-01" {
			if lh.HealthScore != 0 || lh.AnomalyCount != 1 || lh.TotalChecks != 1 {
				t.Errorf("seoul health = %+v, want 1/1 anomalous and score 0", lh)
			}
		} else if lh.HealthScore != 100 {
			t.Errorf("idle station %s health = %d, want 100", lh.ID, lh.HealthScore)
		}
	}
}

func TestAnomalyDetailNotFound(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(t, jammingAnalyzer())

	rec := doJSON(t, handler, http.MethodGet, "/api/anomalies/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown anomaly: status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/anomalies/not-a-number", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", rec.Code)
	}
}

func TestStatisticsEndpoint(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(t, jammingAnalyzer())
	data := postMeasurement(t, handler, 1800, -40, "seoul-01")
	analyzeMeasurement(t, handler, data.ID)

	rec := doJSON(t, handler, http.MethodGet, "/api/statistics?type=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown type: status = %d, want 400", rec.Code)
	}

	for _, statsType := range []string{"", "timeline", "frequency_band", "region", "anomaly_types"} {
		path := "/api/statistics"
		if statsType != "" {
			path += "?type=" + statsType
		}
		rec := doJSON(t, handler, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("type %q: status = %d, want 200", statsType, rec.Code)
		}
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/statistics?type=anomaly_types", nil)
	var stats []models.AnomalyTypeStats
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &stats); err != nil {
		t.Fatalf("failed to decode anomaly type stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Type != spectrum.AnomalyJamming || stats[0].Count != 1 {
		t.Errorf("anomaly type stats = %+v, want single Jamming row", stats)
	}
}

func TestGetSpectrumEndpoint(t *testing.T) {
	t.Parallel()

	handler, _ := newTestRouter(t, jammingAnalyzer())
	data := postMeasurement(t, handler, 2400, -50, "busan-01")
	postMeasurement(t, handler, 95, -40, "busan-01")
	analyzeMeasurement(t, handler, data.ID)

	rec := doJSON(t, handler, http.MethodGet, "/api/spectrum?location_id=busan-01&include_analysis=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/spectrum = %d", rec.Code)
	}
	var rows []models.SpectrumDataWithLocation
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &rows); err != nil {
		t.Fatalf("failed to decode spectrum rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	analyzed := 0
	for _, row := range rows {
		if row.LocationName != "Busan Haeundae Station" {
			t.Errorf("location name = %q", row.LocationName)
		}
		if row.Analysis != nil {
			analyzed++
		}
	}
	if analyzed != 1 {
		t.Errorf("%d rows carry analysis, want 1", analyzed)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/spectrum?limit=zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/spectrum?limit=1", nil)
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &rows); err != nil {
		t.Fatalf("failed to decode limited rows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("limit=1 returned %d rows", len(rows))
	}
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}
