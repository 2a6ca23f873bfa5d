package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mdobak/go-xerrors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spectrum-monitor/db"
	"spectrum-monitor/metrics"
	"spectrum-monitor/models"
	"spectrum-monitor/spectrum"
	"spectrum-monitor/utils"
)

const (
	defaultSpectrumLimit = 100
	defaultAnomalyLimit  = 50
)

// apiServer bundles the store, the classifier and the realtime broadcaster
// behind the REST handlers.
type apiServer struct {
	store     db.DBClient
	analyzer  spectrum.Analyzer
	broadcast *socketController
}

func newAPIServer(store db.DBClient, analyzer spectrum.Analyzer, broadcast *socketController) *apiServer {
	return &apiServer{store: store, analyzer: analyzer, broadcast: broadcast}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		utils.GetLogger().ErrorContext(context.Background(), "failed to encode JSON response", slog.Any("error", err))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, models.APIResponse{Success: true, Data: data})
}

func writeDataMessage(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, models.APIResponse{Success: true, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.APIResponse{Success: false, Error: message})
}

// newRouter wires every REST endpoint plus the socket.io mount.
func newRouter(srv *apiServer, socketHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", srv.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/locations", srv.handleGetLocations)
		r.Get("/spectrum", srv.handleGetSpectrum)
		r.Post("/spectrum", srv.handlePostSpectrum)
		r.Post("/analyze", srv.handleAnalyze)
		r.Get("/anomalies", srv.handleGetAnomalies)
		r.Get("/anomalies/{id}", srv.handleGetAnomalyByID)
		r.Get("/anomalies/{id}/history", srv.handleGetAnomalyHistory)
		r.Get("/statistics", srv.handleGetStatistics)
	})

	if socketHandler != nil {
		r.Handle("/socket.io/", socketHandler)
	}
	return r
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleGetLocations(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()
	ctx := r.Context()

	if r.URL.Query().Get("include_health") == "true" {
		stats, err := s.store.GetLocationStats(time.Now().UTC())
		if err != nil {
			logger.ErrorContext(ctx, "failed to load location health", slog.Any("error", xerrors.New(err)))
			writeError(w, http.StatusInternalServerError, "failed to load location health")
			return
		}
		writeData(w, http.StatusOK, stats)
		return
	}

	locations, err := s.store.GetLocations()
	if err != nil {
		logger.ErrorContext(ctx, "failed to load locations", slog.Any("error", xerrors.New(err)))
		writeError(w, http.StatusInternalServerError, "failed to load locations")
		return
	}
	writeData(w, http.StatusOK, locations)
}

func (s *apiServer) handleGetSpectrum(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()
	ctx := r.Context()

	query := r.URL.Query()
	locationID := query.Get("location_id")
	includeAnalysis := query.Get("include_analysis") == "true"

	limit := defaultSpectrumLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	rows, err := s.store.GetSpectrumData(locationID, limit, includeAnalysis)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load spectrum data", slog.Any("error", xerrors.New(err)))
		writeError(w, http.StatusInternalServerError, "failed to load spectrum data")
		return
	}
	if rows == nil {
		rows = []models.SpectrumDataWithLocation{}
	}
	writeData(w, http.StatusOK, rows)
}

// spectrumDataRequest uses pointer fields so that absent and zero-valued
// inputs are distinguishable during validation.
type spectrumDataRequest struct {
	Timestamp      *time.Time `json:"timestamp"`
	Frequency      *float64   `json:"frequency"`
	Power          *float64   `json:"power"`
	LocationID     string     `json:"location_id"`
	Bandwidth      *float64   `json:"bandwidth"`
	ModulationType *string    `json:"modulation_type"`
}

func (s *apiServer) handlePostSpectrum(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()
	ctx := r.Context()

	var req spectrumDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Timestamp == nil || req.Frequency == nil || req.Power == nil || req.LocationID == "" {
		writeError(w, http.StatusBadRequest, "timestamp, frequency, power and location_id are required")
		return
	}

	if _, err := s.store.GetLocation(req.LocationID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unknown location_id")
			return
		}
		logger.ErrorContext(ctx, "failed to look up location", slog.Any("error", xerrors.New(err)))
		writeError(w, http.StatusInternalServerError, "failed to store spectrum data")
		return
	}

	data := &models.SpectrumData{
		Timestamp:      req.Timestamp.UTC(),
		Frequency:      *req.Frequency,
		Power:          *req.Power,
		LocationID:     req.LocationID,
		Bandwidth:      req.Bandwidth,
		ModulationType: req.ModulationType,
	}
	if _, err := s.store.InsertSpectrumData(data); err != nil {
		logger.ErrorContext(ctx, "failed to insert spectrum data", slog.Any("error", xerrors.New(err)))
		writeError(w, http.StatusInternalServerError, "failed to store spectrum data")
		return
	}

	metrics.MeasurementsIngested.Inc()
	logger.InfoContext(ctx, "stored spectrum measurement",
		slog.Int64("id", data.ID),
		slog.String("locationID", data.LocationID),
		slog.Float64("frequency", data.Frequency),
		slog.Float64("power", data.Power),
	)
	writeDataMessage(w, http.StatusCreated, data, "spectrum data stored")
}

type analyzeRequest struct {
	SpectrumDataID *int64 `json:"spectrum_data_id"`
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()
	ctx := r.Context()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.SpectrumDataID == nil {
		writeError(w, http.StatusBadRequest, "spectrum_data_id is required")
		return
	}

	data, err := s.store.GetSpectrumDataByID(*req.SpectrumDataID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "spectrum data not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load spectrum data", slog.Any("error", xerrors.New(err)))
		writeError(w, http.StatusInternalServerError, "failed to analyze spectrum data")
		return
	}

	started := time.Now()
	analysis := spectrum.Classify(ctx, s.analyzer, data)
	metrics.AnalysisLatency.Observe(time.Since(started).Seconds())
	if analysis.Reasoning == spectrum.FallbackReasoning {
		metrics.AnalysisFailures.Inc()
	}

	result := &models.AnalysisResult{
		SpectrumDataID:  data.ID,
		IsAnomaly:       analysis.IsAnomaly,
		AnomalyType:     analysis.AnomalyType,
		ConfidenceScore: analysis.ConfidenceScore,
		Reasoning:       analysis.Reasoning,
		AnalyzedAt:      time.Now().UTC(),
	}
	if _, err := s.store.InsertAnalysisResult(result); err != nil {
		if errors.Is(err, db.ErrDuplicateAnalysis) {
			writeError(w, http.StatusConflict, "spectrum data already analyzed")
			return
		}
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "spectrum data not found")
			return
		}
		logger.ErrorContext(ctx, "failed to store analysis result", slog.Any("error", xerrors.New(err)))
		writeError(w, http.StatusInternalServerError, "failed to store analysis result")
		return
	}

	logger.InfoContext(ctx, "analysis complete",
		slog.Int64("spectrumDataID", data.ID),
		slog.Bool("isAnomaly", result.IsAnomaly),
		slog.Float64("confidence", result.ConfidenceScore),
	)

	if result.IsAnomaly {
		anomalyType := spectrum.AnomalyUnknown
		if result.AnomalyType != nil {
			anomalyType = *result.AnomalyType
		}
		metrics.AnomaliesDetected.WithLabelValues(anomalyType, data.LocationID).Inc()

		if record, err := s.store.GetAnomalyByID(result.ID); err != nil {
			logger.ErrorContext(ctx, "failed to load anomaly for broadcast", slog.Any("error", xerrors.New(err)))
		} else if s.broadcast != nil {
			s.broadcast.BroadcastAnomaly(*record)
		}
	}

	writeDataMessage(w, http.StatusCreated, result, "analysis stored")
}

func (s *apiServer) handleGetAnomalies(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()
	ctx := r.Context()

	query := r.URL.Query()
	limit := defaultAnomalyLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.store.GetAnomalies(query.Get("location_id"), limit)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load anomalies", slog.Any("error", xerrors.New(err)))
		writeError(w, http.StatusInternalServerError, "failed to load anomalies")
		return
	}
	if records == nil {
		records = []models.AnomalyRecord{}
	}
	writeData(w, http.StatusOK, records)
}

func anomalyIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *apiServer) handleGetAnomalyByID(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()
	ctx := r.Context()

	id, ok := anomalyIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid anomaly id")
		return
	}

	record, err := s.store.GetAnomalyByID(id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "anomaly not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load anomaly", slog.Any("error", xerrors.New(err)))
		writeError(w, http.StatusInternalServerError, "failed to load anomaly")
		return
	}
	writeData(w, http.StatusOK, record)
}

func (s *apiServer) handleGetAnomalyHistory(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()
	ctx := r.Context()

	id, ok := anomalyIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid anomaly id")
		return
	}

	points, err := s.store.GetAnomalyHistory(id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "anomaly not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load anomaly history", slog.Any("error", xerrors.New(err)))
		writeError(w, http.StatusInternalServerError, "failed to load anomaly history")
		return
	}
	if points == nil {
		points = []models.HistoryPoint{}
	}
	writeData(w, http.StatusOK, points)
}

func (s *apiServer) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()
	ctx := r.Context()
	now := time.Now().UTC()

	statsType := r.URL.Query().Get("type")
	if statsType == "" {
		statsType = "timeline"
	}

	var (
		data any
		err  error
	)
	switch statsType {
	case "timeline":
		data, err = s.store.GetTimelineStats(now)
	case "frequency_band":
		data, err = s.store.GetFrequencyBandStats(now)
	case "region":
		data, err = s.store.GetRegionStats(now)
	case "anomaly_types":
		data, err = s.store.GetAnomalyTypeStats(now)
	default:
		writeError(w, http.StatusBadRequest, "unknown statistics type (expected timeline, frequency_band, region or anomaly_types)")
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to load statistics",
			slog.String("type", statsType),
			slog.Any("error", xerrors.New(err)),
		)
		writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	writeData(w, http.StatusOK, data)
}
