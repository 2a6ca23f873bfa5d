package models

import "time"

// SpectrumData is a single observed spectrum sample. Rows are immutable once
// inserted.
type SpectrumData struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Frequency      float64   `json:"frequency"` // MHz
	Power          float64   `json:"power"`     // dBm
	LocationID     string    `json:"location_id"`
	Bandwidth      *float64  `json:"bandwidth,omitempty"` // MHz
	ModulationType *string   `json:"modulation_type,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// AnalysisResult is the classifier verdict for exactly one measurement.
// AnomalyType is nil whenever IsAnomaly is false.
type AnalysisResult struct {
	ID              int64     `json:"id"`
	SpectrumDataID  int64     `json:"spectrum_data_id"`
	IsAnomaly       bool      `json:"is_anomaly"`
	AnomalyType     *string   `json:"anomaly_type,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	Reasoning       string    `json:"reasoning"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// Location is a fixed monitoring station. Seeded at startup, never mutated.
type Location struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Region    string  `json:"region"`
}

// LocationHealth is a location joined with its trailing-24h health stats.
type LocationHealth struct {
	Location
	HealthScore  int        `json:"health_score"`
	AnomalyCount int        `json:"anomaly_count"`
	TotalChecks  int        `json:"total_checks"`
	LastCheck    *time.Time `json:"last_check,omitempty"`
}

// SpectrumDataWithLocation is a measurement joined with its station, as served
// by the spectrum listing endpoint. Analysis is attached on request and stays
// nil for unclassified rows.
type SpectrumDataWithLocation struct {
	SpectrumData
	LocationName string          `json:"location_name"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	Region       string          `json:"region"`
	Analysis     *AnalysisResult `json:"analysis,omitempty"`
}

// AnomalyRecord is one anomalous measurement joined with its analysis and
// station, flattened for list views.
type AnomalyRecord struct {
	AnalysisID      int64     `json:"analysis_id"`
	SpectrumDataID  int64     `json:"spectrum_data_id"`
	IsAnomaly       bool      `json:"is_anomaly"`
	AnomalyType     *string   `json:"anomaly_type,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	Reasoning       string    `json:"reasoning"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
	Timestamp       time.Time `json:"timestamp"`
	Frequency       float64   `json:"frequency"`
	Power           float64   `json:"power"`
	Bandwidth       *float64  `json:"bandwidth,omitempty"`
	ModulationType  *string   `json:"modulation_type,omitempty"`
	LocationID      string    `json:"location_id"`
	LocationName    string    `json:"location_name"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	Region          string    `json:"region"`
}

// HistoryPoint is one sample in the same-station, same-band history series
// behind an anomaly detail view.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Frequency float64   `json:"frequency"`
	Power     float64   `json:"power"`
	IsAnomaly bool      `json:"is_anomaly"`
}

// TimelineBucket is an hourly bin of measurement and anomaly counts.
type TimelineBucket struct {
	Hour         string `json:"hour"` // "2006-01-02 15:00:00", UTC
	AnomalyCount int    `json:"anomaly_count"`
	TotalCount   int    `json:"total_count"`
}

// BandStats summarises one frequency band over the trailing window.
type BandStats struct {
	Band         string  `json:"band"`
	AnomalyCount int     `json:"anomaly_count"`
	TotalCount   int     `json:"total_count"`
	AvgPower     float64 `json:"avg_power"`
}

// RegionStats summarises one region over the trailing window.
type RegionStats struct {
	Region       string `json:"region"`
	AnomalyCount int    `json:"anomaly_count"`
	TotalCount   int    `json:"total_count"`
	HealthScore  int    `json:"health_score"`
}

// AnomalyTypeStats counts anomalous results per anomaly category.
type AnomalyTypeStats struct {
	Type          string  `json:"type"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// APIResponse is the envelope shared by every HTTP endpoint.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
