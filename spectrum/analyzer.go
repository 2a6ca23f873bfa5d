package spectrum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"spectrum-monitor/models"
)

// Anomaly categories the analyzer is allowed to emit. Anything else coming
// back from the model is kept verbatim but an empty category on an anomaly is
// normalised to Unknown.
const (
	AnomalyJamming          = "Jamming"
	AnomalySpike            = "Spike"
	AnomalyIllegalBroadcast = "Illegal Broadcast"
	AnomalyUnknown          = "Unknown"
)

// FallbackReasoning is stored whenever classification fails and the fail-open
// default is persisted instead of a genuine verdict.
const FallbackReasoning = "Analysis failed due to an error. Manual review recommended."

// AIAnalysis is the classifier verdict for one measurement.
type AIAnalysis struct {
	IsAnomaly       bool    `json:"is_anomaly"`
	AnomalyType     *string `json:"anomaly_type,omitempty"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reasoning       string  `json:"reasoning"`
}

// Analyzer produces a verdict for a single measurement. Implementations may
// fail; callers that need the fail-open contract go through Classify.
type Analyzer interface {
	Analyze(ctx context.Context, data *models.SpectrumData) (*AIAnalysis, error)
}

// Classify runs the analyzer with the fail-open policy: any failure (network,
// timeout, unparseable response, schema violation) yields the non-anomalous
// default verdict. It never returns an error so a broken inference service
// can never block ingestion.
func Classify(ctx context.Context, analyzer Analyzer, data *models.SpectrumData) *AIAnalysis {
	analysis, err := analyzer.Analyze(ctx, data)
	if err != nil || analysis == nil {
		return fallbackAnalysis()
	}
	normalizeAnalysis(analysis)
	return analysis
}

func fallbackAnalysis() *AIAnalysis {
	return &AIAnalysis{
		IsAnomaly:       false,
		ConfidenceScore: 0.5,
		Reasoning:       FallbackReasoning,
	}
}

// normalizeAnalysis enforces the invariants the upstream model is not forced
// to honour: the category is present only for anomalies, and confidence stays
// inside [0, 1].
func normalizeAnalysis(a *AIAnalysis) {
	if !a.IsAnomaly {
		a.AnomalyType = nil
	} else if a.AnomalyType == nil || strings.TrimSpace(*a.AnomalyType) == "" {
		unknown := AnomalyUnknown
		a.AnomalyType = &unknown
	}
	if a.ConfidenceScore < 0 {
		a.ConfidenceScore = 0
	}
	if a.ConfidenceScore > 1 {
		a.ConfidenceScore = 1
	}
}

// BuildAnalysisPrompt renders the fixed natural-language prompt for one
// measurement: the observed fields plus the reference rubric the model judges
// against. Optional fields render as N/A / Unknown.
func BuildAnalysisPrompt(data *models.SpectrumData) string {
	bandwidth := "N/A"
	if data.Bandwidth != nil {
		bandwidth = fmt.Sprintf("%.1f", *data.Bandwidth)
	}
	modulation := "Unknown"
	if data.ModulationType != nil && *data.ModulationType != "" {
		modulation = *data.ModulationType
	}

	return fmt.Sprintf(`You are a radio spectrum analysis expert. Judge whether the following measurement is an anomalous signal.

Observed data:
- Location: %s
- Frequency: %.2f MHz
- Signal power: %.2f dBm
- Bandwidth: %s MHz
- Modulation: %s
- Measured at: %s

Reference for normal signals:
1. LTE: 1800 MHz band, -70 dBm, 10 MHz bandwidth
2. Wi-Fi: 2400 MHz band, -50 dBm, 20 MHz bandwidth
3. FM Radio: 88-108 MHz, -40 dBm
4. TV: 500-600 MHz, -60 dBm
5. 5G: 3500 MHz band, -65 dBm, 100 MHz bandwidth

Anomaly categories:
- Jamming: signal 30 dBm or more above the normal level
- Spike: sudden power increase of 40 dBm or more
- Illegal Broadcast: transmission on an unauthorized frequency band
- Unknown: any other unrecognized anomalous pattern

Respond with ONLY this JSON format:
{
  "is_anomaly": true or false,
  "anomaly_type": "Jamming" | "Spike" | "Illegal Broadcast" | "Unknown" | null,
  "confidence_score": confidence between 0.0 and 1.0,
  "reasoning": "one or two concise sentences explaining the verdict"
}`,
		data.LocationID,
		data.Frequency,
		data.Power,
		bandwidth,
		modulation,
		data.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
	)
}

// rawAnalysis mirrors AIAnalysis with pointer fields so missing or ill-typed
// keys are detectable after unmarshalling.
type rawAnalysis struct {
	IsAnomaly       *bool    `json:"is_anomaly"`
	AnomalyType     *string  `json:"anomaly_type"`
	ConfidenceScore *float64 `json:"confidence_score"`
	Reasoning       *string  `json:"reasoning"`
}

// ParseAnalysisResponse extracts and validates the JSON verdict embedded in
// the model's free-form reply. The JSON object is taken from the first '{' to
// the last '}' in the text.
func ParseAnalysisResponse(text string) (*AIAnalysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, errors.New("no JSON object found in model response")
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON in model response: %w", err)
	}
	if raw.IsAnomaly == nil || raw.ConfidenceScore == nil || raw.Reasoning == nil {
		return nil, errors.New("model response is missing required fields")
	}

	analysis := &AIAnalysis{
		IsAnomaly:       *raw.IsAnomaly,
		AnomalyType:     raw.AnomalyType,
		ConfidenceScore: *raw.ConfidenceScore,
		Reasoning:       *raw.Reasoning,
	}
	normalizeAnalysis(analysis)
	return analysis, nil
}

// UnavailableAnalyzer stands in when no inference backend is configured. Every
// call fails, which Classify converts into the fail-open default, so a missing
// API key degrades classification without taking the process down.
type UnavailableAnalyzer struct {
	Reason string
}

func (u *UnavailableAnalyzer) Analyze(ctx context.Context, data *models.SpectrumData) (*AIAnalysis, error) {
	return nil, fmt.Errorf("analyzer unavailable: %s", u.Reason)
}
