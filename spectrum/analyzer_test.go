package spectrum

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"spectrum-monitor/models"
)

type stubAnalyzer struct {
	analysis *AIAnalysis
	err      error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, data *models.SpectrumData) (*AIAnalysis, error) {
	return s.analysis, s.err
}

func sampleMeasurement() *models.SpectrumData {
	return &models.SpectrumData{
		ID:         1,
		Timestamp:  time.Date(2025, 3, 14, 5, 42, 0, 0, time.UTC),
		Frequency:  1800,
		Power:      -40,
		LocationID: "seoul-01",
	}
}

func strPtr(s string) *string { return &s }

func TestClassifyFailsOpenOnError(t *testing.T) {
	t.Parallel()

	analyzer := &stubAnalyzer{err: errors.New("upstream timeout")}
	got := Classify(context.Background(), analyzer, sampleMeasurement())

	if got.IsAnomaly {
		t.Error("fallback verdict must not be anomalous")
	}
	if got.AnomalyType != nil {
		t.Errorf("fallback verdict must have nil anomaly type, got %q", *got.AnomalyType)
	}
	if got.ConfidenceScore != 0.5 {
		t.Errorf("fallback confidence = %v, want 0.5", got.ConfidenceScore)
	}
	if got.Reasoning != FallbackReasoning {
		t.Errorf("fallback reasoning = %q, want %q", got.Reasoning, FallbackReasoning)
	}
}

func TestClassifyFailsOpenOnNilResult(t *testing.T) {
	t.Parallel()

	got := Classify(context.Background(), &stubAnalyzer{}, sampleMeasurement())
	if got.IsAnomaly || got.Reasoning != FallbackReasoning {
		t.Errorf("expected fallback verdict, got %+v", got)
	}
}

func TestClassifyNormalizesVerdict(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name           string
		in             *AIAnalysis
		wantType       *string
		wantConfidence float64
	}{
		{
			name:           "type cleared for non-anomaly",
			in:             &AIAnalysis{IsAnomaly: false, AnomalyType: strPtr(AnomalyJamming), ConfidenceScore: 0.9, Reasoning: "ok"},
			wantType:       nil,
			wantConfidence: 0.9,
		},
		{
			name:           "missing type defaults to Unknown",
			in:             &AIAnalysis{IsAnomaly: true, ConfidenceScore: 0.8, Reasoning: "odd"},
			wantType:       strPtr(AnomalyUnknown),
			wantConfidence: 0.8,
		},
		{
			name:           "blank type defaults to Unknown",
			in:             &AIAnalysis{IsAnomaly: true, AnomalyType: strPtr("  "), ConfidenceScore: 0.8, Reasoning: "odd"},
			wantType:       strPtr(AnomalyUnknown),
			wantConfidence: 0.8,
		},
		{
			name:           "confidence clamped high",
			in:             &AIAnalysis{IsAnomaly: true, AnomalyType: strPtr(AnomalySpike), ConfidenceScore: 1.7, Reasoning: "spike"},
			wantType:       strPtr(AnomalySpike),
			wantConfidence: 1,
		},
		{
			name:           "confidence clamped low",
			in:             &AIAnalysis{IsAnomaly: false, ConfidenceScore: -0.3, Reasoning: "fine"},
			wantType:       nil,
			wantConfidence: 0,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(context.Background(), &stubAnalyzer{analysis: tc.in}, sampleMeasurement())
			if (got.AnomalyType == nil) != (tc.wantType == nil) {
				t.Fatalf("anomaly type presence = %v, want %v", got.AnomalyType != nil, tc.wantType != nil)
			}
			if tc.wantType != nil && *got.AnomalyType != *tc.wantType {
				t.Errorf("anomaly type = %q, want %q", *got.AnomalyType, *tc.wantType)
			}
			if got.ConfidenceScore != tc.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.ConfidenceScore, tc.wantConfidence)
			}
		})
	}
}

func TestParseAnalysisResponse(t *testing.T) {
	t.Parallel()

	t.Run("verdict embedded in prose", func(t *testing.T) {
		t.Parallel()

		text := "Here is my verdict:\n```json\n" +
			`{"is_anomaly": true, "anomaly_type": "Jamming", "confidence_score": 0.92, "reasoning": "Power is 30 dBm above the LTE reference."}` +
			"\n```"
		got, err := ParseAnalysisResponse(text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.IsAnomaly {
			t.Error("expected anomaly verdict")
		}
		if got.AnomalyType == nil || *got.AnomalyType != AnomalyJamming {
			t.Errorf("anomaly type = %v, want %q", got.AnomalyType, AnomalyJamming)
		}
		if got.ConfidenceScore != 0.92 {
			t.Errorf("confidence = %v, want 0.92", got.ConfidenceScore)
		}
	})

	t.Run("null anomaly type accepted", func(t *testing.T) {
		t.Parallel()

		got, err := ParseAnalysisResponse(`{"is_anomaly": false, "anomaly_type": null, "confidence_score": 0.85, "reasoning": "Within the Wi-Fi reference."}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.IsAnomaly || got.AnomalyType != nil {
			t.Errorf("expected normal verdict with nil type, got %+v", got)
		}
	})

	t.Run("failures", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			name string
			text string
		}{
			{name: "no JSON at all", text: "the signal looks fine to me"},
			{name: "empty string", text: ""},
			{name: "malformed JSON", text: `{"is_anomaly": true, `},
			{name: "missing is_anomaly", text: `{"confidence_score": 0.5, "reasoning": "x"}`},
			{name: "missing confidence", text: `{"is_anomaly": false, "reasoning": "x"}`},
			{name: "missing reasoning", text: `{"is_anomaly": false, "confidence_score": 0.5}`},
			{name: "ill-typed is_anomaly", text: `{"is_anomaly": "yes", "confidence_score": 0.5, "reasoning": "x"}`},
			{name: "ill-typed confidence", text: `{"is_anomaly": true, "confidence_score": "high", "reasoning": "x"}`},
		}
		for _, tc := range cases {
			if _, err := ParseAnalysisResponse(tc.text); err == nil {
				t.Errorf("%s: expected error, got nil", tc.name)
			}
		}
	})
}

func TestBuildAnalysisPrompt(t *testing.T) {
	t.Parallel()

	data := sampleMeasurement()
	prompt := BuildAnalysisPrompt(data)

	for _, want := range []string{
		"seoul-01",
		"1800.00 MHz",
		"-40.00 dBm",
		"Bandwidth: N/A MHz",
		"Modulation: Unknown",
		"Jamming",
		"Spike",
		"Illegal Broadcast",
		"ONLY this JSON format",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	bandwidth := 10.0
	modulation := "LTE"
	data.Bandwidth = &bandwidth
	data.ModulationType = &modulation
	prompt = BuildAnalysisPrompt(data)
	if !strings.Contains(prompt, "Bandwidth: 10.0 MHz") {
		t.Error("prompt missing formatted bandwidth")
	}
	if !strings.Contains(prompt, "Modulation: LTE") {
		t.Error("prompt missing modulation type")
	}
}

func TestUnavailableAnalyzer(t *testing.T) {
	t.Parallel()

	analyzer := &UnavailableAnalyzer{Reason: "GEMINI_API_KEY is not set"}
	if _, err := analyzer.Analyze(context.Background(), sampleMeasurement()); err == nil {
		t.Fatal("expected error from unavailable analyzer")
	}

	got := Classify(context.Background(), analyzer, sampleMeasurement())
	if got.IsAnomaly || got.Reasoning != FallbackReasoning {
		t.Errorf("expected fallback verdict, got %+v", got)
	}
}

func TestGenerateSignals(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	at := time.Date(2025, 3, 14, 5, 0, 0, 0, time.UTC)

	for i := 0; i < 100; i++ {
		data := GenerateNormalSignal(rng, "busan-01", at)
		if data.LocationID != "busan-01" {
			t.Fatalf("location = %q", data.LocationID)
		}
		if data.Bandwidth == nil || data.ModulationType == nil {
			t.Fatal("preset fields missing")
		}
		if data.Frequency <= 0 {
			t.Fatalf("frequency = %v", data.Frequency)
		}
		if !data.Timestamp.Equal(at) {
			t.Fatalf("timestamp = %v, want %v", data.Timestamp, at)
		}
	}

	for i := 0; i < 100; i++ {
		anomaly := GenerateAnomalySignal(rng, "busan-01", at)
		if anomaly.ModulationType == nil || !strings.HasSuffix(*anomaly.ModulationType, "_ANOMALY") {
			t.Fatalf("anomaly modulation tag missing: %v", anomaly.ModulationType)
		}
		// Smallest boost is +20 dBm and the weakest preset is -70 dBm with
		// -10 dBm jitter, so no anomalous sample can dip below -60 dBm.
		if anomaly.Power < -60 {
			t.Fatalf("anomaly power implausibly low: %v", anomaly.Power)
		}
	}
}
