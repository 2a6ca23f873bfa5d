package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"spectrum-monitor/db"
	"spectrum-monitor/models"
	"spectrum-monitor/spectrum"
)

// Pause between classifier calls so batch runs stay under the API rate limit.
const callPause = time.Second

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	store, err := db.NewDBClient()
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	var analyzer spectrum.Analyzer
	analyzer, err = spectrum.NewGeminiAnalyzer(ctx)
	if err != nil {
		log.Printf("WARNING: Gemini analyzer unavailable (%v); every result will be the fallback verdict", err)
		analyzer = &spectrum.UnavailableAnalyzer{Reason: err.Error()}
	}

	pending, err := store.GetUnanalyzedSpectrumData()
	if err != nil {
		log.Fatalf("failed to load unanalyzed measurements: %v", err)
	}
	if len(pending) == 0 {
		log.Println("nothing to analyze")
		return
	}
	log.Printf("analyzing %d measurements", len(pending))

	analyzed := 0
	anomalies := 0
	failures := 0
	for i, data := range pending {
		analysis := spectrum.Classify(ctx, analyzer, &data)

		result := &models.AnalysisResult{
			SpectrumDataID:  data.ID,
			IsAnomaly:       analysis.IsAnomaly,
			AnomalyType:     analysis.AnomalyType,
			ConfidenceScore: analysis.ConfidenceScore,
			Reasoning:       analysis.Reasoning,
			AnalyzedAt:      time.Now().UTC(),
		}
		if _, err := store.InsertAnalysisResult(result); err != nil {
			log.Printf("[%d/%d] id=%d: failed to store result: %v", i+1, len(pending), data.ID, err)
			failures++
			continue
		}

		analyzed++
		if result.IsAnomaly {
			anomalies++
			anomalyType := spectrum.AnomalyUnknown
			if result.AnomalyType != nil {
				anomalyType = *result.AnomalyType
			}
			log.Printf("[%d/%d] id=%d: ANOMALY %s (confidence %.2f)",
				i+1, len(pending), data.ID, anomalyType, result.ConfidenceScore)
		} else {
			log.Printf("[%d/%d] id=%d: normal (confidence %.2f)",
				i+1, len(pending), data.ID, result.ConfidenceScore)
		}

		if i < len(pending)-1 {
			time.Sleep(callPause)
		}
	}

	log.Printf("done: %d analyzed, %d anomalies, %d failures", analyzed, anomalies, failures)
}
