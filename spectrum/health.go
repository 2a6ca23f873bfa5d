package spectrum

import (
	"math"
	"time"
)

// Query windows shared by the statistics queries and the history endpoint.
const (
	StatsWindow   = 24 * time.Hour
	HistoryWindow = 7 * 24 * time.Hour

	// History matches measurements within +-10 MHz of the anomalous frequency
	// and returns at most 50 samples.
	HistoryBandwidthMHz = 10.0
	HistoryLimit        = 50
)

// HourBucketFormat renders an hourly bucket key, always in UTC.
const HourBucketFormat = "2006-01-02 15:00:00"

// HealthScore computes the 0-100 health score for a set of measurements:
// 100 - anomaly_rate * 100, rounded to the nearest integer. An empty window
// scores 100. The result is clamped so a malformed count can never push the
// score outside [0, 100].
func HealthScore(totalCount, anomalyCount int) int {
	if totalCount <= 0 {
		return 100
	}
	rate := float64(anomalyCount) / float64(totalCount)
	score := int(math.Round(100 - rate*100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// HourBucket truncates a timestamp to its hourly bucket in UTC.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// FormatHourBucket renders the bucket key used by the timeline query.
func FormatHourBucket(t time.Time) string {
	return HourBucket(t).Format(HourBucketFormat)
}
