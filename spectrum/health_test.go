package spectrum

import (
	"testing"
	"time"
)

func TestHealthScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		total     int
		anomalies int
		want      int
	}{
		{name: "typical", total: 1000, anomalies: 50, want: 95},
		{name: "empty window", total: 0, anomalies: 0, want: 100},
		{name: "no anomalies", total: 200, anomalies: 0, want: 100},
		{name: "all anomalous", total: 10, anomalies: 10, want: 0},
		{name: "rounding up", total: 3, anomalies: 1, want: 67},
		{name: "clamped below zero", total: 10, anomalies: 25, want: 0},
		{name: "negative total treated as empty", total: -1, anomalies: 5, want: 100},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HealthScore(tc.total, tc.anomalies); got != tc.want {
				t.Errorf("HealthScore(%d, %d) = %d, want %d", tc.total, tc.anomalies, got, tc.want)
			}
		})
	}
}

func TestHourBucket(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 14, 5, 42, 31, 500, time.UTC)
	got := HourBucket(at)
	want := time.Date(2025, 3, 14, 5, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("HourBucket(%v) = %v, want %v", at, got, want)
	}

	if key := FormatHourBucket(at); key != "2025-03-14 05:00:00" {
		t.Errorf("FormatHourBucket(%v) = %q, want %q", at, key, "2025-03-14 05:00:00")
	}
}

func TestHourBucketConvertsToUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("KST", 9*60*60)
	at := time.Date(2025, 3, 14, 14, 42, 0, 0, loc) // 05:42 UTC
	if key := FormatHourBucket(at); key != "2025-03-14 05:00:00" {
		t.Errorf("FormatHourBucket(%v) = %q, want %q", at, key, "2025-03-14 05:00:00")
	}
}
