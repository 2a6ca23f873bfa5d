package spectrum

import "testing"

func TestFrequencyBand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		freq float64
		want string
	}{
		{freq: 95, want: BandFMRadio},
		{freq: 99.9, want: BandFMRadio},
		{freq: 100.0, want: BandOther},
		{freq: 499.9, want: BandOther},
		{freq: 500.0, want: BandTV},
		{freq: 699.9, want: BandTV},
		{freq: 700.0, want: BandOther},
		{freq: 1700.0, want: BandLTE},
		{freq: 1800, want: BandLTE},
		{freq: 1899.9, want: BandLTE},
		{freq: 1900.0, want: BandOther},
		{freq: 2300.0, want: BandWiFi},
		{freq: 2400, want: BandWiFi},
		{freq: 2499.9, want: BandWiFi},
		{freq: 2500.0, want: BandOther},
		{freq: 3400.0, want: Band5G},
		{freq: 3500, want: Band5G},
		{freq: 3599.9, want: Band5G},
		{freq: 3600.0, want: BandOther},
		{freq: 0, want: BandFMRadio},
		{freq: -10, want: BandFMRadio},
	}

	for _, tc := range cases {
		if got := FrequencyBand(tc.freq); got != tc.want {
			t.Errorf("FrequencyBand(%.1f) = %q, want %q", tc.freq, got, tc.want)
		}
	}
}
