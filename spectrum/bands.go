package spectrum

// Display labels for the fixed frequency band partition used by the
// statistics queries. Every frequency falls into exactly one band.
const (
	BandFMRadio = "FM Radio (88-108 MHz)"
	BandTV      = "TV (500-600 MHz)"
	BandLTE     = "LTE (1800 MHz)"
	BandWiFi    = "Wi-Fi (2.4 GHz)"
	Band5G      = "5G (3.5 GHz)"
	BandOther   = "Other"
)

// FrequencyBand maps a frequency in MHz onto its display band. Boundaries are
// half-open [min, max); anything unmatched lands in Other.
func FrequencyBand(freqMHz float64) string {
	switch {
	case freqMHz < 100:
		return BandFMRadio
	case freqMHz >= 500 && freqMHz < 700:
		return BandTV
	case freqMHz >= 1700 && freqMHz < 1900:
		return BandLTE
	case freqMHz >= 2300 && freqMHz < 2500:
		return BandWiFi
	case freqMHz >= 3400 && freqMHz < 3600:
		return Band5G
	default:
		return BandOther
	}
}
