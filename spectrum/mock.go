package spectrum

import (
	"math/rand"
	"time"

	"spectrum-monitor/models"
)

// SignalPreset describes the expected shape of one reference signal class.
type SignalPreset struct {
	Name      string
	BaseFreq  float64 // MHz
	Power     float64 // dBm
	Bandwidth float64 // MHz
}

// SignalPresets are the five reference classes used for synthetic data and in
// the analysis rubric.
var SignalPresets = []SignalPreset{
	{Name: "LTE", BaseFreq: 1800, Power: -70, Bandwidth: 10},
	{Name: "WIFI", BaseFreq: 2400, Power: -50, Bandwidth: 20},
	{Name: "FM_RADIO", BaseFreq: 95, Power: -40, Bandwidth: 0.2},
	{Name: "TV", BaseFreq: 500, Power: -60, Bandwidth: 6},
	{Name: "5G", BaseFreq: 3500, Power: -65, Bandwidth: 100},
}

// AnomalyPreset is a power offset applied on top of a normal signal to fake a
// specific anomaly class.
type AnomalyPreset struct {
	Name          string
	PowerIncrease float64 // dBm
}

// AnomalyPresets mirror the qualitative trigger conditions in the rubric.
var AnomalyPresets = []AnomalyPreset{
	{Name: "JAMMING", PowerIncrease: 30},
	{Name: "SPIKE", PowerIncrease: 40},
	{Name: "ILLEGAL_BROADCAST", PowerIncrease: 20},
}

// GenerateNormalSignal synthesises a plausible measurement for one station:
// a random reference class with small frequency and power jitter.
func GenerateNormalSignal(rng *rand.Rand, locationID string, at time.Time) models.SpectrumData {
	preset := SignalPresets[rng.Intn(len(SignalPresets))]
	bandwidth := preset.Bandwidth
	modulation := preset.Name

	return models.SpectrumData{
		Timestamp:      at,
		Frequency:      preset.BaseFreq + randomFloat(rng, -5, 5),
		Power:          preset.Power + randomFloat(rng, -10, 10),
		LocationID:     locationID,
		Bandwidth:      &bandwidth,
		ModulationType: &modulation,
	}
}

// GenerateAnomalySignal synthesises an anomalous measurement: a normal signal
// boosted by one of the anomaly power offsets, with the modulation tagged so
// the source of the fault is visible in raw listings.
func GenerateAnomalySignal(rng *rand.Rand, locationID string, at time.Time) models.SpectrumData {
	anomaly := AnomalyPresets[rng.Intn(len(AnomalyPresets))]
	data := GenerateNormalSignal(rng, locationID, at)
	data.Power += anomaly.PowerIncrease
	tagged := *data.ModulationType + "_ANOMALY"
	data.ModulationType = &tagged
	return data
}

func randomFloat(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}
