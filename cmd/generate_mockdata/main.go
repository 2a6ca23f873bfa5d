package main

import (
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"

	"spectrum-monitor/db"
	"spectrum-monitor/spectrum"
)

const anomalyRate = 0.15

func main() {
	count := flag.Int("count", 50, "Number of synthetic measurements to insert")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	flag.Parse()

	_ = godotenv.Load()

	if *count <= 0 {
		log.Fatal("count must be positive")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	store, err := db.NewDBClient()
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	locations := db.DefaultLocations()
	if err := store.SeedLocations(locations); err != nil {
		log.Fatalf("failed to seed locations: %v", err)
	}

	now := time.Now().UTC()
	anomalies := 0
	for i := 0; i < *count; i++ {
		location := locations[rng.Intn(len(locations))]
		// Spread timestamps over the trailing day so the dashboard has a
		// populated timeline straight away.
		at := now.Add(-time.Duration(rng.Int63n(int64(24 * time.Hour))))

		data := spectrum.GenerateNormalSignal(rng, location.ID, at)
		isAnomaly := rng.Float64() < anomalyRate
		if isAnomaly {
			data = spectrum.GenerateAnomalySignal(rng, location.ID, at)
			anomalies++
		}

		id, err := store.InsertSpectrumData(&data)
		if err != nil {
			log.Fatalf("failed to insert measurement %d: %v", i+1, err)
		}
		log.Printf("inserted measurement %d (id=%d, location=%s, freq=%.1f MHz, power=%.1f dBm, anomaly=%v)",
			i+1, id, location.ID, data.Frequency, data.Power, isAnomaly)
	}

	log.Printf("done: %d measurements inserted (%d anomalous)", *count, anomalies)
}
