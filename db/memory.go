package db

import (
	"sort"
	"strings"
	"sync"
	"time"

	"spectrum-monitor/models"
	"spectrum-monitor/spectrum"
)

// MemoryClient keeps every row in process memory behind a single RWMutex.
// It shares the process lifecycle and guarantees nothing across restarts;
// it exists for serverless-style deployments and for tests.
type MemoryClient struct {
	mu sync.RWMutex

	locations       []models.Location
	spectrumData    []models.SpectrumData
	analysisResults []models.AnalysisResult

	nextSpectrumID int64
	nextAnalysisID int64
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		nextSpectrumID: 1,
		nextAnalysisID: 1,
	}
}

func (c *MemoryClient) Close() error {
	return nil
}

func (c *MemoryClient) SeedLocations(locations []models.Location) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, loc := range locations {
		if c.findLocation(loc.ID) == nil {
			c.locations = append(c.locations, loc)
		}
	}
	return nil
}

// findLocation is called with the lock held.
func (c *MemoryClient) findLocation(id string) *models.Location {
	for i := range c.locations {
		if c.locations[i].ID == id {
			return &c.locations[i]
		}
	}
	return nil
}

// findAnalysisFor is called with the lock held.
func (c *MemoryClient) findAnalysisFor(spectrumDataID int64) *models.AnalysisResult {
	for i := range c.analysisResults {
		if c.analysisResults[i].SpectrumDataID == spectrumDataID {
			return &c.analysisResults[i]
		}
	}
	return nil
}

func (c *MemoryClient) GetLocations() ([]models.Location, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locations := make([]models.Location, len(c.locations))
	copy(locations, c.locations)
	sort.Slice(locations, func(i, j int) bool {
		if locations[i].Region != locations[j].Region {
			return locations[i].Region < locations[j].Region
		}
		return locations[i].Name < locations[j].Name
	})
	return locations, nil
}

func (c *MemoryClient) GetLocation(id string) (*models.Location, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if loc := c.findLocation(id); loc != nil {
		found := *loc
		return &found, nil
	}
	return nil, ErrNotFound
}

func (c *MemoryClient) InsertSpectrumData(data *models.SpectrumData) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data.ID = c.nextSpectrumID
	c.nextSpectrumID++
	data.Timestamp = data.Timestamp.UTC().Truncate(time.Second)
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	c.spectrumData = append(c.spectrumData, *data)
	return data.ID, nil
}

func (c *MemoryClient) GetSpectrumDataByID(id int64) (*models.SpectrumData, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.spectrumData {
		if c.spectrumData[i].ID == id {
			found := c.spectrumData[i]
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (c *MemoryClient) GetSpectrumData(locationID string, limit int, includeAnalysis bool) ([]models.SpectrumDataWithLocation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []models.SpectrumDataWithLocation
	for i := range c.spectrumData {
		data := c.spectrumData[i]
		if locationID != "" && data.LocationID != locationID {
			continue
		}
		loc := c.findLocation(data.LocationID)
		if loc == nil {
			continue
		}
		row := models.SpectrumDataWithLocation{
			SpectrumData: data,
			LocationName: loc.Name,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			Region:       loc.Region,
		}
		if includeAnalysis {
			if analysis := c.findAnalysisFor(data.ID); analysis != nil {
				attached := *analysis
				row.Analysis = &attached
			}
		}
		results = append(results, row)
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].Timestamp.After(results[j].Timestamp)
		}
		return results[i].ID > results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (c *MemoryClient) GetUnanalyzedSpectrumData() ([]models.SpectrumData, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []models.SpectrumData
	for i := range c.spectrumData {
		if c.findAnalysisFor(c.spectrumData[i].ID) == nil {
			results = append(results, c.spectrumData[i])
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (c *MemoryClient) InsertAnalysisResult(result *models.AnalysisResult) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := false
	for i := range c.spectrumData {
		if c.spectrumData[i].ID == result.SpectrumDataID {
			found = true
			break
		}
	}
	if !found {
		return 0, ErrNotFound
	}
	if c.findAnalysisFor(result.SpectrumDataID) != nil {
		return 0, ErrDuplicateAnalysis
	}

	result.ID = c.nextAnalysisID
	c.nextAnalysisID++
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = time.Now().UTC()
	}
	result.AnalyzedAt = result.AnalyzedAt.UTC().Truncate(time.Second)
	c.analysisResults = append(c.analysisResults, *result)
	return result.ID, nil
}

func (c *MemoryClient) GetAnomalies(locationID string, limit int) ([]models.AnomalyRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var anomalies []models.AnomalyRecord
	for i := range c.analysisResults {
		analysis := c.analysisResults[i]
		if !analysis.IsAnomaly {
			continue
		}
		record := c.buildAnomalyRecord(&analysis)
		if record == nil {
			continue
		}
		if locationID != "" && record.LocationID != locationID {
			continue
		}
		anomalies = append(anomalies, *record)
	}

	sort.Slice(anomalies, func(i, j int) bool {
		if !anomalies[i].Timestamp.Equal(anomalies[j].Timestamp) {
			return anomalies[i].Timestamp.After(anomalies[j].Timestamp)
		}
		return anomalies[i].AnalysisID > anomalies[j].AnalysisID
	})
	if limit > 0 && len(anomalies) > limit {
		anomalies = anomalies[:limit]
	}
	return anomalies, nil
}

// buildAnomalyRecord is called with the lock held.
func (c *MemoryClient) buildAnomalyRecord(analysis *models.AnalysisResult) *models.AnomalyRecord {
	var data *models.SpectrumData
	for i := range c.spectrumData {
		if c.spectrumData[i].ID == analysis.SpectrumDataID {
			data = &c.spectrumData[i]
			break
		}
	}
	if data == nil {
		return nil
	}
	loc := c.findLocation(data.LocationID)
	if loc == nil {
		return nil
	}
	return &models.AnomalyRecord{
		AnalysisID:      analysis.ID,
		SpectrumDataID:  analysis.SpectrumDataID,
		IsAnomaly:       analysis.IsAnomaly,
		AnomalyType:     analysis.AnomalyType,
		ConfidenceScore: analysis.ConfidenceScore,
		Reasoning:       analysis.Reasoning,
		AnalyzedAt:      analysis.AnalyzedAt,
		Timestamp:       data.Timestamp,
		Frequency:       data.Frequency,
		Power:           data.Power,
		Bandwidth:       data.Bandwidth,
		ModulationType:  data.ModulationType,
		LocationID:      loc.ID,
		LocationName:    loc.Name,
		Latitude:        loc.Latitude,
		Longitude:       loc.Longitude,
		Region:          loc.Region,
	}
}

func (c *MemoryClient) GetAnomalyByID(analysisID int64) (*models.AnomalyRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.analysisResults {
		if c.analysisResults[i].ID == analysisID {
			if record := c.buildAnomalyRecord(&c.analysisResults[i]); record != nil {
				return record, nil
			}
			return nil, ErrNotFound
		}
	}
	return nil, ErrNotFound
}

func (c *MemoryClient) GetAnomalyHistory(analysisID int64, now time.Time) ([]models.HistoryPoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var anchor *models.SpectrumData
	for i := range c.analysisResults {
		if c.analysisResults[i].ID == analysisID {
			for j := range c.spectrumData {
				if c.spectrumData[j].ID == c.analysisResults[i].SpectrumDataID {
					anchor = &c.spectrumData[j]
					break
				}
			}
			break
		}
	}
	if anchor == nil {
		return nil, ErrNotFound
	}

	since := now.Add(-spectrum.HistoryWindow)
	var points []models.HistoryPoint
	for i := range c.spectrumData {
		data := c.spectrumData[i]
		if data.LocationID != anchor.LocationID {
			continue
		}
		if data.Frequency < anchor.Frequency-spectrum.HistoryBandwidthMHz ||
			data.Frequency > anchor.Frequency+spectrum.HistoryBandwidthMHz {
			continue
		}
		if data.Timestamp.Before(since) {
			continue
		}
		isAnomaly := false
		if analysis := c.findAnalysisFor(data.ID); analysis != nil {
			isAnomaly = analysis.IsAnomaly
		}
		points = append(points, models.HistoryPoint{
			Timestamp: data.Timestamp,
			Frequency: data.Frequency,
			Power:     data.Power,
			IsAnomaly: isAnomaly,
		})
	}

	// Keep only the newest samples, then serve oldest first.
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.After(points[j].Timestamp) })
	if len(points) > spectrum.HistoryLimit {
		points = points[:spectrum.HistoryLimit]
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

func (c *MemoryClient) GetLocationStats(now time.Time) ([]models.LocationHealth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	since := now.Add(-spectrum.StatsWindow)
	var stats []models.LocationHealth
	for _, loc := range c.locations {
		lh := models.LocationHealth{Location: loc}
		for i := range c.spectrumData {
			data := c.spectrumData[i]
			if data.LocationID != loc.ID || data.Timestamp.Before(since) {
				continue
			}
			lh.TotalChecks++
			if lh.LastCheck == nil || data.Timestamp.After(*lh.LastCheck) {
				ts := data.Timestamp
				lh.LastCheck = &ts
			}
			if analysis := c.findAnalysisFor(data.ID); analysis != nil && analysis.IsAnomaly {
				lh.AnomalyCount++
			}
		}
		lh.HealthScore = spectrum.HealthScore(lh.TotalChecks, lh.AnomalyCount)
		stats = append(stats, lh)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Region != stats[j].Region {
			return stats[i].Region < stats[j].Region
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

func (c *MemoryClient) GetTimelineStats(now time.Time) ([]models.TimelineBucket, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	since := now.Add(-spectrum.StatsWindow)
	buckets := make(map[string]*models.TimelineBucket)
	for i := range c.spectrumData {
		data := c.spectrumData[i]
		if data.Timestamp.Before(since) {
			continue
		}
		hour := spectrum.FormatHourBucket(data.Timestamp)
		bucket, ok := buckets[hour]
		if !ok {
			bucket = &models.TimelineBucket{Hour: hour}
			buckets[hour] = bucket
		}
		bucket.TotalCount++
		if analysis := c.findAnalysisFor(data.ID); analysis != nil && analysis.IsAnomaly {
			bucket.AnomalyCount++
		}
	}

	results := make([]models.TimelineBucket, 0, len(buckets))
	for _, bucket := range buckets {
		results = append(results, *bucket)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Hour < results[j].Hour })
	return results, nil
}

func (c *MemoryClient) GetFrequencyBandStats(now time.Time) ([]models.BandStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type bandAccum struct {
		stats    models.BandStats
		powerSum float64
	}

	since := now.Add(-spectrum.StatsWindow)
	bands := make(map[string]*bandAccum)
	for i := range c.spectrumData {
		data := c.spectrumData[i]
		if data.Timestamp.Before(since) {
			continue
		}
		band := spectrum.FrequencyBand(data.Frequency)
		accum, ok := bands[band]
		if !ok {
			accum = &bandAccum{stats: models.BandStats{Band: band}}
			bands[band] = accum
		}
		accum.stats.TotalCount++
		accum.powerSum += data.Power
		if analysis := c.findAnalysisFor(data.ID); analysis != nil && analysis.IsAnomaly {
			accum.stats.AnomalyCount++
		}
	}

	results := make([]models.BandStats, 0, len(bands))
	for _, accum := range bands {
		accum.stats.AvgPower = accum.powerSum / float64(accum.stats.TotalCount)
		results = append(results, accum.stats)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalCount != results[j].TotalCount {
			return results[i].TotalCount > results[j].TotalCount
		}
		return results[i].Band < results[j].Band
	})
	return results, nil
}

func (c *MemoryClient) GetRegionStats(now time.Time) ([]models.RegionStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	since := now.Add(-spectrum.StatsWindow)
	regions := make(map[string]*models.RegionStats)
	for i := range c.spectrumData {
		data := c.spectrumData[i]
		if data.Timestamp.Before(since) {
			continue
		}
		loc := c.findLocation(data.LocationID)
		if loc == nil {
			continue
		}
		rs, ok := regions[loc.Region]
		if !ok {
			rs = &models.RegionStats{Region: loc.Region}
			regions[loc.Region] = rs
		}
		rs.TotalCount++
		if analysis := c.findAnalysisFor(data.ID); analysis != nil && analysis.IsAnomaly {
			rs.AnomalyCount++
		}
	}

	results := make([]models.RegionStats, 0, len(regions))
	for _, rs := range regions {
		rs.HealthScore = spectrum.HealthScore(rs.TotalCount, rs.AnomalyCount)
		results = append(results, *rs)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].AnomalyCount != results[j].AnomalyCount {
			return results[i].AnomalyCount > results[j].AnomalyCount
		}
		return results[i].Region < results[j].Region
	})
	return results, nil
}

func (c *MemoryClient) GetAnomalyTypeStats(now time.Time) ([]models.AnomalyTypeStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type typeAccum struct {
		stats         models.AnomalyTypeStats
		confidenceSum float64
	}

	since := now.Add(-spectrum.StatsWindow)
	types := make(map[string]*typeAccum)
	for i := range c.analysisResults {
		analysis := c.analysisResults[i]
		if !analysis.IsAnomaly || analysis.AnalyzedAt.Before(since) {
			continue
		}
		name := spectrum.AnomalyUnknown
		if analysis.AnomalyType != nil && strings.TrimSpace(*analysis.AnomalyType) != "" {
			name = *analysis.AnomalyType
		}
		accum, ok := types[name]
		if !ok {
			accum = &typeAccum{stats: models.AnomalyTypeStats{Type: name}}
			types[name] = accum
		}
		accum.stats.Count++
		accum.confidenceSum += analysis.ConfidenceScore
	}

	results := make([]models.AnomalyTypeStats, 0, len(types))
	for _, accum := range types {
		accum.stats.AvgConfidence = accum.confidenceSum / float64(accum.stats.Count)
		results = append(results, accum.stats)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].Type < results[j].Type
	})
	return results, nil
}
