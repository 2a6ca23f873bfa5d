package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spectrum-monitor/models"
	"spectrum-monitor/spectrum"
)

const mongoOpTimeout = 10 * time.Second

type MongoClient struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoLocation struct {
	ID        string  `bson:"_id"`
	Name      string  `bson:"name"`
	Latitude  float64 `bson:"latitude"`
	Longitude float64 `bson:"longitude"`
	Region    string  `bson:"region"`
}

type mongoSpectrumData struct {
	ID             int64     `bson:"_id"`
	Timestamp      time.Time `bson:"timestamp"`
	Frequency      float64   `bson:"frequency"`
	Power          float64   `bson:"power"`
	LocationID     string    `bson:"location_id"`
	Bandwidth      *float64  `bson:"bandwidth,omitempty"`
	ModulationType *string   `bson:"modulation_type,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
}

type mongoAnalysisResult struct {
	ID              int64     `bson:"_id"`
	SpectrumDataID  int64     `bson:"spectrum_data_id"`
	IsAnomaly       bool      `bson:"is_anomaly"`
	AnomalyType     *string   `bson:"anomaly_type,omitempty"`
	ConfidenceScore float64   `bson:"confidence_score"`
	Reasoning       string    `bson:"reasoning"`
	AnalyzedAt      time.Time `bson:"analyzed_at"`
}

func NewMongoClient(uri, dbName string) (*MongoClient, error) {
	ctx, cancel := opCtx()
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	c := &MongoClient{client: client, db: client.Database(dbName)}
	if err := c.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), mongoOpTimeout)
}

func (c *MongoClient) ensureIndexes(ctx context.Context) error {
	spectrumIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "location_id", Value: 1}}},
	}
	if _, err := c.db.Collection("spectrum_data").Indexes().CreateMany(ctx, spectrumIndexes); err != nil {
		return fmt.Errorf("error creating spectrum_data indexes: %w", err)
	}

	analysisIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "spectrum_data_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "is_anomaly", Value: 1}}},
	}
	if _, err := c.db.Collection("analysis_results").Indexes().CreateMany(ctx, analysisIndexes); err != nil {
		return fmt.Errorf("error creating analysis_results indexes: %w", err)
	}
	return nil
}

func (c *MongoClient) Close() error {
	ctx, cancel := opCtx()
	defer cancel()
	return c.client.Disconnect(ctx)
}

// nextSequence implements auto-increment ids on top of a counters collection.
func (c *MongoClient) nextSequence(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := c.db.Collection("counters").FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("error generating sequence %s: %w", name, err)
	}
	return doc.Seq, nil
}

func (c *MongoClient) SeedLocations(locations []models.Location) error {
	ctx, cancel := opCtx()
	defer cancel()

	coll := c.db.Collection("locations")
	for _, loc := range locations {
		doc := mongoLocation{ID: loc.ID, Name: loc.Name, Latitude: loc.Latitude, Longitude: loc.Longitude, Region: loc.Region}
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": loc.ID},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("error seeding location %s: %w", loc.ID, err)
		}
	}
	return nil
}

func (c *MongoClient) GetLocations() ([]models.Location, error) {
	ctx, cancel := opCtx()
	defer cancel()

	cursor, err := c.db.Collection("locations").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "region", Value: 1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error querying locations: %w", err)
	}

	var docs []mongoLocation
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding locations: %w", err)
	}

	locations := make([]models.Location, 0, len(docs))
	for _, doc := range docs {
		locations = append(locations, doc.toModel())
	}
	return locations, nil
}

func (d mongoLocation) toModel() models.Location {
	return models.Location{ID: d.ID, Name: d.Name, Latitude: d.Latitude, Longitude: d.Longitude, Region: d.Region}
}

func (d mongoSpectrumData) toModel() models.SpectrumData {
	return models.SpectrumData{
		ID:             d.ID,
		Timestamp:      d.Timestamp.UTC(),
		Frequency:      d.Frequency,
		Power:          d.Power,
		LocationID:     d.LocationID,
		Bandwidth:      d.Bandwidth,
		ModulationType: d.ModulationType,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

func (d mongoAnalysisResult) toModel() models.AnalysisResult {
	return models.AnalysisResult{
		ID:              d.ID,
		SpectrumDataID:  d.SpectrumDataID,
		IsAnomaly:       d.IsAnomaly,
		AnomalyType:     d.AnomalyType,
		ConfidenceScore: d.ConfidenceScore,
		Reasoning:       d.Reasoning,
		AnalyzedAt:      d.AnalyzedAt.UTC(),
	}
}

func (c *MongoClient) GetLocation(id string) (*models.Location, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var doc mongoLocation
	err := c.db.Collection("locations").FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying location: %w", err)
	}
	loc := doc.toModel()
	return &loc, nil
}

func (c *MongoClient) InsertSpectrumData(data *models.SpectrumData) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	id, err := c.nextSequence(ctx, "spectrum_data")
	if err != nil {
		return 0, err
	}

	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	doc := mongoSpectrumData{
		ID:             id,
		Timestamp:      data.Timestamp.UTC().Truncate(time.Second),
		Frequency:      data.Frequency,
		Power:          data.Power,
		LocationID:     data.LocationID,
		Bandwidth:      data.Bandwidth,
		ModulationType: data.ModulationType,
		CreatedAt:      data.CreatedAt,
	}
	if _, err := c.db.Collection("spectrum_data").InsertOne(ctx, doc); err != nil {
		return 0, fmt.Errorf("error inserting spectrum data: %w", err)
	}
	data.ID = id
	data.Timestamp = doc.Timestamp
	return id, nil
}

func (c *MongoClient) GetSpectrumDataByID(id int64) (*models.SpectrumData, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var doc mongoSpectrumData
	err := c.db.Collection("spectrum_data").FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying spectrum data: %w", err)
	}
	data := doc.toModel()
	return &data, nil
}

func (c *MongoClient) GetSpectrumData(locationID string, limit int, includeAnalysis bool) ([]models.SpectrumDataWithLocation, error) {
	ctx, cancel := opCtx()
	defer cancel()

	filter := bson.M{}
	if locationID != "" {
		filter["location_id"] = locationID
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := c.db.Collection("spectrum_data").Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("error querying spectrum data: %w", err)
	}
	var docs []mongoSpectrumData
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding spectrum data: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	locationIndex, err := c.locationIndex(ctx)
	if err != nil {
		return nil, err
	}

	analysisIndex := map[int64]models.AnalysisResult{}
	if includeAnalysis {
		ids := make([]int64, 0, len(docs))
		for _, doc := range docs {
			ids = append(ids, doc.ID)
		}
		analysisIndex, err = c.analysisBySpectrumIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	results := make([]models.SpectrumDataWithLocation, 0, len(docs))
	for _, doc := range docs {
		loc, ok := locationIndex[doc.LocationID]
		if !ok {
			continue
		}
		row := models.SpectrumDataWithLocation{
			SpectrumData: doc.toModel(),
			LocationName: loc.Name,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			Region:       loc.Region,
		}
		if analysis, ok := analysisIndex[doc.ID]; ok {
			attached := analysis
			row.Analysis = &attached
		}
		results = append(results, row)
	}
	return results, nil
}

func (c *MongoClient) locationIndex(ctx context.Context) (map[string]models.Location, error) {
	cursor, err := c.db.Collection("locations").Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error querying locations: %w", err)
	}
	var docs []mongoLocation
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding locations: %w", err)
	}
	index := make(map[string]models.Location, len(docs))
	for _, doc := range docs {
		index[doc.ID] = doc.toModel()
	}
	return index, nil
}

func (c *MongoClient) analysisBySpectrumIDs(ctx context.Context, ids []int64) (map[int64]models.AnalysisResult, error) {
	cursor, err := c.db.Collection("analysis_results").Find(ctx, bson.M{"spectrum_data_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("error querying analysis results: %w", err)
	}
	var docs []mongoAnalysisResult
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding analysis results: %w", err)
	}
	index := make(map[int64]models.AnalysisResult, len(docs))
	for _, doc := range docs {
		index[doc.SpectrumDataID] = doc.toModel()
	}
	return index, nil
}

func (c *MongoClient) GetUnanalyzedSpectrumData() ([]models.SpectrumData, error) {
	ctx, cancel := opCtx()
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "analysis_results",
			"localField":   "_id",
			"foreignField": "spectrum_data_id",
			"as":           "analysis",
		}}},
		bson.D{{Key: "$match", Value: bson.M{"analysis": bson.M{"$size": 0}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := c.db.Collection("spectrum_data").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error querying unanalyzed spectrum data: %w", err)
	}
	var docs []mongoSpectrumData
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding spectrum data: %w", err)
	}

	results := make([]models.SpectrumData, 0, len(docs))
	for _, doc := range docs {
		results = append(results, doc.toModel())
	}
	return results, nil
}

func (c *MongoClient) InsertAnalysisResult(result *models.AnalysisResult) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	count, err := c.db.Collection("spectrum_data").CountDocuments(ctx, bson.M{"_id": result.SpectrumDataID})
	if err != nil {
		return 0, fmt.Errorf("error checking spectrum data: %w", err)
	}
	if count == 0 {
		return 0, ErrNotFound
	}

	id, err := c.nextSequence(ctx, "analysis_results")
	if err != nil {
		return 0, err
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = time.Now().UTC()
	}

	doc := mongoAnalysisResult{
		ID:              id,
		SpectrumDataID:  result.SpectrumDataID,
		IsAnomaly:       result.IsAnomaly,
		AnomalyType:     result.AnomalyType,
		ConfidenceScore: result.ConfidenceScore,
		Reasoning:       result.Reasoning,
		AnalyzedAt:      result.AnalyzedAt.UTC().Truncate(time.Second),
	}
	if _, err := c.db.Collection("analysis_results").InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, ErrDuplicateAnalysis
		}
		return 0, fmt.Errorf("error inserting analysis result: %w", err)
	}
	result.ID = id
	result.AnalyzedAt = doc.AnalyzedAt
	return id, nil
}

func (c *MongoClient) GetAnomalies(locationID string, limit int) ([]models.AnomalyRecord, error) {
	ctx, cancel := opCtx()
	defer cancel()

	cursor, err := c.db.Collection("analysis_results").Find(ctx, bson.M{"is_anomaly": true})
	if err != nil {
		return nil, fmt.Errorf("error querying anomalies: %w", err)
	}
	var analyses []mongoAnalysisResult
	if err := cursor.All(ctx, &analyses); err != nil {
		return nil, fmt.Errorf("error decoding anomalies: %w", err)
	}
	if len(analyses) == 0 {
		return nil, nil
	}

	records, err := c.assembleAnomalyRecords(ctx, analyses)
	if err != nil {
		return nil, err
	}
	if locationID != "" {
		filtered := records[:0]
		for _, record := range records {
			if record.LocationID == locationID {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].AnalysisID > records[j].AnalysisID
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (c *MongoClient) assembleAnomalyRecords(ctx context.Context, analyses []mongoAnalysisResult) ([]models.AnomalyRecord, error) {
	ids := make([]int64, 0, len(analyses))
	for _, analysis := range analyses {
		ids = append(ids, analysis.SpectrumDataID)
	}

	cursor, err := c.db.Collection("spectrum_data").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("error querying spectrum data: %w", err)
	}
	var spectra []mongoSpectrumData
	if err := cursor.All(ctx, &spectra); err != nil {
		return nil, fmt.Errorf("error decoding spectrum data: %w", err)
	}
	spectrumIndex := make(map[int64]mongoSpectrumData, len(spectra))
	for _, s := range spectra {
		spectrumIndex[s.ID] = s
	}

	locationIndex, err := c.locationIndex(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]models.AnomalyRecord, 0, len(analyses))
	for _, analysis := range analyses {
		data, ok := spectrumIndex[analysis.SpectrumDataID]
		if !ok {
			continue
		}
		loc, ok := locationIndex[data.LocationID]
		if !ok {
			continue
		}
		records = append(records, models.AnomalyRecord{
			AnalysisID:      analysis.ID,
			SpectrumDataID:  analysis.SpectrumDataID,
			IsAnomaly:       analysis.IsAnomaly,
			AnomalyType:     analysis.AnomalyType,
			ConfidenceScore: analysis.ConfidenceScore,
			Reasoning:       analysis.Reasoning,
			AnalyzedAt:      analysis.AnalyzedAt.UTC(),
			Timestamp:       data.Timestamp.UTC(),
			Frequency:       data.Frequency,
			Power:           data.Power,
			Bandwidth:       data.Bandwidth,
			ModulationType:  data.ModulationType,
			LocationID:      loc.ID,
			LocationName:    loc.Name,
			Latitude:        loc.Latitude,
			Longitude:       loc.Longitude,
			Region:          loc.Region,
		})
	}
	return records, nil
}

func (c *MongoClient) GetAnomalyByID(analysisID int64) (*models.AnomalyRecord, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var analysis mongoAnalysisResult
	err := c.db.Collection("analysis_results").FindOne(ctx, bson.M{"_id": analysisID}).Decode(&analysis)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying analysis result: %w", err)
	}

	records, err := c.assembleAnomalyRecords(ctx, []mongoAnalysisResult{analysis})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

func (c *MongoClient) GetAnomalyHistory(analysisID int64, now time.Time) ([]models.HistoryPoint, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var analysis mongoAnalysisResult
	err := c.db.Collection("analysis_results").FindOne(ctx, bson.M{"_id": analysisID}).Decode(&analysis)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying analysis result: %w", err)
	}

	var anchor mongoSpectrumData
	err = c.db.Collection("spectrum_data").FindOne(ctx, bson.M{"_id": analysis.SpectrumDataID}).Decode(&anchor)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying spectrum data: %w", err)
	}

	filter := bson.M{
		"location_id": anchor.LocationID,
		"frequency": bson.M{
			"$gte": anchor.Frequency - spectrum.HistoryBandwidthMHz,
			"$lte": anchor.Frequency + spectrum.HistoryBandwidthMHz,
		},
		"timestamp": bson.M{"$gte": now.Add(-spectrum.HistoryWindow)},
	}
	cursor, err := c.db.Collection("spectrum_data").Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(int64(spectrum.HistoryLimit)))
	if err != nil {
		return nil, fmt.Errorf("error querying anomaly history: %w", err)
	}
	var docs []mongoSpectrumData
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding anomaly history: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	analysisIndex, err := c.analysisBySpectrumIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	points := make([]models.HistoryPoint, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- { // oldest first
		doc := docs[i]
		isAnomaly := false
		if analysis, ok := analysisIndex[doc.ID]; ok {
			isAnomaly = analysis.IsAnomaly
		}
		points = append(points, models.HistoryPoint{
			Timestamp: doc.Timestamp.UTC(),
			Frequency: doc.Frequency,
			Power:     doc.Power,
			IsAnomaly: isAnomaly,
		})
	}
	return points, nil
}

// lookupAnalysisStages joins analysis_results onto spectrum_data rows and
// flattens the anomaly flag.
func lookupAnalysisStages() mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "analysis_results",
			"localField":   "_id",
			"foreignField": "spectrum_data_id",
			"as":           "analysis",
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"is_anomaly": bson.M{"$gt": bson.A{
				bson.M{"$size": bson.M{"$filter": bson.M{
					"input": "$analysis",
					"cond":  "$$this.is_anomaly",
				}}},
				0,
			}},
		}}},
	}
}

func (c *MongoClient) GetLocationStats(now time.Time) ([]models.LocationHealth, error) {
	ctx, cancel := opCtx()
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": now.Add(-spectrum.StatsWindow)}}}},
	}
	pipeline = append(pipeline, lookupAnalysisStages()...)
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           "$location_id",
			"total_checks":  bson.M{"$sum": 1},
			"anomaly_count": bson.M{"$sum": bson.M{"$cond": bson.A{"$is_anomaly", 1, 0}}},
			"last_check":    bson.M{"$max": "$timestamp"},
		}}},
	)

	cursor, err := c.db.Collection("spectrum_data").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating location stats: %w", err)
	}
	var rows []struct {
		LocationID   string    `bson:"_id"`
		TotalChecks  int       `bson:"total_checks"`
		AnomalyCount int       `bson:"anomaly_count"`
		LastCheck    time.Time `bson:"last_check"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding location stats: %w", err)
	}

	statsIndex := make(map[string]int, len(rows))
	for i, row := range rows {
		statsIndex[row.LocationID] = i
	}

	locations, err := c.GetLocations()
	if err != nil {
		return nil, err
	}

	stats := make([]models.LocationHealth, 0, len(locations))
	for _, loc := range locations {
		lh := models.LocationHealth{Location: loc}
		if i, ok := statsIndex[loc.ID]; ok {
			lh.TotalChecks = rows[i].TotalChecks
			lh.AnomalyCount = rows[i].AnomalyCount
			lastCheck := rows[i].LastCheck.UTC()
			lh.LastCheck = &lastCheck
		}
		lh.HealthScore = spectrum.HealthScore(lh.TotalChecks, lh.AnomalyCount)
		stats = append(stats, lh)
	}
	return stats, nil
}

func (c *MongoClient) GetTimelineStats(now time.Time) ([]models.TimelineBucket, error) {
	ctx, cancel := opCtx()
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": now.Add(-spectrum.StatsWindow)}}}},
	}
	pipeline = append(pipeline, lookupAnalysisStages()...)
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d %H:00:00",
				"date":   "$timestamp",
			}},
			"total_count":   bson.M{"$sum": 1},
			"anomaly_count": bson.M{"$sum": bson.M{"$cond": bson.A{"$is_anomaly", 1, 0}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)

	cursor, err := c.db.Collection("spectrum_data").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating timeline stats: %w", err)
	}
	var rows []struct {
		Hour         string `bson:"_id"`
		TotalCount   int    `bson:"total_count"`
		AnomalyCount int    `bson:"anomaly_count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding timeline stats: %w", err)
	}

	buckets := make([]models.TimelineBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, models.TimelineBucket{
			Hour:         row.Hour,
			AnomalyCount: row.AnomalyCount,
			TotalCount:   row.TotalCount,
		})
	}
	return buckets, nil
}

func (c *MongoClient) GetFrequencyBandStats(now time.Time) ([]models.BandStats, error) {
	ctx, cancel := opCtx()
	defer cancel()

	bandSwitch := bson.M{"$switch": bson.M{
		"branches": bson.A{
			bson.M{"case": bson.M{"$lt": bson.A{"$frequency", 100}}, "then": spectrum.BandFMRadio},
			bson.M{"case": bson.M{"$and": bson.A{
				bson.M{"$gte": bson.A{"$frequency", 500}},
				bson.M{"$lt": bson.A{"$frequency", 700}},
			}}, "then": spectrum.BandTV},
			bson.M{"case": bson.M{"$and": bson.A{
				bson.M{"$gte": bson.A{"$frequency", 1700}},
				bson.M{"$lt": bson.A{"$frequency", 1900}},
			}}, "then": spectrum.BandLTE},
			bson.M{"case": bson.M{"$and": bson.A{
				bson.M{"$gte": bson.A{"$frequency", 2300}},
				bson.M{"$lt": bson.A{"$frequency", 2500}},
			}}, "then": spectrum.BandWiFi},
			bson.M{"case": bson.M{"$and": bson.A{
				bson.M{"$gte": bson.A{"$frequency", 3400}},
				bson.M{"$lt": bson.A{"$frequency", 3600}},
			}}, "then": spectrum.Band5G},
		},
		"default": spectrum.BandOther,
	}}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": now.Add(-spectrum.StatsWindow)}}}},
	}
	pipeline = append(pipeline, lookupAnalysisStages()...)
	pipeline = append(pipeline,
		bson.D{{Key: "$addFields", Value: bson.M{"band": bandSwitch}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           "$band",
			"total_count":   bson.M{"$sum": 1},
			"anomaly_count": bson.M{"$sum": bson.M{"$cond": bson.A{"$is_anomaly", 1, 0}}},
			"avg_power":     bson.M{"$avg": "$power"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "total_count", Value: -1}, {Key: "_id", Value: 1}}}},
	)

	cursor, err := c.db.Collection("spectrum_data").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating frequency band stats: %w", err)
	}
	var rows []struct {
		Band         string  `bson:"_id"`
		TotalCount   int     `bson:"total_count"`
		AnomalyCount int     `bson:"anomaly_count"`
		AvgPower     float64 `bson:"avg_power"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding frequency band stats: %w", err)
	}

	stats := make([]models.BandStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.BandStats{
			Band:         row.Band,
			AnomalyCount: row.AnomalyCount,
			TotalCount:   row.TotalCount,
			AvgPower:     row.AvgPower,
		})
	}
	return stats, nil
}

func (c *MongoClient) GetRegionStats(now time.Time) ([]models.RegionStats, error) {
	ctx, cancel := opCtx()
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": now.Add(-spectrum.StatsWindow)}}}},
	}
	pipeline = append(pipeline, lookupAnalysisStages()...)
	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "locations",
			"localField":   "location_id",
			"foreignField": "_id",
			"as":           "location",
		}}},
		bson.D{{Key: "$unwind", Value: "$location"}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":           "$location.region",
			"total_count":   bson.M{"$sum": 1},
			"anomaly_count": bson.M{"$sum": bson.M{"$cond": bson.A{"$is_anomaly", 1, 0}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "anomaly_count", Value: -1}, {Key: "_id", Value: 1}}}},
	)

	cursor, err := c.db.Collection("spectrum_data").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating region stats: %w", err)
	}
	var rows []struct {
		Region       string `bson:"_id"`
		TotalCount   int    `bson:"total_count"`
		AnomalyCount int    `bson:"anomaly_count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding region stats: %w", err)
	}

	stats := make([]models.RegionStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.RegionStats{
			Region:       row.Region,
			AnomalyCount: row.AnomalyCount,
			TotalCount:   row.TotalCount,
			HealthScore:  spectrum.HealthScore(row.TotalCount, row.AnomalyCount),
		})
	}
	return stats, nil
}

func (c *MongoClient) GetAnomalyTypeStats(now time.Time) ([]models.AnomalyTypeStats, error) {
	ctx, cancel := opCtx()
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"is_anomaly":  true,
			"analyzed_at": bson.M{"$gte": now.Add(-spectrum.StatsWindow)},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":            bson.M{"$ifNull": bson.A{"$anomaly_type", spectrum.AnomalyUnknown}},
			"count":          bson.M{"$sum": 1},
			"avg_confidence": bson.M{"$avg": "$confidence_score"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := c.db.Collection("analysis_results").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating anomaly type stats: %w", err)
	}
	var rows []struct {
		Type          string  `bson:"_id"`
		Count         int     `bson:"count"`
		AvgConfidence float64 `bson:"avg_confidence"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding anomaly type stats: %w", err)
	}

	stats := make([]models.AnomalyTypeStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.AnomalyTypeStats{
			Type:          row.Type,
			Count:         row.Count,
			AvgConfidence: row.AvgConfidence,
		})
	}
	return stats, nil
}
