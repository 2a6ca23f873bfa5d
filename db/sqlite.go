package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"spectrum-monitor/models"
	"spectrum-monitor/spectrum"
	"spectrum-monitor/utils"
)

// sqlTimeLayout is how timestamps are written to SQLite. Storing a fixed-width
// UTC string keeps lexicographic comparison equal to chronological order.
const sqlTimeLayout = "2006-01-02 15:04:05"

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(dataSourceName string) (*SQLiteClient, error) {
	// Extract the file path before query parameters
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}

	dbDir := filepath.Dir(dbPath)
	if dbDir != "." && dbDir != "" {
		if err := utils.CreateFolder(dbDir); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	// Add busy timeout param to DSN (milliseconds)
	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error connecting to SQLite: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &SQLiteClient{db: db}, nil
}

func createTables(db *sql.DB) error {
	createLocationsTable := `
    CREATE TABLE IF NOT EXISTS locations (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        latitude REAL NOT NULL,
        longitude REAL NOT NULL,
        region TEXT NOT NULL
    );
    `

	createSpectrumDataTable := `
    CREATE TABLE IF NOT EXISTS spectrum_data (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        timestamp DATETIME NOT NULL,
        frequency REAL NOT NULL,
        power REAL NOT NULL,
        location_id TEXT NOT NULL REFERENCES locations(id),
        bandwidth REAL,
        modulation_type TEXT,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_spectrum_data_timestamp ON spectrum_data(timestamp);
    CREATE INDEX IF NOT EXISTS idx_spectrum_data_location ON spectrum_data(location_id);
    `

	createAnalysisResultsTable := `
    CREATE TABLE IF NOT EXISTS analysis_results (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        spectrum_data_id INTEGER NOT NULL REFERENCES spectrum_data(id),
        is_anomaly INTEGER NOT NULL DEFAULT 0,
        anomaly_type TEXT,
        confidence_score REAL NOT NULL DEFAULT 0,
        reasoning TEXT NOT NULL DEFAULT '',
        analyzed_at DATETIME NOT NULL
    );
    CREATE UNIQUE INDEX IF NOT EXISTS idx_analysis_results_spectrum ON analysis_results(spectrum_data_id);
    CREATE INDEX IF NOT EXISTS idx_analysis_results_anomaly ON analysis_results(is_anomaly);
    `

	for _, stmt := range []string{createLocationsTable, createSpectrumDataTable, createAnalysisResultsTable} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("error executing schema statement: %w", err)
		}
	}

	return nil
}

func (c *SQLiteClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func sqlTime(t time.Time) string {
	return t.UTC().Format(sqlTimeLayout)
}

func parseSQLTime(s string) time.Time {
	t, err := time.ParseInLocation(sqlTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (c *SQLiteClient) SeedLocations(locations []models.Location) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
        INSERT OR IGNORE INTO locations (id, name, latitude, longitude, region)
        VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, loc := range locations {
		if _, err := stmt.Exec(loc.ID, loc.Name, loc.Latitude, loc.Longitude, loc.Region); err != nil {
			tx.Rollback()
			return fmt.Errorf("error seeding location %s: %w", loc.ID, err)
		}
	}

	return tx.Commit()
}

func (c *SQLiteClient) GetLocations() ([]models.Location, error) {
	rows, err := c.db.Query(`
        SELECT id, name, latitude, longitude, region
        FROM locations
        ORDER BY region, name`)
	if err != nil {
		return nil, fmt.Errorf("error querying locations: %w", err)
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude, &loc.Region); err != nil {
			return nil, fmt.Errorf("error scanning location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (c *SQLiteClient) GetLocation(id string) (*models.Location, error) {
	var loc models.Location
	err := c.db.QueryRow(`
        SELECT id, name, latitude, longitude, region
        FROM locations WHERE id = ?`, id).
		Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude, &loc.Region)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying location: %w", err)
	}
	return &loc, nil
}

func (c *SQLiteClient) InsertSpectrumData(data *models.SpectrumData) (int64, error) {
	res, err := c.db.Exec(`
        INSERT INTO spectrum_data (timestamp, frequency, power, location_id, bandwidth, modulation_type)
        VALUES (?, ?, ?, ?, ?, ?)`,
		sqlTime(data.Timestamp),
		data.Frequency,
		data.Power,
		data.LocationID,
		data.Bandwidth,
		data.ModulationType,
	)
	if err != nil {
		return 0, fmt.Errorf("error inserting spectrum data: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading inserted id: %w", err)
	}
	data.ID = id
	return id, nil
}

func (c *SQLiteClient) GetSpectrumDataByID(id int64) (*models.SpectrumData, error) {
	var (
		data models.SpectrumData
		ts   string
	)
	err := c.db.QueryRow(`
        SELECT id, timestamp, frequency, power, location_id, bandwidth, modulation_type
        FROM spectrum_data WHERE id = ?`, id).
		Scan(&data.ID, &ts, &data.Frequency, &data.Power, &data.LocationID, &data.Bandwidth, &data.ModulationType)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying spectrum data: %w", err)
	}
	data.Timestamp = parseSQLTime(ts)
	return &data, nil
}

func (c *SQLiteClient) GetSpectrumData(locationID string, limit int, includeAnalysis bool) ([]models.SpectrumDataWithLocation, error) {
	query := `
        SELECT s.id, s.timestamp, s.frequency, s.power, s.location_id, s.bandwidth, s.modulation_type,
               l.name, l.latitude, l.longitude, l.region
        FROM spectrum_data s
        INNER JOIN locations l ON s.location_id = l.id`
	args := []any{}

	if locationID != "" {
		query += " WHERE s.location_id = ?"
		args = append(args, locationID)
	}
	query += " ORDER BY s.timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying spectrum data: %w", err)
	}
	defer rows.Close()

	var results []models.SpectrumDataWithLocation
	for rows.Next() {
		var (
			row models.SpectrumDataWithLocation
			ts  string
		)
		if err := rows.Scan(
			&row.ID, &ts, &row.Frequency, &row.Power, &row.LocationID,
			&row.Bandwidth, &row.ModulationType,
			&row.LocationName, &row.Latitude, &row.Longitude, &row.Region,
		); err != nil {
			return nil, fmt.Errorf("error scanning spectrum data: %w", err)
		}
		row.Timestamp = parseSQLTime(ts)
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if includeAnalysis && len(results) > 0 {
		if err := c.attachAnalysis(results); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (c *SQLiteClient) attachAnalysis(results []models.SpectrumDataWithLocation) error {
	ids := make([]any, len(results))
	placeholders := make([]string, len(results))
	index := make(map[int64]*models.SpectrumDataWithLocation, len(results))
	for i := range results {
		ids[i] = results[i].ID
		placeholders[i] = "?"
		index[results[i].ID] = &results[i]
	}

	query := fmt.Sprintf(`
        SELECT id, spectrum_data_id, is_anomaly, anomaly_type, confidence_score, reasoning, analyzed_at
        FROM analysis_results
        WHERE spectrum_data_id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := c.db.Query(query, ids...)
	if err != nil {
		return fmt.Errorf("error querying analysis results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			result     models.AnalysisResult
			isAnomaly  int
			analyzedAt string
		)
		if err := rows.Scan(
			&result.ID, &result.SpectrumDataID, &isAnomaly, &result.AnomalyType,
			&result.ConfidenceScore, &result.Reasoning, &analyzedAt,
		); err != nil {
			return fmt.Errorf("error scanning analysis result: %w", err)
		}
		result.IsAnomaly = isAnomaly == 1
		result.AnalyzedAt = parseSQLTime(analyzedAt)
		if row, ok := index[result.SpectrumDataID]; ok {
			attached := result
			row.Analysis = &attached
		}
	}
	return rows.Err()
}

func (c *SQLiteClient) GetUnanalyzedSpectrumData() ([]models.SpectrumData, error) {
	rows, err := c.db.Query(`
        SELECT s.id, s.timestamp, s.frequency, s.power, s.location_id, s.bandwidth, s.modulation_type
        FROM spectrum_data s
        LEFT JOIN analysis_results a ON s.id = a.spectrum_data_id
        WHERE a.id IS NULL
        ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("error querying unanalyzed spectrum data: %w", err)
	}
	defer rows.Close()

	var results []models.SpectrumData
	for rows.Next() {
		var (
			data models.SpectrumData
			ts   string
		)
		if err := rows.Scan(&data.ID, &ts, &data.Frequency, &data.Power, &data.LocationID, &data.Bandwidth, &data.ModulationType); err != nil {
			return nil, fmt.Errorf("error scanning spectrum data: %w", err)
		}
		data.Timestamp = parseSQLTime(ts)
		results = append(results, data)
	}
	return results, rows.Err()
}

func (c *SQLiteClient) InsertAnalysisResult(result *models.AnalysisResult) (int64, error) {
	var exists int
	err := c.db.QueryRow(`SELECT 1 FROM spectrum_data WHERE id = ?`, result.SpectrumDataID).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("error checking spectrum data: %w", err)
	}

	isAnomaly := 0
	if result.IsAnomaly {
		isAnomaly = 1
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = time.Now().UTC()
	}

	res, err := c.db.Exec(`
        INSERT INTO analysis_results (spectrum_data_id, is_anomaly, anomaly_type, confidence_score, reasoning, analyzed_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		result.SpectrumDataID,
		isAnomaly,
		result.AnomalyType,
		result.ConfidenceScore,
		result.Reasoning,
		sqlTime(result.AnalyzedAt),
	)
	if err != nil {
		// Constraint violations surface as driver error strings (cross-platform)
		errMsg := err.Error()
		if strings.Contains(errMsg, "UNIQUE constraint") || strings.Contains(errMsg, "constraint failed") {
			return 0, ErrDuplicateAnalysis
		}
		return 0, fmt.Errorf("error inserting analysis result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading inserted id: %w", err)
	}
	result.ID = id
	return id, nil
}

func (c *SQLiteClient) GetAnomalies(locationID string, limit int) ([]models.AnomalyRecord, error) {
	query := `
        SELECT a.id, a.spectrum_data_id, a.is_anomaly, a.anomaly_type, a.confidence_score, a.reasoning, a.analyzed_at,
               s.timestamp, s.frequency, s.power, s.bandwidth, s.modulation_type,
               l.id, l.name, l.latitude, l.longitude, l.region
        FROM analysis_results a
        INNER JOIN spectrum_data s ON a.spectrum_data_id = s.id
        INNER JOIN locations l ON s.location_id = l.id
        WHERE a.is_anomaly = 1`
	args := []any{}

	if locationID != "" {
		query += " AND s.location_id = ?"
		args = append(args, locationID)
	}
	query += " ORDER BY s.timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []models.AnomalyRecord
	for rows.Next() {
		record, err := scanAnomalyRecord(rows)
		if err != nil {
			return nil, err
		}
		anomalies = append(anomalies, *record)
	}
	return anomalies, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnomalyRecord(row rowScanner) (*models.AnomalyRecord, error) {
	var (
		record     models.AnomalyRecord
		isAnomaly  int
		analyzedAt string
		ts         string
	)
	err := row.Scan(
		&record.AnalysisID, &record.SpectrumDataID, &isAnomaly, &record.AnomalyType,
		&record.ConfidenceScore, &record.Reasoning, &analyzedAt,
		&ts, &record.Frequency, &record.Power, &record.Bandwidth, &record.ModulationType,
		&record.LocationID, &record.LocationName, &record.Latitude, &record.Longitude, &record.Region,
	)
	if err != nil {
		return nil, fmt.Errorf("error scanning anomaly record: %w", err)
	}
	record.IsAnomaly = isAnomaly == 1
	record.AnalyzedAt = parseSQLTime(analyzedAt)
	record.Timestamp = parseSQLTime(ts)
	return &record, nil
}

func (c *SQLiteClient) GetAnomalyByID(analysisID int64) (*models.AnomalyRecord, error) {
	row := c.db.QueryRow(`
        SELECT a.id, a.spectrum_data_id, a.is_anomaly, a.anomaly_type, a.confidence_score, a.reasoning, a.analyzed_at,
               s.timestamp, s.frequency, s.power, s.bandwidth, s.modulation_type,
               l.id, l.name, l.latitude, l.longitude, l.region
        FROM analysis_results a
        INNER JOIN spectrum_data s ON a.spectrum_data_id = s.id
        INNER JOIN locations l ON s.location_id = l.id
        WHERE a.id = ?`, analysisID)

	record, err := scanAnomalyRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (c *SQLiteClient) GetAnomalyHistory(analysisID int64, now time.Time) ([]models.HistoryPoint, error) {
	var (
		locationID string
		frequency  float64
	)
	err := c.db.QueryRow(`
        SELECT s.location_id, s.frequency
        FROM analysis_results a
        INNER JOIN spectrum_data s ON a.spectrum_data_id = s.id
        WHERE a.id = ?`, analysisID).Scan(&locationID, &frequency)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying anomaly: %w", err)
	}

	rows, err := c.db.Query(`
        SELECT s.timestamp, s.frequency, s.power, COALESCE(a.is_anomaly, 0)
        FROM spectrum_data s
        LEFT JOIN analysis_results a ON s.id = a.spectrum_data_id
        WHERE s.location_id = ?
          AND s.frequency BETWEEN ? AND ?
          AND s.timestamp >= ?
        ORDER BY s.timestamp DESC
        LIMIT ?`,
		locationID,
		frequency-spectrum.HistoryBandwidthMHz,
		frequency+spectrum.HistoryBandwidthMHz,
		sqlTime(now.Add(-spectrum.HistoryWindow)),
		spectrum.HistoryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying anomaly history: %w", err)
	}
	defer rows.Close()

	var points []models.HistoryPoint
	for rows.Next() {
		var (
			point     models.HistoryPoint
			ts        string
			isAnomaly int
		)
		if err := rows.Scan(&ts, &point.Frequency, &point.Power, &isAnomaly); err != nil {
			return nil, fmt.Errorf("error scanning history point: %w", err)
		}
		point.Timestamp = parseSQLTime(ts)
		point.IsAnomaly = isAnomaly == 1
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest 50 were selected; serve them oldest first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

func (c *SQLiteClient) GetLocationStats(now time.Time) ([]models.LocationHealth, error) {
	rows, err := c.db.Query(`
        SELECT l.id, l.name, l.latitude, l.longitude, l.region,
               COUNT(CASE WHEN a.is_anomaly = 1 THEN 1 END) AS anomaly_count,
               COUNT(s.id) AS total_checks,
               MAX(s.timestamp) AS last_check
        FROM locations l
        LEFT JOIN spectrum_data s ON l.id = s.location_id AND s.timestamp >= ?
        LEFT JOIN analysis_results a ON s.id = a.spectrum_data_id
        GROUP BY l.id
        ORDER BY l.region, l.name`,
		sqlTime(now.Add(-spectrum.StatsWindow)))
	if err != nil {
		return nil, fmt.Errorf("error querying location stats: %w", err)
	}
	defer rows.Close()

	var stats []models.LocationHealth
	for rows.Next() {
		var (
			lh        models.LocationHealth
			lastCheck sql.NullString
		)
		if err := rows.Scan(
			&lh.ID, &lh.Name, &lh.Latitude, &lh.Longitude, &lh.Region,
			&lh.AnomalyCount, &lh.TotalChecks, &lastCheck,
		); err != nil {
			return nil, fmt.Errorf("error scanning location stats: %w", err)
		}
		if lastCheck.Valid {
			t := parseSQLTime(lastCheck.String)
			lh.LastCheck = &t
		}
		lh.HealthScore = spectrum.HealthScore(lh.TotalChecks, lh.AnomalyCount)
		stats = append(stats, lh)
	}
	return stats, rows.Err()
}

func (c *SQLiteClient) GetTimelineStats(now time.Time) ([]models.TimelineBucket, error) {
	rows, err := c.db.Query(`
        SELECT strftime('%Y-%m-%d %H:00:00', s.timestamp) AS hour,
               COUNT(CASE WHEN a.is_anomaly = 1 THEN 1 END) AS anomaly_count,
               COUNT(*) AS total_count
        FROM spectrum_data s
        LEFT JOIN analysis_results a ON s.id = a.spectrum_data_id
        WHERE s.timestamp >= ?
        GROUP BY hour
        ORDER BY hour ASC`,
		sqlTime(now.Add(-spectrum.StatsWindow)))
	if err != nil {
		return nil, fmt.Errorf("error querying timeline stats: %w", err)
	}
	defer rows.Close()

	var buckets []models.TimelineBucket
	for rows.Next() {
		var bucket models.TimelineBucket
		if err := rows.Scan(&bucket.Hour, &bucket.AnomalyCount, &bucket.TotalCount); err != nil {
			return nil, fmt.Errorf("error scanning timeline bucket: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	return buckets, rows.Err()
}

func (c *SQLiteClient) GetFrequencyBandStats(now time.Time) ([]models.BandStats, error) {
	rows, err := c.db.Query(`
        SELECT CASE
                 WHEN s.frequency < 100 THEN 'FM Radio (88-108 MHz)'
                 WHEN s.frequency >= 500 AND s.frequency < 700 THEN 'TV (500-600 MHz)'
                 WHEN s.frequency >= 1700 AND s.frequency < 1900 THEN 'LTE (1800 MHz)'
                 WHEN s.frequency >= 2300 AND s.frequency < 2500 THEN 'Wi-Fi (2.4 GHz)'
                 WHEN s.frequency >= 3400 AND s.frequency < 3600 THEN '5G (3.5 GHz)'
                 ELSE 'Other'
               END AS band,
               COUNT(CASE WHEN a.is_anomaly = 1 THEN 1 END) AS anomaly_count,
               COUNT(*) AS total_count,
               AVG(s.power) AS avg_power
        FROM spectrum_data s
        LEFT JOIN analysis_results a ON s.id = a.spectrum_data_id
        WHERE s.timestamp >= ?
        GROUP BY band
        ORDER BY total_count DESC`,
		sqlTime(now.Add(-spectrum.StatsWindow)))
	if err != nil {
		return nil, fmt.Errorf("error querying frequency band stats: %w", err)
	}
	defer rows.Close()

	var stats []models.BandStats
	for rows.Next() {
		var bs models.BandStats
		if err := rows.Scan(&bs.Band, &bs.AnomalyCount, &bs.TotalCount, &bs.AvgPower); err != nil {
			return nil, fmt.Errorf("error scanning band stats: %w", err)
		}
		stats = append(stats, bs)
	}
	return stats, rows.Err()
}

func (c *SQLiteClient) GetRegionStats(now time.Time) ([]models.RegionStats, error) {
	rows, err := c.db.Query(`
        SELECT l.region,
               COUNT(CASE WHEN a.is_anomaly = 1 THEN 1 END) AS anomaly_count,
               COUNT(*) AS total_count
        FROM spectrum_data s
        INNER JOIN locations l ON s.location_id = l.id
        LEFT JOIN analysis_results a ON s.id = a.spectrum_data_id
        WHERE s.timestamp >= ?
        GROUP BY l.region
        ORDER BY anomaly_count DESC, l.region`,
		sqlTime(now.Add(-spectrum.StatsWindow)))
	if err != nil {
		return nil, fmt.Errorf("error querying region stats: %w", err)
	}
	defer rows.Close()

	var stats []models.RegionStats
	for rows.Next() {
		var rs models.RegionStats
		if err := rows.Scan(&rs.Region, &rs.AnomalyCount, &rs.TotalCount); err != nil {
			return nil, fmt.Errorf("error scanning region stats: %w", err)
		}
		rs.HealthScore = spectrum.HealthScore(rs.TotalCount, rs.AnomalyCount)
		stats = append(stats, rs)
	}
	return stats, rows.Err()
}

func (c *SQLiteClient) GetAnomalyTypeStats(now time.Time) ([]models.AnomalyTypeStats, error) {
	rows, err := c.db.Query(`
        SELECT COALESCE(NULLIF(a.anomaly_type, ''), 'Unknown') AS type,
               COUNT(*) AS count,
               AVG(a.confidence_score) AS avg_confidence
        FROM analysis_results a
        WHERE a.is_anomaly = 1
          AND a.analyzed_at >= ?
        GROUP BY type
        ORDER BY count DESC, type`,
		sqlTime(now.Add(-spectrum.StatsWindow)))
	if err != nil {
		return nil, fmt.Errorf("error querying anomaly type stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AnomalyTypeStats
	for rows.Next() {
		var ts models.AnomalyTypeStats
		if err := rows.Scan(&ts.Type, &ts.Count, &ts.AvgConfidence); err != nil {
			return nil, fmt.Errorf("error scanning anomaly type stats: %w", err)
		}
		stats = append(stats, ts)
	}
	return stats, rows.Err()
}
