package db

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"spectrum-monitor/models"
	"spectrum-monitor/utils"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateAnalysis is returned when a measurement already has an
	// analysis result. At most one result may reference a measurement.
	ErrDuplicateAnalysis = errors.New("measurement already analyzed")
)

// DBClient is the storage contract shared by the SQLite, MongoDB and
// in-memory backends. Statistics queries take the reference time explicitly:
// the window is always now-24h..now (7 days for history), and identical
// inputs against unchanged data must produce identical output.
type DBClient interface {
	Close() error

	SeedLocations(locations []models.Location) error
	GetLocations() ([]models.Location, error)
	GetLocation(id string) (*models.Location, error)

	InsertSpectrumData(data *models.SpectrumData) (int64, error)
	GetSpectrumDataByID(id int64) (*models.SpectrumData, error)
	GetSpectrumData(locationID string, limit int, includeAnalysis bool) ([]models.SpectrumDataWithLocation, error)
	GetUnanalyzedSpectrumData() ([]models.SpectrumData, error)

	InsertAnalysisResult(result *models.AnalysisResult) (int64, error)

	GetAnomalies(locationID string, limit int) ([]models.AnomalyRecord, error)
	GetAnomalyByID(analysisID int64) (*models.AnomalyRecord, error)
	GetAnomalyHistory(analysisID int64, now time.Time) ([]models.HistoryPoint, error)

	GetLocationStats(now time.Time) ([]models.LocationHealth, error)
	GetTimelineStats(now time.Time) ([]models.TimelineBucket, error)
	GetFrequencyBandStats(now time.Time) ([]models.BandStats, error)
	GetRegionStats(now time.Time) ([]models.RegionStats, error)
	GetAnomalyTypeStats(now time.Time) ([]models.AnomalyTypeStats, error)
}

// NewDBClient builds the store selected by the DB_TYPE environment variable:
// "sqlite" (default) and "mongo" are durable, "memory" keeps everything in
// process memory with no durability across restarts.
func NewDBClient() (DBClient, error) {
	dbType := strings.ToLower(utils.GetEnv("DB_TYPE", "sqlite"))
	switch dbType {
	case "sqlite":
		dbPath := utils.GetEnv("SQLITE_DB_PATH", filepath.Join("data", "spectrum.db"))
		return NewSQLiteClient(dbPath)
	case "mongo", "mongodb":
		uri := utils.GetEnv("MONGO_URI", "mongodb://localhost:27017")
		dbName := utils.GetEnv("MONGO_DB_NAME", "spectrum_monitor")
		return NewMongoClient(uri, dbName)
	case "memory":
		return NewMemoryClient(), nil
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (expected sqlite, mongo or memory)", dbType)
	}
}

// DefaultLocations is the fixed monitoring station list seeded at startup.
func DefaultLocations() []models.Location {
	return []models.Location{
		{ID: "seoul-01", Name: "Seoul Gangnam Station", Latitude: 37.4979, Longitude: 127.0276, Region: "Seoul"},
		{ID: "busan-01", Name: "Busan Haeundae Station", Latitude: 35.1584, Longitude: 129.1603, Region: "Busan"},
		{ID: "incheon-01", Name: "Incheon Songdo Station", Latitude: 37.3894, Longitude: 126.6431, Region: "Incheon"},
		{ID: "daegu-01", Name: "Daegu Suseong Station", Latitude: 35.8583, Longitude: 128.6311, Region: "Daegu"},
		{ID: "daejeon-01", Name: "Daejeon Yuseong Station", Latitude: 36.3621, Longitude: 127.3571, Region: "Daejeon"},
		{ID: "gwangju-01", Name: "Gwangju Buk-gu Station", Latitude: 35.1740, Longitude: 126.9118, Region: "Gwangju"},
		{ID: "ulsan-01", Name: "Ulsan Nam-gu Station", Latitude: 35.5384, Longitude: 129.3114, Region: "Ulsan"},
	}
}
