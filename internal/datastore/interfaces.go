package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/ecocarto/internal/conf"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
)

const (
	tableReports = "reports"

	// DefaultListLimit caps ListReports when no limit is given.
	DefaultListLimit = 50
	maxListLimit     = 500

	// DefaultSlowQueryThreshold is the duration after which a query is logged as slow.
	DefaultSlowQueryThreshold = 500 * time.Millisecond
)

// Interface abstracts the report archive.
type Interface interface {
	Open() error
	SaveReport(ctx context.Context, record *ReportRecord) error
	GetReport(ctx context.Context, id string) (*ReportRecord, error)
	ListReports(ctx context.Context, limit, offset int) ([]ReportRecord, error)
	Close() error
}

// DataStore implements Interface on a GORM database.
type DataStore struct {
	DB      *gorm.DB
	metrics *metrics.DatastoreMetrics
}

// New creates the store selected by the datastore settings. Open must be
// called before use.
func New(settings *conf.Settings, m *metrics.DatastoreMetrics) (Interface, error) {
	switch settings.Datastore.Type {
	case "sqlite", "":
		return &SQLiteStore{DataStore: DataStore{metrics: m}, Settings: settings}, nil
	case "mysql":
		return &MySQLStore{DataStore: DataStore{metrics: m}, Settings: settings}, nil
	default:
		return nil, errors.Newf("unsupported datastore type %q", settings.Datastore.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("type", settings.Datastore.Type).
			Build()
	}
}

// gormConfig routes GORM logging through the datastore module logger.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger(), DefaultSlowQueryThreshold),
	}
}

// performAutoMigration creates or updates the archive schema.
func performAutoMigration(db *gorm.DB, dbType string) error {
	if err := db.AutoMigrate(&ReportRecord{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("db_type", dbType).
			Build()
	}
	GetLogger().Info("database schema ready", logger.String("db_type", dbType))
	return nil
}

// SaveReport inserts a record, assigning its ID and creation time.
func (ds *DataStore) SaveReport(ctx context.Context, record *ReportRecord) error {
	if err := ds.ready("save_report"); err != nil {
		return err
	}

	start := time.Now()
	err := ds.DB.WithContext(ctx).Create(record).Error
	ds.observe(metrics.OpDbInsert, start, err)
	if err != nil {
		return dbError(err, "save_report").
			Context("location", record.LocationName).
			Build()
	}

	ds.metrics.RecordReportArchived()
	GetLogger().Info("report archived",
		logger.String("report_id", record.ID),
		logger.String("location", record.LocationName),
		logger.Int("critical_zones", record.CriticalZones),
		logger.Int("moderate_zones", record.ModerateZones))
	return nil
}

// GetReport fetches a record by ID.
func (ds *DataStore) GetReport(ctx context.Context, id string) (*ReportRecord, error) {
	if err := ds.ready("get_report"); err != nil {
		return nil, err
	}

	var record ReportRecord
	start := time.Now()
	err := ds.DB.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ds.observe(metrics.OpDbQuery, start, nil)
		return nil, errors.Newf("report %s not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("report_id", id).
			Build()
	}
	ds.observe(metrics.OpDbQuery, start, err)
	if err != nil {
		return nil, dbError(err, "get_report").Context("report_id", id).Build()
	}
	return &record, nil
}

// ListReports returns records newest first.
func (ds *DataStore) ListReports(ctx context.Context, limit, offset int) ([]ReportRecord, error) {
	if err := ds.ready("list_reports"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset = max(offset, 0)

	var records []ReportRecord
	start := time.Now()
	err := ds.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	ds.observe(metrics.OpDbQuery, start, err)
	if err != nil {
		return nil, dbError(err, "list_reports").Build()
	}
	return records, nil
}

// closeDB closes the underlying connection pool.
func (ds *DataStore) closeDB(dbType string) error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close").Context("db_type", dbType).Build()
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close").Context("db_type", dbType).Build()
	}
	ds.DB = nil
	GetLogger().Debug("database connection closed", logger.String("db_type", dbType))
	return nil
}

func (ds *DataStore) ready(operation string) error {
	if ds.DB != nil {
		return nil
	}
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryState).
		Context("operation", operation).
		Build()
}

func (ds *DataStore) observe(operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		ds.metrics.RecordDbOperationError(operation, tableReports, "query_error")
	}
	ds.metrics.RecordDbOperation(operation, tableReports, status)
	ds.metrics.RecordDbOperationDuration(operation, tableReports, time.Since(start).Seconds())
}

func dbError(err error, operation string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
}
