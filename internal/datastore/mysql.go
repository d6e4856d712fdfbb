package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/ecocarto/internal/conf"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	cfg := settings.Datastore.MySQL
	if cfg.Host == "" || cfg.Database == "" {
		return errors.Newf("mysql host and database are required").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// mysqlDSN builds the connection string. Port defaults to 3306.
func mysqlDSN(settings *conf.Settings) string {
	cfg := settings.Datastore.MySQL
	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database)
}

// Open connects to MySQL and migrates the schema.
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	cfg := store.Settings.Datastore.MySQL
	db, err := gorm.Open(mysql.Open(mysqlDSN(store.Settings)), gormConfig())
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", cfg.Host),
			logger.String("port", cfg.Port),
			logger.String("database", cfg.Database),
			logger.Error(err))
		return dbError(err, "open").
			Context("db_type", "mysql").
			Context("host", cfg.Host).
			Build()
	}

	store.DB = db
	return performAutoMigration(db, "MySQL")
}

// Close closes the MySQL connection pool.
func (store *MySQLStore) Close() error {
	return store.closeDB("mysql")
}
