package store

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clinicio/docflow/internal/config"
)

// InitDB opens the configured database: postgres in deployments, sqlite
// (usually :memory:) for tests and local runs.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	log := zap.S().Named("gorm")

	db, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger:         slowQueryLogger(),
		TranslateError: true,
	})
	if err != nil {
		log.Errorf("failed to connect database: %v", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Errorf("failed to configure connections: %v", err)
		return nil, err
	}

	if cfg.Database.Type == "pgsql" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)

		var version string
		if result := db.Raw("SELECT version()").Scan(&version); result.Error != nil {
			log.Infoln(result.Error.Error())
			return nil, result.Error
		}
		log.Infof("PostgreSQL information: '%s'", version)
	} else {
		// a :memory: sqlite database exists per connection
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func dialector(cfg *config.Config) gorm.Dialector {
	if cfg.Database.Type != "pgsql" {
		return sqlite.Open(cfg.Database.Name)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s",
		cfg.Database.Hostname,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Port,
	)
	if cfg.Database.Name != "" {
		dsn = fmt.Sprintf("%s dbname=%s", dsn, cfg.Database.Name)
	}
	return postgres.Open(dsn)
}

// slowQueryLogger bridges gorm's logging to logrus, warning on queries
// slower than a second and keeping parameters out of the log.
func slowQueryLogger() logger.Interface {
	return logger.New(logrus.New(), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		Colorful:                  false,
	})
}
