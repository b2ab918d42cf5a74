// Package migrations runs the goose SQL migrations for postgres
// deployments. Sqlite setups use the store's gorm auto-migration instead.
package migrations

import (
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrateStore applies every pending migration from the given folder.
func MigrateStore(db *gorm.DB, folder string) error {
	info, err := os.Stat(folder)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("migration path %s is not a directory", folder)
	}

	goose.SetLogger(gooseLogger{})
	goose.SetBaseFS(os.DirFS(folder))
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return goose.Up(sqlDB, ".")
}

// gooseLogger forwards goose output to zap.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	zap.S().Named("migrations").Infof(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...any) {
	zap.S().Named("migrations").Fatalf(format, v...)
}
