package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpenSQLite opens a SQLite database at path with foreign keys enforced.
// An empty path opens a private in-memory database.
func OpenSQLite(path string, debug bool) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}
	dsn = withPragma(dsn, "_pragma=foreign_keys(1)")
	dsn = withPragma(dsn, "_pragma=busy_timeout(5000)")

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection keeps transactions serial
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return db, nil
}

// OpenMemory opens a migrated in-memory database
func OpenMemory() (*gorm.DB, error) {
	db, err := OpenSQLite("", false)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}

func withPragma(dsn, pragma string) string {
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == '?' {
			return dsn + "&" + pragma
		}
	}
	return dsn + "?" + pragma
}
