package repository

import (
	"fmt"

	"github.com/google/uuid"

	"sipitali-server/internal/config"
	"sipitali-server/internal/models"
)

// DriverMemory selects a private in-memory SQLite database. Data is lost on exit.
const DriverMemory = "memory"

// Open builds the stores for cfg.Driver. The returned close func releases the
// SQL connection pool.
func Open(cfg config.DatabaseConfig, debug bool) (Stores, func() error, error) {
	driver, dsn := cfg.Driver, cfg.DSN
	if driver == DriverMemory {
		driver, dsn = "sqlite", memoryDSN()
	}

	db, err := models.InitDB(models.DatabaseConfig{Driver: driver, DSN: dsn, Debug: debug})
	if err != nil {
		return Stores{}, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return Stores{}, nil, err
	}
	if driver == "sqlite" {
		// SQLite allows one writer; a single connection also keeps an
		// in-memory database alive for the life of the pool.
		sqlDB.SetMaxOpenConns(1)
	}
	return NewGormStores(db), sqlDB.Close, nil
}

// OpenMemory opens an empty in-memory database with the schema migrated.
func OpenMemory() (Stores, func() error, error) {
	return Open(config.DatabaseConfig{Driver: DriverMemory}, false)
}

// memoryDSN names each database so separate pools in one process stay isolated.
func memoryDSN() string {
	return fmt.Sprintf("file:sipitali-%s?mode=memory&cache=shared", uuid.NewString())
}
