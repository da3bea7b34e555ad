// Package db manages the embedded DuckDB connection backing the demo
// agent's spatial queries.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration. An empty DataDir opens an
// in-memory database, which is what demo mode uses.
type Config struct {
	DataDir string
	DBName  string
}

// Get returns the singleton DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		dsn := ""
		if cfg.DataDir != "" {
			duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
			if err := os.MkdirAll(duckdbDir, 0755); err != nil {
				initErr = fmt.Errorf("failed to create duckdb directory: %w", err)
				return
			}
			dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
		}
		instance, initErr = sql.Open("duckdb", dsn)
		if initErr != nil {
			return
		}

		// Load extensions
		for _, ext := range []string{"spatial"} {
			if _, err := instance.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
				// Extension might already be installed, continue
			}
		}
	})
	return instance, initErr
}

// Close closes the database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}
