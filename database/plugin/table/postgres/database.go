// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/database/plugin/table/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TableStorePostgres is a Postgres-backed table service.
type TableStorePostgres struct {
	registry.Store
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger

	host     string
	port     uint
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string // Data source name (postgres connection string)
	chainID  int64
}

// NewWithOptions creates a new table store with options
func NewWithOptions(opts ...PostgresOptionFunc) (*TableStorePostgres, error) {
	s := &TableStorePostgres{}
	for _, opt := range opts {
		opt(s)
	}
	// Set defaults after options are applied (no side effects)
	if s.host == "" {
		s.host = "localhost"
	}
	if s.port == 0 {
		s.port = 5432
	}
	if s.user == "" {
		s.user = "postgres"
	}
	if s.database == "" {
		s.database = "postgres"
	}
	if s.sslMode == "" {
		s.sslMode = "disable"
	}
	if s.timeZone == "" {
		s.timeZone = "UTC"
	}
	if s.chainID == 0 {
		s.chainID = table.DefaultChainID
	}
	s.logger = plugin.LoggerOrDiscard(s.logger)
	// Note: Database initialization happens in Start()
	return s, nil
}

// buildDSN returns the configured DSN or assembles one from the individual options
func (s *TableStorePostgres) buildDSN() string {
	dsn := strings.TrimSpace(s.dsn)
	if dsn != "" {
		return dsn
	}
	parts := []string{
		"host=" + s.host,
		"user=" + s.user,
		"password=" + s.password,
		"dbname=" + s.database,
		"port=" + strconv.FormatUint(uint64(s.port), 10),
		"sslmode=" + s.sslMode,
	}
	if s.timeZone != "" {
		parts = append(parts, "TimeZone="+s.timeZone)
	}
	return strings.Join(parts, " ")
}

// Start implements the plugin.Plugin interface
func (s *TableStorePostgres) Start() error {
	db, err := gorm.Open(
		postgres.Open(s.buildDSN()),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
	if err != nil {
		return err
	}
	s.logger.Info(
		"connected to postgres table store",
		"component", "table",
		"host", s.host,
		"port", s.port,
		"database", s.database,
	)
	s.db = db
	// Configure connection pool
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	engine, err := registry.New(
		db,
		registry.WithLogger(s.logger),
		registry.WithPromRegistry(s.promRegistry),
		registry.WithChainID(s.chainID),
		registry.WithDriver("postgres"),
	)
	if err != nil {
		// The store is available for recovery, so return error but keep the handle
		return err
	}
	s.Attach(engine)
	return nil
}

// Stop implements the plugin.Plugin interface
func (s *TableStorePostgres) Stop() error {
	return s.Close()
}

// Close waits for pending writes and closes the database handle
func (s *TableStorePostgres) Close() error {
	if err := s.DetachEngine(); err != nil {
		return err
	}
	// Guard against nil DB handle (e.g., if Start() failed or was never called)
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}

// DB returns the database handle
func (s *TableStorePostgres) DB() *gorm.DB {
	return s.db
}
