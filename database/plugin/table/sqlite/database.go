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

package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/database/plugin/table/internal/registry"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TableStoreSqlite is a SQLite-backed table service. It uses an in-memory
// database, unique to the store, when no data directory is configured
type TableStoreSqlite struct {
	registry.Store
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger
	timerVacuum  *time.Timer
	dataDir      string
	chainID      int64
	timerMutex   sync.Mutex
	vacuumWG     sync.WaitGroup
	closed       bool
}

// NewWithOptions creates a new SQLite table store. The database is opened in Start
func NewWithOptions(opts ...SqliteOptionFunc) (*TableStoreSqlite, error) {
	s := &TableStoreSqlite{
		chainID: table.DefaultChainID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = plugin.LoggerOrDiscard(s.logger)
	return s, nil
}

// Start implements the plugin.Plugin interface
func (s *TableStoreSqlite) Start() error {
	gormConfig := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
	var dsn string
	if s.dataDir == "" {
		// Each store gets its own shared-cache in-memory database
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(s.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(s.dataDir, fs.ModePerm); err != nil {
				return fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dbPath := filepath.Join(s.dataDir, "tables.sqlite")
		// WAL journal mode, wait on locks instead of failing
		connOpts := "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dsn = fmt.Sprintf("file:%s?%s", dbPath, connOpts)
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	// SQLite allows a single writer
	sqlDB.SetMaxOpenConns(1)
	s.db = db
	engine, err := registry.New(
		db,
		registry.WithLogger(s.logger),
		registry.WithPromRegistry(s.promRegistry),
		registry.WithChainID(s.chainID),
		registry.WithDriver("sqlite"),
	)
	if err != nil {
		_ = sqlDB.Close()
		s.db = nil
		return err
	}
	s.Attach(engine)
	s.logger.Info(
		"opened sqlite table store",
		"component", "table",
		"data_dir", s.dataDir,
		"chain_id", s.chainID,
	)
	s.scheduleDailyVacuum()
	return nil
}

// Stop implements the plugin.Plugin interface
func (s *TableStoreSqlite) Stop() error {
	return s.Close()
}

// Close waits for pending writes, stops background work and closes the database
func (s *TableStoreSqlite) Close() error {
	s.timerMutex.Lock()
	s.closed = true
	if s.timerVacuum != nil {
		s.timerVacuum.Stop()
		s.timerVacuum = nil
	}
	s.timerMutex.Unlock()
	// Wait for any in-flight vacuum operations to complete
	s.vacuumWG.Wait()
	if err := s.DetachEngine(); err != nil {
		return err
	}
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	s.db = nil
	return sqlDB.Close()
}

// DB returns the underlying GORM database handle
func (s *TableStoreSqlite) DB() *gorm.DB {
	return s.db
}

func (s *TableStoreSqlite) runVacuum() error {
	s.timerMutex.Lock()
	if s.dataDir == "" || s.closed || s.db == nil {
		s.timerMutex.Unlock()
		return nil
	}
	// Track this vacuum operation while we know the store is open
	s.vacuumWG.Add(1)
	db := s.db
	s.timerMutex.Unlock()
	defer s.vacuumWG.Done()
	return db.Exec("VACUUM").Error
}

// scheduleDailyVacuum schedules a daily vacuum operation
func (s *TableStoreSqlite) scheduleDailyVacuum() {
	s.timerMutex.Lock()
	defer s.timerMutex.Unlock()
	if s.closed || s.dataDir == "" {
		return
	}
	if s.timerVacuum != nil {
		s.timerVacuum.Stop()
	}
	f := func() {
		s.logger.Debug(
			"running vacuum on sqlite table database",
			"component", "table",
		)
		// schedule next run
		defer s.scheduleDailyVacuum()
		if err := s.runVacuum(); err != nil {
			s.logger.Error(
				"failed to free unused space in table store",
				"component", "table",
				"error", err,
			)
		}
	}
	s.timerVacuum = time.AfterFunc(24*time.Hour, f)
}
