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

package mysql

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/database/plugin/table/internal/registry"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// errUnknownDatabase is the MySQL error number for a missing database
const errUnknownDatabase = 1049

// TableStoreMysql is a MySQL-backed table service.
type TableStoreMysql struct {
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
	dsn      string // Data source name (MySQL connection string)
	chainID  int64
}

// NewWithOptions creates a new table store with options
func NewWithOptions(opts ...MysqlOptionFunc) (*TableStoreMysql, error) {
	s := &TableStoreMysql{}
	for _, opt := range opts {
		opt(s)
	}
	// Set defaults after options are applied (no side effects)
	if s.host == "" {
		s.host = "localhost"
	}
	if s.port == 0 {
		s.port = 3306
	}
	if s.user == "" {
		s.user = "root"
	}
	if s.database == "" {
		s.database = "lovepoem"
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

// buildDSN returns the configured DSN and database name, assembling the DSN
// from the individual options when none is set
func (s *TableStoreMysql) buildDSN() (string, string) {
	dsn := strings.TrimSpace(s.dsn)
	if dsn != "" {
		if parsed, err := mysql.ParseDSN(dsn); err == nil {
			return dsn, parsed.DBName
		}
		return dsn, s.database
	}
	cfg := mysql.NewConfig()
	cfg.User = s.user
	cfg.Passwd = s.password
	cfg.Net = "tcp"
	cfg.Addr = s.host + ":" + strconv.FormatUint(uint64(s.port), 10)
	cfg.DBName = s.database
	cfg.ParseTime = true
	cfg.AllowNativePasswords = true
	if s.timeZone != "" {
		loc, err := time.LoadLocation(s.timeZone)
		if err != nil {
			loc = time.UTC
		}
		cfg.Loc = loc
	}
	cfg.TLSConfig = s.sslMode
	return cfg.FormatDSN(), s.database
}

func (s *TableStoreMysql) open(dsn string) (*gorm.DB, error) {
	return gorm.Open(
		gormmysql.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
}

// Start implements the plugin.Plugin interface
func (s *TableStoreMysql) Start() error {
	dsn, dbName := s.buildDSN()
	db, err := s.open(dsn)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != errUnknownDatabase {
			return err
		}
		if createErr := s.ensureDatabaseExists(dsn, dbName); createErr != nil {
			return fmt.Errorf("%w (create database: %w)", err, createErr)
		}
		if db, err = s.open(dsn); err != nil {
			return err
		}
	}
	s.logger.Info(
		"connected to mysql table store",
		"component", "table",
		"host", s.host,
		"port", s.port,
		"database", dbName,
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
		registry.WithDriver("mysql"),
	)
	if err != nil {
		return err
	}
	s.Attach(engine)
	return nil
}

func (s *TableStoreMysql) ensureDatabaseExists(dsn string, dbName string) error {
	if dbName == "" {
		return errors.New("no database name in DSN")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return err
	}
	cfg.DBName = ""
	adminDb, err := s.open(cfg.FormatDSN())
	if err != nil {
		return err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return err
	}
	defer sqlAdminDb.Close()
	s.logger.Info(
		"creating mysql database "+dbName,
		"component", "table",
	)
	return adminDb.Exec(
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName),
	).Error
}

// Stop implements the plugin.Plugin interface
func (s *TableStoreMysql) Stop() error {
	return s.Close()
}

// Close waits for pending writes and closes the database handle
func (s *TableStoreMysql) Close() error {
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
func (s *TableStoreMysql) DB() *gorm.DB {
	return s.db
}
