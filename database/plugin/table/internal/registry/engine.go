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

// Package registry applies table statements the way a decentralized table
// service does: CREATE TABLE registers a prefix and receives a generated
// {prefix}_{chainId}_{tableId} name, writes are only accepted for registered
// tables, and every write is applied by a single writer in submission order
// and finalized with a receipt.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

const defaultQueueSize = 1024

var (
	createRegexp = regexp.MustCompile(
		`(?is)^create\s+table\s+([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)\s*;?$`,
	)
	writeRegexp = regexp.MustCompile(
		`(?is)^(insert\s+into|update|delete\s+from)\s+([A-Za-z_][A-Za-z0-9_]*)\b`,
	)
	selectRegexp = regexp.MustCompile(`(?is)^(select|with)\b`)
)

type Engine struct {
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger
	metrics      *metrics
	queue        chan *pendingTxn
	driver       string
	wg           sync.WaitGroup
	mu           sync.RWMutex
	nonce        atomic.Uint64
	chainID      int64
	block        int64
	queueSize    int
	closed       bool
}

// New creates the registry tables if needed and starts the writer
func New(db *gorm.DB, opts ...EngineOptionFunc) (*Engine, error) {
	e := &Engine{
		db:        db,
		chainID:   table.DefaultChainID,
		driver:    "unknown",
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = plugin.LoggerOrDiscard(e.logger)
	if e.queueSize <= 0 {
		e.queueSize = defaultQueueSize
	}
	// Configure tracing for GORM
	if err := e.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil &&
		!errors.Is(err, gorm.ErrRegistered) {
		return nil, err
	}
	for _, model := range MigrateModels {
		e.logger.Debug(
			fmt.Sprintf("creating table: %#v", model),
			"component", "table",
		)
		if err := e.db.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	// Continue the block sequence of an existing database
	var lastBlock int64
	if err := e.db.Model(&Receipt{}).
		Select("COALESCE(MAX(block_number), 0)").
		Scan(&lastBlock).Error; err != nil {
		return nil, err
	}
	e.block = lastBlock
	e.metrics = newMetrics(e.promRegistry, e.driver)
	e.metrics.blockNumber.Set(float64(lastBlock))
	e.queue = make(chan *pendingTxn, e.queueSize)
	e.wg.Add(1)
	go e.writer()
	return e, nil
}

func (e *Engine) ChainID() int64 {
	return e.chainID
}

func (e *Engine) DB() *gorm.DB {
	return e.db
}

// Close stops accepting writes and waits for every queued write to be applied.
// The database handle is left open
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}

// Submit queues a write and returns its pending transaction
func (e *Engine) Submit(
	ctx context.Context,
	stmt table.Statement,
) (table.Txn, error) {
	if strings.TrimSpace(stmt.SQL) == "" {
		return nil, fmt.Errorf("%w: empty statement", table.ErrUnsupportedStatement)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, table.ErrClosed
	}
	p := &pendingTxn{
		stmt: stmt,
		hash: e.txnHash(stmt),
		done: make(chan struct{}),
	}
	e.metrics.queueDepth.Inc()
	select {
	case e.queue <- p:
		return p, nil
	case <-ctx.Done():
		e.metrics.queueDepth.Dec()
		return nil, ctx.Err()
	}
}

// Query runs a read-only statement and scans the result into dest
func (e *Engine) Query(
	ctx context.Context,
	stmt table.Statement,
	dest any,
) error {
	if !selectRegexp.MatchString(strings.TrimSpace(stmt.SQL)) {
		return fmt.Errorf(
			"%w: only SELECT is allowed in reads",
			table.ErrUnsupportedStatement,
		)
	}
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return table.ErrClosed
	}
	return e.db.WithContext(ctx).Raw(stmt.SQL, stmt.Args...).Scan(dest).Error
}

// Tables returns the registered tables ordered by id
func (e *Engine) Tables(ctx context.Context) ([]Table, error) {
	var ret []Table
	if err := e.db.WithContext(ctx).Order("id").Find(&ret).Error; err != nil {
		return nil, err
	}
	return ret, nil
}

// Receipt looks up the receipt of a finalized write
func (e *Engine) Receipt(
	ctx context.Context,
	hash string,
) (*table.Receipt, error) {
	var rec Receipt
	if err := e.db.WithContext(ctx).
		Where("transaction_hash = ?", hash).
		First(&rec).Error; err != nil {
		return nil, err
	}
	return rec.toReceipt(), nil
}

func (e *Engine) txnHash(stmt table.Statement) string {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(e.chainID)) //nolint:gosec // chain ids are positive
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], e.nonce.Add(1))
	h.Write(buf[:])
	h.Write([]byte(stmt.SQL))
	fmt.Fprintf(h, "%#v", stmt.Args)
	fmt.Fprintf(h, "%d", time.Now().UnixNano())
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func (e *Engine) writer() {
	defer e.wg.Done()
	for p := range e.queue {
		e.metrics.queueDepth.Dec()
		p.receipt = e.apply(p)
		close(p.done)
	}
}

func (e *Engine) apply(p *pendingTxn) *table.Receipt {
	start := time.Now()
	e.block++
	receipt := &table.Receipt{
		TransactionHash: p.hash,
		BlockNumber:     e.block,
		ChainID:         e.chainID,
	}
	kind, tables, err := e.execute(p.stmt)
	for _, t := range tables {
		receipt.TableIDs = append(
			receipt.TableIDs,
			strconv.FormatUint(t.ID, 10),
		)
		receipt.Names = append(receipt.Names, t.Name)
	}
	result := "success"
	if err != nil {
		result = "failure"
		receipt.Error = err.Error()
		e.logger.Warn(
			fmt.Sprintf("statement rejected in block %d: %s", e.block, err),
			"component", "table",
			"txn", p.hash,
		)
	} else {
		e.logger.Debug(
			fmt.Sprintf("applied %s statement in block %d", kind, e.block),
			"component", "table",
			"txn", p.hash,
		)
	}
	e.metrics.statements.WithLabelValues(kind, result).Inc()
	rec := Receipt{
		TransactionHash: receipt.TransactionHash,
		BlockNumber:     receipt.BlockNumber,
		ChainID:         receipt.ChainID,
		TableIDs:        strings.Join(receipt.TableIDs, ","),
		Names:           strings.Join(receipt.Names, ","),
		Statement:       p.stmt.SQL,
		Error:           receipt.Error,
	}
	if err := e.db.Create(&rec).Error; err != nil {
		e.logger.Error(
			fmt.Sprintf("failed to store receipt: %s", err),
			"component", "table",
			"txn", p.hash,
		)
	}
	e.metrics.blockNumber.Set(float64(e.block))
	e.metrics.applySeconds.Observe(time.Since(start).Seconds())
	return receipt
}

func (e *Engine) execute(stmt table.Statement) (string, []Table, error) {
	sql := strings.TrimSpace(stmt.SQL)
	if m := createRegexp.FindStringSubmatch(sql); m != nil {
		t, err := e.createTable(m[1], strings.TrimSpace(m[2]))
		if err != nil {
			return "create", nil, err
		}
		return "create", []Table{t}, nil
	}
	if m := writeRegexp.FindStringSubmatch(sql); m != nil {
		kind := strings.ToLower(strings.Fields(m[1])[0])
		var t Table
		err := e.db.Where("name = ?", m[2]).First(&t).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return kind, nil, fmt.Errorf("%w: %s", table.ErrUnknownTable, m[2])
			}
			return kind, nil, err
		}
		if err := e.db.Exec(sql, stmt.Args...).Error; err != nil {
			return kind, []Table{t}, err
		}
		return kind, []Table{t}, nil
	}
	return "unknown", nil, fmt.Errorf(
		"%w: %s",
		table.ErrUnsupportedStatement,
		firstWord(sql),
	)
}

func (e *Engine) createTable(prefix string, schema string) (Table, error) {
	t := Table{
		Prefix:  prefix,
		Schema:  schema,
		ChainID: e.chainID,
		Block:   e.block,
	}
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		t.Name = fmt.Sprintf("%s_%d_%d", prefix, e.chainID, t.ID)
		if err := tx.Model(&t).Update("name", t.Name).Error; err != nil {
			return err
		}
		return tx.Exec(
			fmt.Sprintf("CREATE TABLE %s (%s)", t.Name, schema),
		).Error
	})
	if err != nil {
		return Table{}, err
	}
	e.metrics.tablesCreated.Inc()
	e.logger.Info(
		fmt.Sprintf("created table %s", t.Name),
		"component", "table",
	)
	return t, nil
}

func firstWord(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func (r *Receipt) toReceipt() *table.Receipt {
	ret := &table.Receipt{
		TransactionHash: r.TransactionHash,
		BlockNumber:     r.BlockNumber,
		ChainID:         r.ChainID,
		Error:           r.Error,
	}
	if r.TableIDs != "" {
		ret.TableIDs = strings.Split(r.TableIDs, ",")
	}
	if r.Names != "" {
		ret.Names = strings.Split(r.Names, ",")
	}
	return ret
}

type pendingTxn struct {
	receipt *table.Receipt
	done    chan struct{}
	hash    string
	stmt    table.Statement
}

func (p *pendingTxn) Hash() string {
	return p.hash
}

func (p *pendingTxn) Wait(ctx context.Context) (*table.Receipt, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if p.receipt.Error != "" {
		return p.receipt, fmt.Errorf(
			"%w: %s",
			table.ErrStatementFailed,
			p.receipt.Error,
		)
	}
	return p.receipt, nil
}
