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

package table

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/blinklabs-io/lovepoem/database/plugin"
)

// DefaultChainID identifies the local development network
const DefaultChainID int64 = 31337

var (
	// ErrClosed is returned for submissions to a store that has been closed
	ErrClosed = errors.New("table store closed")
	// ErrStatementFailed is returned by Txn.Wait when the service rejected the statement
	ErrStatementFailed = errors.New("statement failed")
	// ErrUnsupportedStatement is returned for statements the service does not accept
	ErrUnsupportedStatement = errors.New("unsupported statement")
	// ErrUnknownTable is returned when a statement targets a table that was never created
	ErrUnknownTable = errors.New("no such table")
	// ErrInvalidIdentifier is returned for table names that are not plain identifiers
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used as a table name or prefix
func ValidIdentifier(name string) bool {
	return identifierRegexp.MatchString(name)
}

// CheckIdentifier returns an error wrapping ErrInvalidIdentifier for bad names
func CheckIdentifier(name string) error {
	if !ValidIdentifier(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// Receipt describes a finalized write
type Receipt struct {
	TransactionHash string   `json:"transactionHash"`
	BlockNumber     int64    `json:"blockNumber"`
	ChainID         int64    `json:"chainId"`
	TableIDs        []string `json:"tableIds"`
	Names           []string `json:"names"`
	Error           string   `json:"error,omitempty"`
}

// TableID returns the first table id affected by the write, if any
func (r *Receipt) TableID() string {
	if r == nil || len(r.TableIDs) == 0 {
		return ""
	}
	return r.TableIDs[0]
}

// Name returns the first table name affected by the write, if any
func (r *Receipt) Name() string {
	if r == nil || len(r.Names) == 0 {
		return ""
	}
	return r.Names[0]
}

// Txn is a submitted write that has not necessarily been applied yet
type Txn interface {
	Hash() string
	// Wait blocks until the write is finalized. A statement rejected by the
	// service returns its receipt along with an error wrapping ErrStatementFailed
	Wait(ctx context.Context) (*Receipt, error)
}

// TableStore is a relational table service. Writes are applied in submission
// order; reads observe every write whose Txn has finalized
type TableStore interface {
	Submit(ctx context.Context, stmt Statement) (Txn, error)
	Query(ctx context.Context, stmt Statement, dest any) error
	ChainID() int64
	Close() error
}

// PreparedStatement binds arguments to a statement before it is run
type PreparedStatement struct {
	store TableStore
	stmt  Statement
}

// Prepare starts building a statement against store
func Prepare(store TableStore, sql string) *PreparedStatement {
	return &PreparedStatement{
		store: store,
		stmt:  Statement{SQL: sql},
	}
}

// Bind returns a copy of the prepared statement with args bound to its placeholders
func (p *PreparedStatement) Bind(args ...any) *PreparedStatement {
	return &PreparedStatement{
		store: p.store,
		stmt: Statement{
			SQL:  p.stmt.SQL,
			Args: append([]any(nil), args...),
		},
	}
}

// Statement returns the statement with its bound arguments
func (p *PreparedStatement) Statement() Statement {
	return p.stmt
}

// Run submits the statement as a write
func (p *PreparedStatement) Run(ctx context.Context) (Txn, error) {
	return p.store.Submit(ctx, p.stmt)
}

// All runs the statement as a read and scans every row into dest
func (p *PreparedStatement) All(ctx context.Context, dest any) error {
	return p.store.Query(ctx, p.stmt, dest)
}

// New returns the started table plugin selected by name
func New(pluginName string) (TableStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeTable, pluginName)
	if err != nil {
		return nil, err
	}
	tableStore, ok := p.(TableStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement TableStore interface",
			pluginName,
		)
	}
	return tableStore, nil
}
