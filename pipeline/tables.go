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

package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/token"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	MainTablePrefix       = "love_poem_main"
	AttributesTablePrefix = "love_poem_attributes"
	MainTableSchema       = "id int primary key, name text, description text, image text"
	AttributesTableSchema = "main_id int not null, trait_type text not null, value text"
)

var errNoTableName = errors.New("receipt carries no table name")

// TableHandle identifies a table created on the table service
type TableHandle struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Tables is the pair of tables a sync writes to
type Tables struct {
	Main       TableHandle `json:"main"`
	Attributes TableHandle `json:"attributes"`
}

// JoinedRow is a main row with its attributes nested
type JoinedRow struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	Attributes  []token.Attribute `json:"attributes"`
}

type joinedScanRow struct {
	ID          int64
	Name        sql.NullString
	Description sql.NullString
	Image       sql.NullString
	TraitType   sql.NullString
	Value       sql.NullString
}

// CreateTable creates a table named after prefix and waits for the service to assign its final name
func CreateTable(
	ctx context.Context,
	store table.TableStore,
	prefix string,
	schema string,
) (_ *TableHandle, err error) {
	ctx, span := tracer.Start(
		ctx,
		"create_table",
		trace.WithAttributes(attribute.String("table.prefix", prefix)),
	)
	defer func() { endSpan(span, err) }()
	if err := table.CheckIdentifier(prefix); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableCreation, err)
	}
	receipt, err := submitAndWait(
		ctx,
		store,
		table.Statement{
			SQL: fmt.Sprintf("CREATE TABLE %s (%s);", prefix, schema),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTableCreation, prefix, err)
	}
	if receipt.Name() == "" {
		return nil, fmt.Errorf("%w: %s: %w", ErrTableCreation, prefix, errNoTableName)
	}
	span.SetAttributes(attribute.String("table.name", receipt.Name()))
	return &TableHandle{
		Name: receipt.Name(),
		ID:   receipt.TableID(),
	}, nil
}

// CreateTables creates the main and attributes tables with the default schemas
func CreateTables(
	ctx context.Context,
	store table.TableStore,
	mainPrefix string,
	attributesPrefix string,
) (*Tables, error) {
	main, err := CreateTable(ctx, store, mainPrefix, MainTableSchema)
	if err != nil {
		return nil, err
	}
	attrs, err := CreateTable(ctx, store, attributesPrefix, AttributesTableSchema)
	if err != nil {
		return nil, err
	}
	return &Tables{
		Main:       *main,
		Attributes: *attrs,
	}, nil
}

// GetJoined returns every main row ordered by id, each with its attributes
func GetJoined(
	ctx context.Context,
	store table.TableStore,
	mainTable string,
	attributesTable string,
) (_ []JoinedRow, err error) {
	ctx, span := tracer.Start(ctx, "get_joined")
	defer func() { endSpan(span, err) }()
	if err := table.CheckIdentifier(mainTable); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if err := table.CheckIdentifier(attributesTable); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	query := fmt.Sprintf(
		"SELECT m.id AS id, m.name AS name, m.description AS description, m.image AS image, "+
			"a.trait_type AS trait_type, a.value AS value "+
			"FROM %s m LEFT JOIN %s a ON m.id = a.main_id ORDER BY m.id",
		mainTable,
		attributesTable,
	)
	var rows []joinedScanRow
	if err := table.Prepare(store, query).All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	ret := []JoinedRow{}
	for _, row := range rows {
		if len(ret) == 0 || ret[len(ret)-1].ID != row.ID {
			ret = append(
				ret,
				JoinedRow{
					ID:          row.ID,
					Name:        row.Name.String,
					Description: row.Description.String,
					Image:       row.Image.String,
					Attributes:  []token.Attribute{},
				},
			)
		}
		// A main row without attributes comes back once with NULL attribute columns
		if !row.TraitType.Valid {
			continue
		}
		last := &ret[len(ret)-1]
		last.Attributes = append(
			last.Attributes,
			token.Attribute{
				TraitType: row.TraitType.String,
				Value:     token.AttributeValue(row.Value.String),
			},
		)
	}
	return ret, nil
}

// UpdateAttribute sets the value of one trait of one token
func UpdateAttribute(
	ctx context.Context,
	store table.TableStore,
	attributesTable string,
	mainID int64,
	traitType string,
	value string,
) (err error) {
	ctx, span := tracer.Start(
		ctx,
		"update_attribute",
		trace.WithAttributes(
			attribute.Int64("token.id", mainID),
			attribute.String("attribute.trait_type", traitType),
		),
	)
	defer func() { endSpan(span, err) }()
	if err := table.CheckIdentifier(attributesTable); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	_, err = submitAndWait(
		ctx,
		store,
		table.Prepare(
			store,
			fmt.Sprintf(
				"UPDATE %s SET value = ? WHERE main_id = ? AND trait_type = ?;",
				attributesTable,
			),
		).Bind(value, mainID, traitType).Statement(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	return nil
}

// UpdateAttributeAll sets the value of a trait on every token that has it
func UpdateAttributeAll(
	ctx context.Context,
	store table.TableStore,
	attributesTable string,
	traitType string,
	value string,
) (err error) {
	ctx, span := tracer.Start(
		ctx,
		"update_attribute_all",
		trace.WithAttributes(attribute.String("attribute.trait_type", traitType)),
	)
	defer func() { endSpan(span, err) }()
	if err := table.CheckIdentifier(attributesTable); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	_, err = submitAndWait(
		ctx,
		store,
		table.Prepare(
			store,
			fmt.Sprintf("UPDATE %s SET value = ? WHERE trait_type = ?;", attributesTable),
		).Bind(value, traitType).Statement(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	return nil
}

// InsertAttribute adds a trait to a token
func InsertAttribute(
	ctx context.Context,
	store table.TableStore,
	tokenID int64,
	attributesTable string,
	traitType string,
	value string,
) (err error) {
	ctx, span := tracer.Start(
		ctx,
		"insert_attribute",
		trace.WithAttributes(
			attribute.Int64("token.id", tokenID),
			attribute.String("attribute.trait_type", traitType),
		),
	)
	defer func() { endSpan(span, err) }()
	if err := table.CheckIdentifier(attributesTable); err != nil {
		return fmt.Errorf("%w: %w", ErrInsert, err)
	}
	_, err = submitAndWait(
		ctx,
		store,
		table.Prepare(store, fmt.Sprintf(attributeInsertSQL, attributesTable)).
			Bind(tokenID, traitType, value).
			Statement(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInsert, err)
	}
	return nil
}

// LoadTables reads table handles saved by SaveTables
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ret Tables
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if ret.Main.Name == "" || ret.Attributes.Name == "" {
		return nil, fmt.Errorf("%s: missing table names", path)
	}
	return &ret, nil
}

// SaveTables stores table handles as JSON at path
func SaveTables(path string, tables *Tables) error {
	data, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func submitAndWait(
	ctx context.Context,
	store table.TableStore,
	stmt table.Statement,
) (*table.Receipt, error) {
	txn, err := store.Submit(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return txn.Wait(ctx)
}
