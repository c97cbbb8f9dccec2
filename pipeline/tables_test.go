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

package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/pipeline"
	"github.com/blinklabs-io/lovepoem/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTables(t *testing.T, store table.TableStore) *pipeline.Tables {
	t.Helper()
	ctx := context.Background()
	tables, err := pipeline.CreateTables(ctx, store, pipeline.MainTablePrefix, pipeline.AttributesTablePrefix)
	require.NoError(t, err)
	pairs, err := pipeline.Compile(testRecords(), tables.Main.Name, tables.Attributes.Name)
	require.NoError(t, err)
	report := pipeline.NewExecutor(store).Execute(ctx, pairs)
	require.NoError(t, report.Err)
	require.Equal(t, 0, report.Failed)
	return tables
}

func findAttribute(row pipeline.JoinedRow, traitType string) (token.Attribute, bool) {
	for _, attr := range row.Attributes {
		if attr.TraitType == traitType {
			return attr, true
		}
	}
	return token.Attribute{}, false
}

func TestCreateTablesNaming(t *testing.T) {
	store := newTableStore(t)
	tables, err := pipeline.CreateTables(
		context.Background(),
		store,
		pipeline.MainTablePrefix,
		pipeline.AttributesTablePrefix,
	)
	require.NoError(t, err)
	assert.Equal(t, "love_poem_main_31337_1", tables.Main.Name)
	assert.Equal(t, "1", tables.Main.ID)
	assert.Equal(t, "love_poem_attributes_31337_2", tables.Attributes.Name)
	assert.Equal(t, "2", tables.Attributes.ID)
}

func TestCreateTableFailure(t *testing.T) {
	store := newTableStore(t)
	ctx := context.Background()

	_, err := pipeline.CreateTable(ctx, store, "love_poem_main", "id int primary key,")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrTableCreation)
	assert.True(t, pipeline.IsFatal(err))

	_, err = pipeline.CreateTable(ctx, store, "bad name", pipeline.MainTableSchema)
	assert.ErrorIs(t, err, pipeline.ErrTableCreation)
	assert.ErrorIs(t, err, table.ErrInvalidIdentifier)
}

func TestUpdateAttributeGateOpen(t *testing.T) {
	store := newTableStore(t)
	tables := seedTables(t, store)
	ctx := context.Background()

	require.NoError(
		t,
		pipeline.UpdateAttribute(ctx, store, tables.Attributes.Name, 0, "Status", "GATE_OPEN"),
	)
	rows, err := pipeline.GetJoined(ctx, store, tables.Main.Name, tables.Attributes.Name)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	attr, ok := findAttribute(rows[0], "Status")
	require.True(t, ok)
	assert.Equal(t, token.Attribute{TraitType: "Status", Value: "GATE_OPEN"}, attr)
	// Other tokens keep their value
	attr, ok = findAttribute(rows[1], "Status")
	require.True(t, ok)
	assert.Equal(t, "LOCKED", attr.Value.String())
}

func TestUpdateAttributeAll(t *testing.T) {
	store := newTableStore(t)
	tables := seedTables(t, store)
	ctx := context.Background()

	require.NoError(
		t,
		pipeline.UpdateAttributeAll(ctx, store, tables.Attributes.Name, "Status", "GATE_OPEN"),
	)
	rows, err := pipeline.GetJoined(ctx, store, tables.Main.Name, tables.Attributes.Name)
	require.NoError(t, err)
	for _, row := range rows {
		attr, ok := findAttribute(row, "Status")
		require.True(t, ok)
		assert.Equal(t, "GATE_OPEN", attr.Value.String(), "token %d", row.ID)
	}
	line, ok := findAttribute(rows[0], "Line")
	require.True(t, ok)
	assert.Equal(t, "1", line.Value.String())
}

func TestUpdateAttributeFailure(t *testing.T) {
	store := newTableStore(t)
	err := pipeline.UpdateAttribute(context.Background(), store, "missing_31337_9", 0, "Status", "x")
	assert.ErrorIs(t, err, pipeline.ErrUpdate)
	assert.True(t, pipeline.IsFatal(err))
}

func TestInsertAttribute(t *testing.T) {
	store := newTableStore(t)
	tables := seedTables(t, store)
	ctx := context.Background()

	require.NoError(
		t,
		pipeline.InsertAttribute(ctx, store, 1, tables.Attributes.Name, "Stanza", "it's the second"),
	)
	rows, err := pipeline.GetJoined(ctx, store, tables.Main.Name, tables.Attributes.Name)
	require.NoError(t, err)
	attr, ok := findAttribute(rows[1], "Stanza")
	require.True(t, ok)
	assert.Equal(t, "it's the second", attr.Value.String())

	err = pipeline.InsertAttribute(ctx, store, 1, "no_such_table", "Stanza", "x")
	assert.ErrorIs(t, err, pipeline.ErrInsert)
}

func TestGetJoinedWithoutAttributes(t *testing.T) {
	store := newTableStore(t)
	ctx := context.Background()
	tables, err := pipeline.CreateTables(ctx, store, pipeline.MainTablePrefix, pipeline.AttributesTablePrefix)
	require.NoError(t, err)

	rows, err := pipeline.GetJoined(ctx, store, tables.Main.Name, tables.Attributes.Name)
	require.NoError(t, err)
	assert.Empty(t, rows)

	pairs, err := pipeline.Compile(
		[]*token.Record{{ID: 3, Name: "bare"}, {ID: 1, Name: "first"}},
		tables.Main.Name,
		tables.Attributes.Name,
	)
	require.NoError(t, err)
	report := pipeline.NewExecutor(store).Execute(ctx, pairs)
	require.Equal(t, 2, report.Succeeded)

	rows, err = pipeline.GetJoined(ctx, store, tables.Main.Name, tables.Attributes.Name)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(3), rows[1].ID)
	assert.NotNil(t, rows[1].Attributes)
	assert.Empty(t, rows[1].Attributes)

	_, err = pipeline.GetJoined(ctx, store, tables.Main.Name, "x y")
	assert.ErrorIs(t, err, pipeline.ErrRead)
}

func TestSaveLoadTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "tables.json")
	tables := &pipeline.Tables{
		Main:       pipeline.TableHandle{Name: "love_poem_main_31337_1", ID: "1"},
		Attributes: pipeline.TableHandle{Name: "love_poem_attributes_31337_2", ID: "2"},
	}
	require.NoError(t, pipeline.SaveTables(path, tables))
	loaded, err := pipeline.LoadTables(path)
	require.NoError(t, err)
	assert.Equal(t, tables, loaded)

	_, err = pipeline.LoadTables(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
