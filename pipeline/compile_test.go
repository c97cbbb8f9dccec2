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
	"testing"

	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/pipeline"
	"github.com/blinklabs-io/lovepoem/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFreshRecord(t *testing.T) {
	dirs := newTestDirs(t)
	dirs.writeDoc(
		t,
		0,
		`{"id":0,"name":"A","description":"d","image":"","attributes":[{"trait_type":"Status","value":"LOCKED"}]}`,
	)
	dirs.writeImage(t, 0, "image-zero")
	store := newFakePinStore()

	rec, err := newNormalizer(dirs, store).Normalize(context.Background(), 0)
	require.NoError(t, err)
	hash, ok := token.ContentHash(rec.Image)
	require.True(t, ok)
	image := testGateway + "/ipfs/" + hash + "/0.jpeg"
	assert.Equal(t, image, rec.Image)

	pairs, err := pipeline.Compile([]*token.Record{rec}, "main", "attributes")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(
		t,
		"INSERT INTO main (id, name, description, image) VALUES (0, 'A', 'd', '"+image+"');",
		pairs[0].Main.Literal(),
	)
	require.Len(t, pairs[0].Attributes, 1)
	assert.Equal(
		t,
		"INSERT INTO attributes (main_id, trait_type, value) VALUES (0, 'Status', 'LOCKED');",
		pairs[0].Attributes[0].Literal(),
	)
}

func TestCompileBindsValues(t *testing.T) {
	rec := &token.Record{
		ID:          9,
		Name:        "O'Hara",
		Description: "it's; DROP TABLE main",
		Image:       "https://gateway.example.com/ipfs/QmX/9.jpeg",
		Attributes: []token.Attribute{
			{TraitType: "Mood", Value: "won't"},
		},
	}
	pairs, err := pipeline.Compile([]*token.Record{rec}, "main", "attributes")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	main := pairs[0].Main
	assert.Equal(t, "INSERT INTO main (id, name, description, image) VALUES (?, ?, ?, ?);", main.SQL)
	assert.Equal(t, []any{int64(9), "O'Hara", "it's; DROP TABLE main", rec.Image}, main.Args)
	assert.Equal(
		t,
		"INSERT INTO main (id, name, description, image) VALUES (9, 'O''Hara', 'it''s; DROP TABLE main', 'https://gateway.example.com/ipfs/QmX/9.jpeg');",
		main.Literal(),
	)
	assert.Equal(t, []any{int64(9), "Mood", "won't"}, pairs[0].Attributes[0].Args)

	// Quoted text with placeholders survives a real table untouched
	store := newTableStore(t)
	ctx := context.Background()
	tables, err := pipeline.CreateTables(ctx, store, pipeline.MainTablePrefix, pipeline.AttributesTablePrefix)
	require.NoError(t, err)
	pairs, err = pipeline.Compile([]*token.Record{rec}, tables.Main.Name, tables.Attributes.Name)
	require.NoError(t, err)
	report := pipeline.NewExecutor(store).Execute(ctx, pairs)
	require.NoError(t, report.Err)
	assert.Equal(t, 2, report.Succeeded)
	rows, err := pipeline.GetJoined(ctx, store, tables.Main.Name, tables.Attributes.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "O'Hara", rows[0].Name)
	assert.Equal(t, "it's; DROP TABLE main", rows[0].Description)
	assert.Equal(t, "won't", rows[0].Attributes[0].Value.String())
}

func TestCompileIsDeterministic(t *testing.T) {
	records := []*token.Record{
		{ID: 2, Name: "B", Attributes: []token.Attribute{{TraitType: "Status", Value: "LOCKED"}, {TraitType: "Line", Value: "3"}}},
		{ID: 1, Name: "A"},
	}
	first, err := pipeline.Compile(records, "main", "attributes")
	require.NoError(t, err)
	second, err := pipeline.Compile(records, "main", "attributes")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Input order is kept
	require.Len(t, first, 2)
	assert.Equal(t, int64(2), first[0].ID)
	assert.Equal(t, int64(1), first[1].ID)
	require.Len(t, first[0].Attributes, 2)
	assert.Equal(t, "Status", first[0].Attributes[0].Args[1])
	assert.Equal(t, "Line", first[0].Attributes[1].Args[1])
	assert.Empty(t, first[1].Attributes)
}

func TestCompileRejectsTableNames(t *testing.T) {
	records := []*token.Record{{ID: 1, Name: "A"}}
	for _, names := range [][2]string{
		{"main; DROP TABLE x", "attributes"},
		{"main", "attributes--"},
		{"", "attributes"},
		{"1main", "attributes"},
	} {
		_, err := pipeline.Compile(records, names[0], names[1])
		assert.ErrorIs(t, err, table.ErrInvalidIdentifier, "names %v", names)
	}
	_, err := pipeline.Compile([]*token.Record{nil}, "main", "attributes")
	assert.Error(t, err)
}
