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

package sqlite_test

import (
	"context"
	"testing"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/database/plugin/table/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poemRow struct {
	Name string
	ID   int64
}

func newStore(t *testing.T, opts ...sqlite.SqliteOptionFunc) *sqlite.TableStoreSqlite {
	t.Helper()
	s, err := sqlite.NewWithOptions(opts...)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestPrepareBindRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	txn, err := table.Prepare(s, "CREATE TABLE love_poem_main (id int primary key, name text);").
		Run(ctx)
	require.NoError(t, err)
	receipt, err := txn.Wait(ctx)
	require.NoError(t, err)
	name := receipt.Name()
	assert.Equal(t, "love_poem_main_31337_1", name)
	assert.Equal(t, txn.Hash(), receipt.TransactionHash)

	insert := table.Prepare(s, "INSERT INTO "+name+" (id, name) VALUES (?, ?);")
	for i, poem := range []string{"Roses", "Violets"} {
		txn, err := insert.Bind(i, poem).Run(ctx)
		require.NoError(t, err)
		_, err = txn.Wait(ctx)
		require.NoError(t, err)
	}

	var rows []poemRow
	require.NoError(t, table.Prepare(s, "SELECT id, name FROM "+name+" ORDER BY id").All(ctx, &rows))
	assert.Equal(t, []poemRow{{ID: 0, Name: "Roses"}, {ID: 1, Name: "Violets"}}, rows)
}

func TestIndependentInMemoryStores(t *testing.T) {
	ctx := context.Background()
	a := newStore(t)
	b := newStore(t, sqlite.WithChainID(5))

	txn, err := table.Prepare(a, "CREATE TABLE x (id int)").Run(ctx)
	require.NoError(t, err)
	_, err = txn.Wait(ctx)
	require.NoError(t, err)

	txn, err = table.Prepare(b, "CREATE TABLE x (id int)").Run(ctx)
	require.NoError(t, err)
	receipt, err := txn.Wait(ctx)
	require.NoError(t, err)
	// The second store has its own registry
	assert.Equal(t, "x_5_1", receipt.Name())
	assert.Equal(t, int64(5), b.ChainID())
}

func TestDataDirPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := sqlite.NewWithOptions(sqlite.WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	txn, err := table.Prepare(s, "CREATE TABLE kept (id int)").Run(ctx)
	require.NoError(t, err)
	receipt, err := txn.Wait(ctx)
	require.NoError(t, err)
	txn, err = table.Prepare(s, "INSERT INTO "+receipt.Name()+" (id) VALUES (?)").Bind(7).Run(ctx)
	require.NoError(t, err)
	_, err = txn.Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2 := newStore(t, sqlite.WithDataDir(dir))
	var ids []int64
	require.NoError(t, table.Prepare(s2, "SELECT id FROM "+receipt.Name()).All(ctx, &ids))
	assert.Equal(t, []int64{7}, ids)
}

func TestSubmitBeforeStart(t *testing.T) {
	s, err := sqlite.NewWithOptions()
	require.NoError(t, err)
	_, err = table.Prepare(s, "CREATE TABLE x (id int)").Run(context.Background())
	require.Error(t, err)
	assert.NoError(t, s.Close())
}

func TestNewFromRegistry(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeTable, "sqlite", "data-dir", ""))
	store, err := table.New("sqlite")
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, table.DefaultChainID, store.ChainID())
}
