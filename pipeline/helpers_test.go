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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin/badger"
	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/database/plugin/table/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDirs struct {
	metadata string
	images   string
}

func newTestDirs(t *testing.T) testDirs {
	t.Helper()
	root := t.TempDir()
	ret := testDirs{
		metadata: filepath.Join(root, "metadata"),
		images:   filepath.Join(root, "images"),
	}
	require.NoError(t, os.MkdirAll(ret.metadata, 0o755))
	require.NoError(t, os.MkdirAll(ret.images, 0o755))
	return ret
}

func (d testDirs) writeDoc(t *testing.T, id int64, doc string) {
	t.Helper()
	require.NoError(
		t,
		os.WriteFile(
			filepath.Join(d.metadata, strconv.FormatInt(id, 10)),
			[]byte(doc),
			0o644,
		),
	)
}

func (d testDirs) readDoc(t *testing.T, id int64) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(d.metadata, strconv.FormatInt(id, 10)))
	require.NoError(t, err)
	return data
}

func (d testDirs) writeImage(t *testing.T, id int64, data string) {
	t.Helper()
	require.NoError(
		t,
		os.WriteFile(
			filepath.Join(d.images, strconv.FormatInt(id, 10)+".jpeg"),
			[]byte(data),
			0o644,
		),
	)
}

func poemDoc(id int64, image string, status string) string {
	return fmt.Sprintf(
		`{"name":"Poem %d","description":"verse %d","image":%q,"attributes":[{"trait_type":"Status","value":%q}]}`,
		id,
		id,
		image,
		status,
	)
}

func newPinStore(t *testing.T) *badger.PinStoreBadger {
	t.Helper()
	store, err := badger.New(badger.WithDataDir(""))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func newTableStore(t *testing.T) *sqlite.TableStoreSqlite {
	t.Helper()
	store, err := sqlite.NewWithOptions(sqlite.WithDataDir(""))
	require.NoError(t, err)
	require.NoError(t, store.Start())
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// fakePinStore pins by hashing file contents and can be told to fail
type fakePinStore struct {
	mu        sync.Mutex
	pinned    map[string]bool
	pinCalls  []string
	failNames map[string]bool
	verifyErr error
}

func newFakePinStore() *fakePinStore {
	return &fakePinStore{
		pinned:    make(map[string]bool),
		failNames: make(map[string]bool),
	}
}

func (f *fakePinStore) Pin(_ context.Context, localPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinCalls = append(f.pinCalls, localPath)
	if f.failNames[filepath.Base(localPath)] {
		return "", fmt.Errorf("%w: refused %s", pin.ErrUpload, localPath)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", pin.ErrUpload, err)
	}
	sum := sha256.Sum256(data)
	hash := "Qm" + hex.EncodeToString(sum[:16])
	f.pinned[hash] = true
	return hash, nil
}

func (f *fakePinStore) Verify(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	return f.pinned[hash], nil
}

func (f *fakePinStore) Close() error {
	return nil
}

func (f *fakePinStore) pinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pinCalls)
}

// orderingStore fails the test if a statement is submitted while another is
// still waiting to finalize
type orderingStore struct {
	table.TableStore
	t         *testing.T
	mu        sync.Mutex
	pending   bool
	submitted []string
}

type orderingTxn struct {
	table.Txn
	store *orderingStore
}

func (s *orderingStore) Submit(
	ctx context.Context,
	stmt table.Statement,
) (table.Txn, error) {
	s.mu.Lock()
	assert.False(s.t, s.pending, "submitted before previous statement finalized: %s", stmt.Literal())
	s.mu.Unlock()
	txn, err := s.TableStore.Submit(ctx, stmt)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.pending = true
	s.submitted = append(s.submitted, stmt.Literal())
	s.mu.Unlock()
	return &orderingTxn{Txn: txn, store: s}, nil
}

func (t *orderingTxn) Wait(ctx context.Context) (*table.Receipt, error) {
	receipt, err := t.Txn.Wait(ctx)
	t.store.mu.Lock()
	t.store.pending = false
	t.store.mu.Unlock()
	return receipt, err
}
