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

package badger_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin/badger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...badger.PinStoreBadgerOptionFunc) *badger.PinStoreBadger {
	t.Helper()
	opts = append([]badger.PinStoreBadgerOptionFunc{badger.WithDataDir("")}, opts...)
	store, err := badger.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func writeFile(t *testing.T, dir string, name string, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestPinAndVerify(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := newTestStore(t, badger.WithPromRegistry(reg))
	ctx := context.Background()
	imagePath := writeFile(t, t.TempDir(), "0.jpeg", "image-zero")

	hash, err := store.Pin(ctx, imagePath)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	pinned, err := store.Verify(ctx, hash)
	require.NoError(t, err)
	assert.True(t, pinned)

	data, err := store.Get(hash, "0.jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image-zero", string(data))

	assert.Equal(
		t,
		1.0,
		testutil.ToFloat64(store.Metrics().Pins),
	)
}

func TestPinSameContentTwice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	first, err := store.Pin(ctx, writeFile(t, dir, "a/1.jpeg", "same"))
	require.NoError(t, err)
	second, err := store.Pin(ctx, writeFile(t, dir, "b/1.jpeg", "same"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A different name is different content
	third, err := store.Pin(ctx, writeFile(t, dir, "c/2.jpeg", "same"))
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestPinDirectory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "0.jpeg", "zero")
	writeFile(t, dir, "1.jpeg", "one")

	hash, err := store.Pin(ctx, dir)
	require.NoError(t, err)
	data, err := store.Get(hash, "1.jpeg")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestVerifyUnknownHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Valid CIDv0 that was never pinned
	pinned, err := store.Verify(ctx, "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG")
	require.NoError(t, err)
	assert.False(t, pinned)

	pinned, err = store.Verify(ctx, "not-a-cid")
	require.NoError(t, err)
	assert.False(t, pinned)
}

func TestPinMissingFile(t *testing.T) {
	store := newTestStore(t)
	hash, err := store.Pin(
		context.Background(),
		filepath.Join(t.TempDir(), "missing.jpeg"),
	)
	require.ErrorIs(t, err, pin.ErrUpload)
	assert.Empty(t, hash)
}
