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

package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/lovepoem/database/plugin/pin/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.png"), "bbb")
	writeFile(t, filepath.Join(dir, "nested", "a.png"), "aaa")
	m, err := manifest.Build(dir)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "b.png", m.Entries[0].Name)
	assert.Equal(t, "nested/a.png", m.Entries[1].Name)
	assert.Equal(t, int64(3), m.Entries[0].Size)
	assert.True(t, manifest.Valid(m.Hash))
}

func TestBuildSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.png")
	writeFile(t, path, "image")
	m, err := manifest.Build(path)
	require.NoError(t, err)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, "1.png", m.Entries[0].Name)
	assert.Equal(t, path, m.Entries[0].Path)
}

func TestBuildStableHash(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "1.png"), "same")
	writeFile(t, filepath.Join(second, "1.png"), "same")
	m1, err := manifest.Build(first)
	require.NoError(t, err)
	m2, err := manifest.Build(second)
	require.NoError(t, err)
	assert.Equal(t, m1.Hash, m2.Hash)

	writeFile(t, filepath.Join(second, "1.png"), "changed")
	m3, err := manifest.Build(second)
	require.NoError(t, err)
	assert.NotEqual(t, m1.Hash, m3.Hash)
}

func TestBuildEmpty(t *testing.T) {
	_, err := manifest.Build(t.TempDir())
	require.ErrorIs(t, err, manifest.ErrEmpty)

	_, err = manifest.Build(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, manifest.Valid("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"))
	assert.False(t, manifest.Valid("not-a-cid"))
	assert.False(t, manifest.Valid(""))
}
