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

// Package manifest derives content identifiers for pin backends that do not
// compute their own, such as object stores and the local badger store.
//
// The identifier is a CIDv0 over a listing of (name, sha256(content)) pairs.
// It is stable for identical content but is not the hash an IPFS node would
// assign to the same files.
package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Entry is a single file included in a pin
type Entry struct {
	// Name is the path of the file inside the pinned directory, using '/' separators
	Name string
	// Path is the local path the content is read from
	Path   string
	Size   int64
	Digest [sha256.Size]byte
}

type Manifest struct {
	Hash    string
	Entries []Entry
}

var ErrEmpty = errors.New("nothing to pin")

// Build walks localPath and computes the manifest. A single file is pinned under
// its base name; a directory contributes every regular file below it
func Build(localPath string) (*Manifest, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if !info.IsDir() {
		entry, err := newEntry(localPath, filepath.Base(localPath))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	} else {
		err := filepath.WalkDir(
			localPath,
			func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.Type().IsRegular() {
					return nil
				}
				rel, err := filepath.Rel(localPath, path)
				if err != nil {
					return err
				}
				entry, err := newEntry(path, filepath.ToSlash(rel))
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			},
		)
		if err != nil {
			return nil, err
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", localPath, ErrEmpty)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	hash, err := hashEntries(entries)
	if err != nil {
		return nil, err
	}
	return &Manifest{
		Hash:    hash,
		Entries: entries,
	}, nil
}

// Valid reports whether hash parses as a content identifier
func Valid(hash string) bool {
	_, err := cid.Decode(hash)
	return err == nil
}

func newEntry(path string, name string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()
	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", path, err)
	}
	entry := Entry{
		Name: name,
		Path: path,
		Size: size,
	}
	copy(entry.Digest[:], h.Sum(nil))
	return entry, nil
}

func hashEntries(entries []Entry) (string, error) {
	var buf bytes.Buffer
	for _, entry := range entries {
		buf.WriteString(entry.Name)
		buf.WriteByte(0)
		buf.WriteString(hex.EncodeToString(entry.Digest[:]))
		buf.WriteByte('\n')
	}
	mh, err := multihash.Sum(buf.Bytes(), multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV0(mh).String(), nil
}
