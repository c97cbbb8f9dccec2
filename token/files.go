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

package token

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// ImageExt is the extension of token images
const ImageExt = ".jpeg"

// MetadataPath returns the path of the metadata document for id
func MetadataPath(metadataDir string, id int64) string {
	return filepath.Join(metadataDir, strconv.FormatInt(id, 10))
}

// ImagePath returns the path of the image for id
func ImagePath(imagesDir string, id int64) string {
	return filepath.Join(imagesDir, strconv.FormatInt(id, 10)+ImageExt)
}

// ImageName returns the file name of the image for id
func ImageName(id int64) string {
	return strconv.FormatInt(id, 10) + ImageExt
}

// Read loads the metadata document for id
func Read(metadataDir string, id int64) (*Record, error) {
	data, err := os.ReadFile(MetadataPath(metadataDir, id))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse metadata %d: %w", id, err)
	}
	rec.ID = id
	return &rec, nil
}

// Write stores rec as the metadata document for its id. The document is
// written to a temporary file and renamed into place
func Write(metadataDir string, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	path := MetadataPath(metadataDir, rec.ID)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(metadataDir, ".metadata-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once renamed
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ListIDs returns the ids of every metadata document in metadataDir in
// numeric order. Entries whose name is not a non-negative integer in canonical
// form (no sign or leading zeros) are skipped
func ListIDs(metadataDir string, logger *slog.Logger) ([]int64, error) {
	entries, err := os.ReadDir(metadataDir)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil || id < 0 || strconv.FormatInt(id, 10) != entry.Name() {
			if logger != nil {
				logger.Warn(
					fmt.Sprintf("skipping metadata file with non-canonical numeric name: %s", entry.Name()),
					"component", "token",
				)
			}
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
