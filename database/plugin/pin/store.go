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

package pin

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/lovepoem/database/plugin"
)

var (
	// ErrUpload is returned when the store is unreachable or rejects content
	ErrUpload = errors.New("upload failed")
	// ErrVerificationQuery is returned when the pin status query itself fails.
	// Callers treat it as "not verified"
	ErrVerificationQuery = errors.New("verification query failed")
	// ErrInvalidHash is returned for content hashes that cannot be parsed
	ErrInvalidHash = errors.New("invalid content hash")
)

// PinStore is a content-addressable blob store with a pin-and-verify interface
type PinStore interface {
	// Pin uploads a local file or directory and returns its content hash.
	// A failure returns an empty hash and an error wrapping ErrUpload
	Pin(ctx context.Context, localPath string) (string, error)
	// Verify reports whether at least one pinned entry matches hash. A failed
	// query returns false and an error wrapping ErrVerificationQuery
	Verify(ctx context.Context, hash string) (bool, error)
	Close() error
}

// UploadResult is the outcome of pinning content and checking its status
type UploadResult struct {
	ContentHash string
	Verified    bool
}

// Upload pins localPath and immediately verifies the returned hash. An upload
// failure is returned as an error; a verification failure only leaves Verified unset
func Upload(
	ctx context.Context,
	store PinStore,
	localPath string,
) (UploadResult, error) {
	hash, err := store.Pin(ctx, localPath)
	if err != nil {
		return UploadResult{}, err
	}
	if hash == "" {
		return UploadResult{}, fmt.Errorf("%w: empty content hash for %s", ErrUpload, localPath)
	}
	verified, _ := store.Verify(ctx, hash)
	return UploadResult{
		ContentHash: hash,
		Verified:    verified,
	}, nil
}

// New returns the started pin plugin selected by name
func New(pluginName string) (PinStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypePin, pluginName)
	if err != nil {
		return nil, err
	}
	pinStore, ok := p.(PinStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement PinStore interface",
			pluginName,
		)
	}
	return pinStore, nil
}
