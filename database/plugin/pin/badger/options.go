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

package badger

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type PinStoreBadgerOptionFunc func(*PinStoreBadger)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) PinStoreBadgerOptionFunc {
	return func(b *PinStoreBadger) {
		b.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(
	registry prometheus.Registerer,
) PinStoreBadgerOptionFunc {
	return func(b *PinStoreBadger) {
		b.promRegistry = registry
	}
}

// WithDataDir specifies the data directory. An empty value keeps everything in memory
func WithDataDir(dataDir string) PinStoreBadgerOptionFunc {
	return func(b *PinStoreBadger) {
		b.dataDir = dataDir
	}
}

func WithBlockCacheSize(size uint64) PinStoreBadgerOptionFunc {
	return func(b *PinStoreBadger) {
		b.blockCacheSize = size
	}
}

func WithIndexCacheSize(size uint64) PinStoreBadgerOptionFunc {
	return func(b *PinStoreBadger) {
		b.indexCacheSize = size
	}
}

func WithGc(enabled bool) PinStoreBadgerOptionFunc {
	return func(b *PinStoreBadger) {
		b.gcEnabled = enabled
	}
}
