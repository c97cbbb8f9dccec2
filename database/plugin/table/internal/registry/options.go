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

package registry

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type EngineOptionFunc func(*Engine)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) EngineOptionFunc {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) EngineOptionFunc {
	return func(e *Engine) {
		e.promRegistry = registry
	}
}

// WithChainID specifies the chain id used in table names and receipts
func WithChainID(chainID int64) EngineOptionFunc {
	return func(e *Engine) {
		e.chainID = chainID
	}
}

// WithDriver names the database driver in metrics and logs
func WithDriver(driver string) EngineOptionFunc {
	return func(e *Engine) {
		e.driver = driver
	}
}

// WithQueueSize specifies how many writes may wait for the writer before Submit blocks
func WithQueueSize(size int) EngineOptionFunc {
	return func(e *Engine) {
		e.queueSize = size
	}
}
