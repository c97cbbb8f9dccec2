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

package plugin

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	defaults struct {
		logger       *slog.Logger
		promRegistry prometheus.Registerer
	}
	defaultsMutex sync.RWMutex
)

// SetDefaults sets the logger and metrics registry handed to plugins created
// from command line options. It must be called before the plugins are started
func SetDefaults(logger *slog.Logger, promRegistry prometheus.Registerer) {
	defaultsMutex.Lock()
	defer defaultsMutex.Unlock()
	defaults.logger = logger
	defaults.promRegistry = promRegistry
}

// Logger returns the default plugin logger, which discards unless set
func Logger() *slog.Logger {
	defaultsMutex.RLock()
	defer defaultsMutex.RUnlock()
	return LoggerOrDiscard(defaults.logger)
}

// PromRegistry returns the default plugin metrics registry, which may be nil
func PromRegistry() prometheus.Registerer {
	defaultsMutex.RLock()
	defer defaultsMutex.RUnlock()
	return defaults.promRegistry
}
