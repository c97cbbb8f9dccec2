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

package gcs

import (
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

type PinStoreGCSOptionFunc func(*PinStoreGCS)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) PinStoreGCSOptionFunc {
	return func(p *PinStoreGCS) {
		p.logger = NewGcsLogger(logger)
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(
	registry prometheus.Registerer,
) PinStoreGCSOptionFunc {
	return func(p *PinStoreGCS) {
		p.promRegistry = registry
	}
}

// WithBucket specifies the GCS bucket name
func WithBucket(bucket string) PinStoreGCSOptionFunc {
	return func(p *PinStoreGCS) {
		p.bucketName = bucket
	}
}

// WithPrefix specifies a prefix for all object names. A trailing slash is added when missing
func WithPrefix(prefix string) PinStoreGCSOptionFunc {
	return func(p *PinStoreGCS) {
		prefix = strings.Trim(prefix, "/")
		if prefix != "" {
			prefix += "/"
		}
		p.prefix = prefix
	}
}

// WithCredentialsFile specifies a service account credentials file
func WithCredentialsFile(path string) PinStoreGCSOptionFunc {
	return func(p *PinStoreGCS) {
		p.credentialsFile = path
	}
}
