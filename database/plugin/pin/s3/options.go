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

package s3

import (
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PinStoreS3OptionFunc func(*PinStoreS3)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) PinStoreS3OptionFunc {
	return func(p *PinStoreS3) {
		p.logger = NewS3Logger(logger)
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) PinStoreS3OptionFunc {
	return func(p *PinStoreS3) {
		p.promRegistry = registry
	}
}

// WithEndpoint specifies a custom endpoint. Path-style addressing is used when set
func WithEndpoint(endpoint string) PinStoreS3OptionFunc {
	return func(p *PinStoreS3) {
		p.endpoint = endpoint
	}
}

// WithBucket specifies the S3 bucket name
func WithBucket(bucket string) PinStoreS3OptionFunc {
	return func(p *PinStoreS3) {
		p.bucket = bucket
	}
}

// WithRegion specifies the AWS region
func WithRegion(region string) PinStoreS3OptionFunc {
	return func(p *PinStoreS3) {
		p.region = region
	}
}

// WithPrefix specifies the key prefix
func WithPrefix(prefix string) PinStoreS3OptionFunc {
	return func(p *PinStoreS3) {
		prefix = strings.Trim(prefix, "/")
		if prefix != "" {
			prefix += "/"
		}
		p.prefix = prefix
	}
}

// WithTimeout specifies the timeout for a single S3 request
func WithTimeout(timeout time.Duration) PinStoreS3OptionFunc {
	return func(p *PinStoreS3) {
		p.timeout = timeout
	}
}
