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

package pinata

import (
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

type PinStorePinataOptionFunc func(*PinStorePinata)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) PinStorePinataOptionFunc {
	return func(p *PinStorePinata) {
		p.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(
	registry prometheus.Registerer,
) PinStorePinataOptionFunc {
	return func(p *PinStorePinata) {
		p.promRegistry = registry
	}
}

// WithJwt specifies the API token sent as a bearer credential
func WithJwt(jwt string) PinStorePinataOptionFunc {
	return func(p *PinStorePinata) {
		p.jwt = jwt
	}
}

// WithApiUrl specifies the API base URL
func WithApiUrl(apiUrl string) PinStorePinataOptionFunc {
	return func(p *PinStorePinata) {
		p.apiUrl = strings.TrimRight(apiUrl, "/")
	}
}

// WithRequestsPerSecond limits the API request rate. Zero disables the limit
func WithRequestsPerSecond(rps int) PinStorePinataOptionFunc {
	return func(p *PinStorePinata) {
		p.requestsPerSecond = rps
	}
}

// WithRetryMax specifies the maximum number of retries per request
func WithRetryMax(retryMax int) PinStorePinataOptionFunc {
	return func(p *PinStorePinata) {
		p.retryMax = retryMax
	}
}
