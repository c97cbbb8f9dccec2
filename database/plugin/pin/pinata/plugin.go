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
	"sync"

	"github.com/blinklabs-io/lovepoem/database/plugin"
)

var (
	cmdlineOptions struct {
		jwt               string
		apiUrl            string
		requestsPerSecond uint64
		retryMax          uint64
	}
	cmdlineOptionsMutex sync.RWMutex
)

// initCmdlineOptions sets default values for cmdlineOptions
func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.apiUrl = DefaultApiUrl
	cmdlineOptions.requestsPerSecond = DefaultRequestsPerSecond
	cmdlineOptions.retryMax = DefaultRetryMax
}

// Register plugin
func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypePin,
			Name:               "pinata",
			Description:        "Pinata IPFS pinning service",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "jwt",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Pinata API JWT",
					DefaultValue: "",
					Dest:         &(cmdlineOptions.jwt),
				},
				{
					Name:         "api-url",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Pinata API base URL",
					DefaultValue: DefaultApiUrl,
					Dest:         &(cmdlineOptions.apiUrl),
				},
				{
					Name:         "requests-per-second",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Maximum API requests per second",
					DefaultValue: uint64(DefaultRequestsPerSecond),
					Dest:         &(cmdlineOptions.requestsPerSecond),
				},
				{
					Name:         "retry-max",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Maximum retries for a failed API request",
					DefaultValue: uint64(DefaultRetryMax),
					Dest:         &(cmdlineOptions.retryMax),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []PinStorePinataOptionFunc{
		WithLogger(plugin.Logger()),
		WithPromRegistry(plugin.PromRegistry()),
		WithJwt(cmdlineOptions.jwt),
		WithApiUrl(cmdlineOptions.apiUrl),
		WithRequestsPerSecond(int(cmdlineOptions.requestsPerSecond)), //nolint:gosec // small configured value
		WithRetryMax(int(cmdlineOptions.retryMax)),                   //nolint:gosec // small configured value
	}
	cmdlineOptionsMutex.RUnlock()
	p, err := NewWithOptions(opts...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
