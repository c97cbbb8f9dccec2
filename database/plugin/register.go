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
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypePin PluginType = iota + 1
	PluginTypeTable
)

// EnvPrefix is prepended to plugin option environment variable names
const EnvPrefix = "LOVEPOEM"

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypePin:
		return "pin"
	case PluginTypeTable:
		return "table"
	default:
		return "unknown"
	}
}

// PluginTypeFromString returns the plugin type for the given config section name
func PluginTypeFromString(pluginTypeName string) PluginType {
	switch pluginTypeName {
	case "pin":
		return PluginTypePin
	case "table":
		return PluginTypeTable
	default:
		return 0
	}
}

type PluginEntry struct {
	NewFromOptionsFunc func() Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var pluginEntries []PluginEntry

func Register(pluginEntry PluginEntry) {
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered plugin entries of the given type
func GetPlugins(pluginType PluginType) []PluginEntry {
	ret := []PluginEntry{}
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	return ret
}

// GetPlugin returns a new instance of the named plugin, or nil if it isn't registered
func GetPlugin(pluginType PluginType, name string) Plugin {
	for _, p := range pluginEntries {
		if p.Type == pluginType && p.Name == name {
			if p.NewFromOptionsFunc == nil {
				return nil
			}
			return p.NewFromOptionsFunc()
		}
	}
	return nil
}

// PopulateCmdlineOptions adds flags for all plugin options to the given flag set.
// Flags are named <type>-<plugin>-<option>, for example --pin-pinata-jwt
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			if err := opt.AddToFlagSet(
				fs,
				PluginTypeName(p.Type),
				p.Name,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin options from the environment. Variables are named
// LOVEPOEM_<TYPE>_<PLUGIN>_<OPTION>, for example LOVEPOEM_PIN_PINATA_JWT
func ProcessEnvVars() error {
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			envName := envVarName(PluginTypeName(p.Type), p.Name, opt.Name)
			val, ok := os.LookupEnv(envName)
			if !ok {
				continue
			}
			if err := opt.ProcessEnvVar(val); err != nil {
				return fmt.Errorf("environment variable %s: %w", envName, err)
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin options from a parsed config file. The map is keyed by
// plugin type name, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for pluginTypeName, pluginTypeData := range pluginConfig {
		pluginType := PluginTypeFromString(pluginTypeName)
		if pluginType == 0 {
			return fmt.Errorf("unknown plugin type: %s", pluginTypeName)
		}
		for pluginName, pluginData := range pluginTypeData {
			entry := findEntry(pluginType, pluginName)
			if entry == nil {
				return fmt.Errorf(
					"unknown %s plugin: %s",
					pluginTypeName,
					pluginName,
				)
			}
			for optName, optData := range pluginData {
				found := false
				for _, opt := range entry.Options {
					if opt.Name != optName {
						continue
					}
					found = true
					if err := opt.ProcessConfig(optData); err != nil {
						return fmt.Errorf(
							"%s plugin %s option %s: %w",
							pluginTypeName,
							pluginName,
							optName,
							err,
						)
					}
				}
				if !found {
					return fmt.Errorf(
						"unknown option %s for %s plugin %s",
						optName,
						pluginTypeName,
						pluginName,
					)
				}
			}
		}
	}
	return nil
}

func findEntry(pluginType PluginType, name string) *PluginEntry {
	for i := range pluginEntries {
		if pluginEntries[i].Type == pluginType &&
			pluginEntries[i].Name == name {
			return &pluginEntries[i]
		}
	}
	return nil
}

func envVarName(parts ...string) string {
	ret := EnvPrefix
	for _, part := range parts {
		ret += "_" + strings.ToUpper(strings.ReplaceAll(part, "-", "_"))
	}
	return ret
}

func parseUint(val string) (uint64, error) {
	return strconv.ParseUint(val, 10, 64)
}
