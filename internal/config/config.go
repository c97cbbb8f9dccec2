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

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/internal/secrets"
	"github.com/blinklabs-io/lovepoem/internal/telemetry"
	"github.com/blinklabs-io/lovepoem/pipeline"
	"github.com/blinklabs-io/lovepoem/token"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "lovepoem.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultPinPlugin   = "pinata"
	DefaultTablePlugin = "sqlite"
	DefaultTablesFile  = ".lovepoem/tables.json"
)

const (
	TracingExporterNone   = ""
	TracingExporterOtlp   = telemetry.ExporterOtlp
	TracingExporterStdout = telemetry.ExporterStdout
)

// ErrPluginListRequested is returned when the user requests to list available plugins
// This is not an error condition but a successful operation that displays plugin information
var ErrPluginListRequested = errors.New("plugin list requested")

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Pin      map[string]map[string]any `yaml:"pin,omitempty"`
	Table    map[string]map[string]any `yaml:"table,omitempty"`
}

type databaseConfig struct {
	Pin   map[string]any `yaml:"pin,omitempty"`
	Table map[string]any `yaml:"table,omitempty"`
}

type Config struct {
	PinPlugin        string `yaml:"pinPlugin"        envconfig:"PIN_PLUGIN"`
	TablePlugin      string `yaml:"tablePlugin"      envconfig:"TABLE_PLUGIN"`
	MetadataDir      string `yaml:"metadataDir"                                split_words:"true"`
	ImagesDir        string `yaml:"imagesDir"                                  split_words:"true"`
	Gateway          string `yaml:"gateway"`
	TablesFile       string `yaml:"tablesFile"                                 split_words:"true"`
	MainPrefix       string `yaml:"mainPrefix"                                 split_words:"true"`
	AttributesPrefix string `yaml:"attributesPrefix"                           split_words:"true"`
	SecretsFile      string `yaml:"secretsFile"                                split_words:"true"`
	BindAddr         string `yaml:"bindAddr"                                   split_words:"true"`
	MetricsPort      uint   `yaml:"metricsPort"                                split_words:"true"`
	TracingExporter  string `yaml:"tracingExporter"                            split_words:"true"`
	Debug            bool   `yaml:"debug"`
}

// DefaultConfig returns the configuration used when nothing overrides it
func DefaultConfig() *Config {
	return &Config{
		PinPlugin:        DefaultPinPlugin,
		TablePlugin:      DefaultTablePlugin,
		MetadataDir:      pipeline.DefaultMetadataDir,
		ImagesDir:        pipeline.DefaultImagesDir,
		Gateway:          token.DefaultGateway,
		TablesFile:       DefaultTablesFile,
		MainPrefix:       pipeline.MainTablePrefix,
		AttributesPrefix: pipeline.AttributesTablePrefix,
		BindAddr:         "0.0.0.0",
		// Metrics are not served unless a port is configured
		MetricsPort:     0,
		TracingExporter: TracingExporterNone,
	}
}

var globalConfig = DefaultConfig()

func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.lovepoem/lovepoem.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".lovepoem", "lovepoem.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/lovepoem/lovepoem.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/lovepoem/lovepoem.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := cfg.apply(buf, true); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	if err := envconfig.Process("lovepoem", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// The secrets file only carries plugin sections
	if cfg.SecretsFile != "" {
		buf, err := secrets.DecryptFile(cfg.SecretsFile)
		if err != nil {
			return nil, fmt.Errorf("error decrypting secrets file: %w", err)
		}
		if err := cfg.apply(buf, false); err != nil {
			return nil, fmt.Errorf("secrets file: %w", err)
		}
	}

	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	switch cfg.TracingExporter {
	case TracingExporterNone, TracingExporterOtlp, TracingExporterStdout:
	default:
		return nil, fmt.Errorf(
			"invalid tracingExporter: %q (must be '%s' or '%s')",
			cfg.TracingExporter,
			TracingExporterOtlp,
			TracingExporterStdout,
		)
	}

	globalConfig = cfg
	return cfg, nil
}

func GetConfig() *Config {
	return globalConfig
}

// apply overlays a YAML document onto the config and feeds its plugin sections
// to the plugin registry. With mainConfig unset only plugin sections are read
func (c *Config) apply(buf []byte, mainConfig bool) error {
	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	if mainConfig {
		// If config section exists, use it for main config
		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			configBytes, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return fmt.Errorf("error re-marshalling config: %w", err)
			}
			if err := yaml.Unmarshal(configBytes, c); err != nil {
				return fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			// Otherwise unmarshal the whole file as main config
			if err := yaml.Unmarshal(buf, c); err != nil {
				return fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	// Process plugin configurations
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Pin != nil {
		pluginConfig["pin"] = tempCfg.Pin
	}
	if tempCfg.Table != nil {
		pluginConfig["table"] = tempCfg.Table
	}
	// Handle database section if present
	if tempCfg.Database != nil {
		if tempCfg.Database.Pin != nil {
			mergeSection(
				pluginConfig,
				"pin",
				databaseSection(tempCfg.Database.Pin, &c.PinPlugin),
			)
		}
		if tempCfg.Database.Table != nil {
			mergeSection(
				pluginConfig,
				"table",
				databaseSection(tempCfg.Database.Table, &c.TablePlugin),
			)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// databaseSection extracts the plugin name of a database section into
// pluginName and returns the remaining per-plugin option maps
func databaseSection(
	section map[string]any,
	pluginName *string,
) map[string]map[string]any {
	ret := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			if name, ok := v.(string); ok {
				*pluginName = name
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			// Convert map[any]any to map[string]any
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			ret[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping database config entry %q: expected map, got %T\n",
				k,
				v,
			)
		}
	}
	return ret
}

func mergeSection(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	section map[string]map[string]any,
) {
	// Merge with existing config instead of overwriting
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = section
		return
	}
	maps.Copy(pluginConfig[pluginType], section)
}
