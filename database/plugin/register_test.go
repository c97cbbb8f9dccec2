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

package plugin_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/spf13/pflag"
)

// Mock plugin implementation for testing
type mockPlugin struct{}

func (m *mockPlugin) Start() error { return nil }
func (m *mockPlugin) Stop() error  { return nil }

func registerMock(
	pluginType plugin.PluginType,
	name string,
	options ...plugin.PluginOption,
) {
	plugin.Register(plugin.PluginEntry{
		Type:               pluginType,
		Name:               name,
		Options:            options,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})
}

func TestRegister(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	registerMock(plugin.PluginTypePin, pluginName)

	// Check that GetPlugin finds it
	p := plugin.GetPlugin(plugin.PluginTypePin, pluginName)
	if p == nil {
		t.Error("plugin not found")
	}

	// Check that GetPlugins includes it
	found := false
	for _, pl := range plugin.GetPlugins(plugin.PluginTypePin) {
		if pl.Name == pluginName && pl.Type == plugin.PluginTypePin {
			found = true
			break
		}
	}
	if !found {
		t.Error("plugin not in GetPlugins list")
	}
	// Not registered under the other type
	if plugin.GetPlugin(plugin.PluginTypeTable, pluginName) != nil {
		t.Error("pin plugin returned as table plugin")
	}
}

func TestPluginTypeNames(t *testing.T) {
	for _, pluginType := range []plugin.PluginType{plugin.PluginTypePin, plugin.PluginTypeTable} {
		name := plugin.PluginTypeName(pluginType)
		if got := plugin.PluginTypeFromString(name); got != pluginType {
			t.Errorf("round trip of %q: got %d, want %d", name, got, pluginType)
		}
	}
	if plugin.PluginTypeFromString("blob") != 0 {
		t.Error("expected unknown plugin type for blob")
	}
}

func TestGetPlugin(t *testing.T) {
	pluginName := "test-get-plugin-" + t.Name()
	registerMock(plugin.PluginTypeTable, pluginName)

	p := plugin.GetPlugin(plugin.PluginTypeTable, pluginName)
	if p == nil {
		t.Fatal("Expected plugin instance, got nil")
	}
	if _, ok := p.(*mockPlugin); !ok {
		t.Errorf("Expected plugin of type *mockPlugin, got %T", p)
	}

	nonExistentPlugin := plugin.GetPlugin(
		plugin.PluginTypeTable,
		"non-existent-"+t.Name(),
	)
	if nonExistentPlugin != nil {
		t.Errorf(
			"Expected nil for non-existent plugin, got %v",
			nonExistentPlugin,
		)
	}
}

func TestStartPlugin(t *testing.T) {
	okName := "start-ok-" + t.Name()
	registerMock(plugin.PluginTypePin, okName)
	if _, err := plugin.StartPlugin(plugin.PluginTypePin, okName); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	errStart := errors.New("bad credentials")
	failName := "start-fail-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypePin,
		Name: failName,
		NewFromOptionsFunc: func() plugin.Plugin {
			return plugin.NewErrorPlugin(errStart)
		},
	})
	if _, err := plugin.StartPlugin(plugin.PluginTypePin, failName); !errors.Is(err, errStart) {
		t.Fatalf("expected start error, got %v", err)
	}
	if _, err := plugin.StartPlugin(plugin.PluginTypePin, "missing-"+t.Name()); err == nil {
		t.Fatal("expected error for missing plugin")
	}
}

func TestConfigAndEnv(t *testing.T) {
	name := "cfgtest"
	var (
		endpoint string
		retries  uint64
		verbose  bool
		workers  int
	)
	registerMock(
		plugin.PluginTypeTable,
		name,
		plugin.PluginOption{Name: "endpoint", Type: plugin.PluginOptionTypeString, Dest: &endpoint},
		plugin.PluginOption{Name: "retries", Type: plugin.PluginOptionTypeUint, Dest: &retries},
		plugin.PluginOption{Name: "verbose", Type: plugin.PluginOptionTypeBool, Dest: &verbose},
		plugin.PluginOption{Name: "workers", Type: plugin.PluginOptionTypeInt, Dest: &workers},
	)

	err := plugin.ProcessConfig(map[string]map[string]map[string]any{
		"table": {
			name: {
				"endpoint": "db.example.com",
				"retries":  4,
				"verbose":  "true",
				"workers":  2,
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if endpoint != "db.example.com" || retries != 4 || !verbose || workers != 2 {
		t.Errorf("unexpected values: %q %d %v %d", endpoint, retries, verbose, workers)
	}

	t.Setenv("LOVEPOEM_TABLE_CFGTEST_RETRIES", "9")
	if err := plugin.ProcessEnvVars(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retries != 9 {
		t.Errorf("expected retries from env, got %d", retries)
	}

	for _, bad := range []map[string]map[string]map[string]any{
		{"blob": {name: {"endpoint": "x"}}},
		{"table": {"no-such-plugin": {"endpoint": "x"}}},
		{"table": {name: {"no-such-option": "x"}}},
		{"table": {name: {"retries": -1}}},
		{"table": {name: {"workers": "many"}}},
	} {
		if err := plugin.ProcessConfig(bad); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
}

func TestPopulateCmdlineOptions(t *testing.T) {
	var jwt string
	registerMock(
		plugin.PluginTypePin,
		"flagtest",
		plugin.PluginOption{
			Name:         "jwt",
			Type:         plugin.PluginOptionTypeString,
			Dest:         &jwt,
			DefaultValue: "none",
		},
	)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := plugin.PopulateCmdlineOptions(fs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fs.Parse([]string{"--pin-flagtest-jwt", "token"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jwt != "token" {
		t.Errorf("expected jwt from flag, got %q", jwt)
	}
}
