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
	"testing"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	_ "github.com/blinklabs-io/lovepoem/database/plugin/pin/badger"
	_ "github.com/blinklabs-io/lovepoem/database/plugin/table/sqlite"
)

// Basic tests for SetPluginOption to ensure programmatic option setting works
func TestSetPluginOption_SuccessAndTypeCheck(t *testing.T) {
	// Note: This test mutates global plugin state (cmdlineOptions in subpackages).

	// Set data-dir for sqlite plugin to an empty string (in-memory) and ensure no error
	if err := plugin.SetPluginOption(plugin.PluginTypeTable, "sqlite", "data-dir", ""); err != nil {
		t.Fatalf("unexpected error setting sqlite data-dir: %v", err)
	}

	// Setting with wrong type should return an error
	if err := plugin.SetPluginOption(plugin.PluginTypeTable, "sqlite", "data-dir", 123); err == nil {
		t.Fatalf(
			"expected type error when setting sqlite data-dir with int, got nil",
		)
	}

	// Setting an unknown option is a no-op (non-fatal) so should not return an error
	if err := plugin.SetPluginOption(plugin.PluginTypeTable, "sqlite", "does-not-exist", "x"); err != nil {
		t.Fatalf("unexpected error when setting unknown option: %v", err)
	}

	// Test setting data-dir for badger plugin (pin type)
	if err := plugin.SetPluginOption(plugin.PluginTypePin, "badger", "data-dir", t.TempDir()); err != nil {
		t.Fatalf("unexpected error setting badger data-dir: %v", err)
	}

	// Test uint option handling for badger block-cache-size
	if err := plugin.SetPluginOption(plugin.PluginTypePin, "badger", "block-cache-size", uint64(100000000)); err != nil {
		t.Fatalf("unexpected error setting badger block-cache-size: %v", err)
	}

	// Test int conversion for uint options
	if err := plugin.SetPluginOption(plugin.PluginTypePin, "badger", "block-cache-size", -1); err == nil {
		t.Fatal("expected error setting negative block-cache-size")
	}

	// Test bool option handling for badger gc
	if err := plugin.SetPluginOption(plugin.PluginTypePin, "badger", "gc", true); err != nil {
		t.Fatalf("unexpected error setting badger gc: %v", err)
	}

	// Test plugin not found error
	if err := plugin.SetPluginOption(plugin.PluginTypeTable, "nonexistent", "data-dir", t.TempDir()); err == nil {
		t.Fatalf(
			"expected error when setting option for nonexistent plugin, got nil",
		)
	}
}
