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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/internal/config"
	"github.com/blinklabs-io/lovepoem/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	programName = "lovepoem"
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

func commonRun(cfg *config.Config) *slog.Logger {
	// Configure logger
	logLevel := slog.LevelInfo
	addSource := false
	if globalFlags.debug || cfg.Debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	// Configure max processes with our logger wrapper, toss undo func
	_, err := maxprocs.Set(maxprocs.Logger(slogPrintf))
	if err != nil {
		// If we hit this, something really wrong happened
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Debug(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

func listPlugins(
	pinPlugin, tablePlugin string,
) (shouldExit bool, output string) {
	var buf strings.Builder
	listed := false

	if pinPlugin == "list" {
		buf.WriteString("Available pin plugins:\n")
		for _, p := range plugin.GetPlugins(plugin.PluginTypePin) {
			buf.WriteString(fmt.Sprintf("  %s: %s\n", p.Name, p.Description))
		}
		listed = true
	}

	if tablePlugin == "list" {
		if listed {
			buf.WriteString("\n")
		}
		buf.WriteString("Available table plugins:\n")
		for _, p := range plugin.GetPlugins(plugin.PluginTypeTable) {
			buf.WriteString(fmt.Sprintf("  %s: %s\n", p.Name, p.Description))
		}
		listed = true
	}

	if listed {
		return true, buf.String()
	}
	return false, ""
}

func listAllPlugins() string {
	var buf strings.Builder
	buf.WriteString("Available plugins:\n\n")

	buf.WriteString("Pin Store Plugins:\n")
	for _, p := range plugin.GetPlugins(plugin.PluginTypePin) {
		buf.WriteString(fmt.Sprintf("  %s: %s\n", p.Name, p.Description))
	}

	buf.WriteString("\nTable Service Plugins:\n")
	for _, p := range plugin.GetPlugins(plugin.PluginTypeTable) {
		buf.WriteString(fmt.Sprintf("  %s: %s\n", p.Name, p.Description))
	}

	return buf.String()
}

func listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all available plugins",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(listAllPlugins())
		},
	}
	return cmd
}

func versionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the program version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", programName, version.GetVersionString())
		},
	}
	return cmd
}

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Sync LovePoem token metadata into relational tables",
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().
		StringP("pin", "p", config.DefaultPinPlugin, "pin store plugin to use, 'list' to show available")
	rootCmd.PersistentFlags().
		StringP("table", "t", config.DefaultTablePlugin, "table service plugin to use, 'list' to show available")
	rootCmd.PersistentFlags().
		String("metadata-dir", "", "directory holding token metadata documents")
	rootCmd.PersistentFlags().
		String("images-dir", "", "directory holding token images")
	rootCmd.PersistentFlags().
		String("tables-file", "", "file recording the names of the created tables")
	rootCmd.PersistentFlags().
		String("gateway", "", "gateway used in durable image URLs")

	// Add plugin-specific flags
	if err := plugin.PopulateCmdlineOptions(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Error adding plugin flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Handle plugin listing before config loading
		pinPlugin, _ := cmd.Flags().GetString("pin")
		tablePlugin, _ := cmd.Flags().GetString("table")

		shouldExit, output := listPlugins(pinPlugin, tablePlugin)
		if shouldExit {
			fmt.Print(output)
			os.Exit(0)
		}

		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with command line flags
		overrides := map[string]*string{
			"pin":          &cfg.PinPlugin,
			"table":        &cfg.TablePlugin,
			"metadata-dir": &cfg.MetadataDir,
			"images-dir":   &cfg.ImagesDir,
			"tables-file":  &cfg.TablesFile,
			"gateway":      &cfg.Gateway,
		}
		for name, dest := range overrides {
			if cmd.Flags().Changed(name) {
				*dest, _ = cmd.Flags().GetString(name)
			}
		}

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(createTablesCommand())
	rootCmd.AddCommand(prepareCommand())
	rootCmd.AddCommand(syncCommand())
	rootCmd.AddCommand(readCommand())
	rootCmd.AddCommand(updateAttributeCommand())
	rootCmd.AddCommand(insertAttributeCommand())
	rootCmd.AddCommand(secretsCommand())
	rootCmd.AddCommand(listCommand())
	rootCmd.AddCommand(versionCommand())
	return rootCmd
}

func main() {
	// Execute cobra command
	if err := rootCommand().Execute(); err != nil {
		// NOTE: we purposely don't display the error, since cobra will have already displayed it
		os.Exit(1)
	}
}
