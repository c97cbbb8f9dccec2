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
	"os"
	"strconv"

	"github.com/blinklabs-io/lovepoem/pipeline"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func createTablesCommand() *cobra.Command {
	var mainPrefix, attributesPrefix string
	cmd := &cobra.Command{
		Use:   "create-tables",
		Short: "Create the main and attributes tables and record their names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer r.close()
			if mainPrefix == "" {
				mainPrefix = r.cfg.MainPrefix
			}
			if attributesPrefix == "" {
				attributesPrefix = r.cfg.AttributesPrefix
			}
			store, err := r.openTableStore()
			if err != nil {
				return err
			}
			tables, err := pipeline.CreateTables(
				cmd.Context(),
				store,
				mainPrefix,
				attributesPrefix,
			)
			if err != nil {
				return err
			}
			if err := pipeline.SaveTables(r.cfg.TablesFile, tables); err != nil {
				return fmt.Errorf("failed to save table names: %w", err)
			}
			r.logger.Info(
				fmt.Sprintf(
					"created tables %s and %s",
					tables.Main.Name,
					tables.Attributes.Name,
				),
				"component", programName,
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&mainPrefix, "main-prefix", "", "prefix of the main table")
	cmd.Flags().StringVar(&attributesPrefix, "attributes-prefix", "", "prefix of the attributes table")
	return cmd
}

func readCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print every token with its attributes as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer r.close()
			tables, err := r.loadTables()
			if err != nil {
				return err
			}
			store, err := r.openTableStore()
			if err != nil {
				return err
			}
			rows, err := pipeline.GetJoined(
				cmd.Context(),
				store,
				tables.Main.Name,
				tables.Attributes.Name,
			)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}
	return cmd
}

func updateAttributeCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "update-attribute [token-id] <trait-type> <value>",
		Short: "Set the value of a token attribute",
		Long: "Set the value of an attribute of one token. With --all the token id " +
			"is omitted and every token with the trait is updated.",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer r.close()
			tables, err := r.loadTables()
			if err != nil {
				return err
			}
			store, err := r.openTableStore()
			if err != nil {
				return err
			}
			if all {
				return pipeline.UpdateAttributeAll(
					cmd.Context(),
					store,
					tables.Attributes.Name,
					args[0],
					args[1],
				)
			}
			tokenID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid token id %q: %w", args[0], err)
			}
			return pipeline.UpdateAttribute(
				cmd.Context(),
				store,
				tables.Attributes.Name,
				tokenID,
				args[1],
				args[2],
			)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "update the trait on every token")
	return cmd
}

func insertAttributeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert-attribute <token-id> <trait-type> <value>",
		Short: "Add an attribute to a token",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid token id %q: %w", args[0], err)
			}
			r, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer r.close()
			tables, err := r.loadTables()
			if err != nil {
				return err
			}
			store, err := r.openTableStore()
			if err != nil {
				return err
			}
			return pipeline.InsertAttribute(
				cmd.Context(),
				store,
				tokenID,
				tables.Attributes.Name,
				args[1],
				args[2],
			)
		},
	}
	return cmd
}
