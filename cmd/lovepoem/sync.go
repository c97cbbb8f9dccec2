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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blinklabs-io/lovepoem/pipeline"
	"github.com/blinklabs-io/lovepoem/token"
	"github.com/spf13/cobra"
)

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

func prepareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Pin token images and rewrite metadata with durable image URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer r.close()
			if _, err := r.openPinStore(); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			ids, err := token.ListIDs(r.cfg.MetadataDir, r.logger)
			if err != nil {
				return err
			}
			res, err := r.normalizer().NormalizeAll(ctx, ids)
			if err != nil {
				return err
			}
			r.logger.Info(
				fmt.Sprintf(
					"prepared %d records, %d failed",
					len(res.Records),
					len(res.Failed),
				),
				"component", programName,
			)
			return nil
		},
	}
	return cmd
}

func syncCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Prepare metadata and insert every record into the tables",
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
			if _, err := r.openPinStore(); err != nil {
				return err
			}
			var executor *pipeline.Executor
			if !dryRun {
				if _, err := r.openTableStore(); err != nil {
					return err
				}
				executor = r.executor()
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			res, err := pipeline.Sync(ctx, r.normalizer(), executor, *tables, dryRun)
			if err != nil {
				return err
			}
			if dryRun {
				for _, pair := range res.Statements {
					fmt.Fprintln(os.Stdout, pair.Main.Literal())
					for _, stmt := range pair.Attributes {
						fmt.Fprintln(os.Stdout, stmt.Literal())
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statements instead of submitting them")
	return cmd
}
