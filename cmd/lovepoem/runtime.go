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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blinklabs-io/lovepoem/database/plugin"
	"github.com/blinklabs-io/lovepoem/database/plugin/pin"
	"github.com/blinklabs-io/lovepoem/database/plugin/table"
	"github.com/blinklabs-io/lovepoem/internal/config"
	"github.com/blinklabs-io/lovepoem/internal/telemetry"
	"github.com/blinklabs-io/lovepoem/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	// Register plugins
	_ "github.com/blinklabs-io/lovepoem/database/plugin/pin/badger"
	_ "github.com/blinklabs-io/lovepoem/database/plugin/pin/gcs"
	_ "github.com/blinklabs-io/lovepoem/database/plugin/pin/pinata"
	_ "github.com/blinklabs-io/lovepoem/database/plugin/pin/s3"
	_ "github.com/blinklabs-io/lovepoem/database/plugin/table/mysql"
	_ "github.com/blinklabs-io/lovepoem/database/plugin/table/postgres"
	_ "github.com/blinklabs-io/lovepoem/database/plugin/table/sqlite"
)

const shutdownTimeout = 10 * time.Second

// runtime holds what a command needs beyond its config: logging, metrics,
// tracing and the plugin stores it opened
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *pipeline.Metrics
	pinStore   pin.PinStore
	tableStore table.TableStore
	closers    []func(context.Context) error
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	logger := commonRun(cfg)
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r := &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: pipeline.NewMetrics(reg),
	}
	plugin.SetDefaults(logger, reg)
	if cfg.TracingExporter != config.TracingExporterNone {
		shutdown, err := telemetry.SetupTracing(cmd.Context(), cfg.TracingExporter)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, shutdown)
	}
	if cfg.MetricsPort > 0 {
		srv := telemetry.StartMetricsServer(
			logger,
			cfg.BindAddr,
			cfg.MetricsPort,
			reg,
		)
		r.closers = append(r.closers, srv.Shutdown)
	}
	return r, nil
}

func (r *runtime) openPinStore() (pin.PinStore, error) {
	store, err := pin.New(r.cfg.PinPlugin)
	if err != nil {
		return nil, err
	}
	r.pinStore = store
	r.closers = append(r.closers, func(context.Context) error {
		return store.Close()
	})
	return store, nil
}

func (r *runtime) openTableStore() (table.TableStore, error) {
	store, err := table.New(r.cfg.TablePlugin)
	if err != nil {
		return nil, err
	}
	r.tableStore = store
	r.closers = append(r.closers, func(context.Context) error {
		return store.Close()
	})
	return store, nil
}

func (r *runtime) normalizer() *pipeline.Normalizer {
	return pipeline.NewNormalizer(
		r.pinStore,
		pipeline.WithNormalizerLogger(r.logger),
		pipeline.WithNormalizerMetrics(r.metrics),
		pipeline.WithMetadataDir(r.cfg.MetadataDir),
		pipeline.WithImagesDir(r.cfg.ImagesDir),
		pipeline.WithGateway(r.cfg.Gateway),
	)
}

func (r *runtime) executor() *pipeline.Executor {
	return pipeline.NewExecutor(
		r.tableStore,
		pipeline.WithExecutorLogger(r.logger),
		pipeline.WithExecutorMetrics(r.metrics),
	)
}

func (r *runtime) loadTables() (*pipeline.Tables, error) {
	tables, err := pipeline.LoadTables(r.cfg.TablesFile)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to load table names (run create-tables first): %w",
			err,
		)
	}
	return tables, nil
}

// close releases everything in reverse order of opening
func (r *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			r.logger.Error(
				fmt.Sprintf("shutdown error: %s", err),
				"component", programName,
			)
		}
	}
	r.closers = nil
}
