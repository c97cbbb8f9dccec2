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

// Package telemetry sets up trace export and the Prometheus metrics listener
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/blinklabs-io/lovepoem/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	ExporterOtlp   = "otlp"
	ExporterStdout = "stdout"

	serviceName = "lovepoem"
)

var ErrUnknownExporter = errors.New("unknown trace exporter")

// SetupTracing installs a global tracer provider that sends spans to the named
// exporter. The OTLP exporter is configured with the OTEL_EXPORTER_OTLP_* env
// vars. The returned func flushes and stops the provider
func SetupTracing(
	ctx context.Context,
	exporter string,
) (func(context.Context) error, error) {
	var spanExporter sdktrace.SpanExporter
	var err error
	switch exporter {
	case ExporterOtlp:
		spanExporter, err = otlptracehttp.New(ctx)
	case ExporterStdout:
		spanExporter, err = stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
		)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s trace exporter: %w", exporter, err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(
			resource.NewSchemaless(
				attribute.String("service.name", serviceName),
				attribute.String("service.version", version.GetVersionString()),
			),
		),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// StartMetricsServer serves the metrics in gatherer on /metrics. Listener
// failures are logged; call Shutdown on the returned server when done
func StartMetricsServer(
	logger *slog.Logger,
	bindAddr string,
	port uint,
	gatherer prometheus.Gatherer,
) *http.Server {
	addr := fmt.Sprintf("%s:%d", bindAddr, port)
	mux := http.NewServeMux()
	mux.Handle(
		"/metrics",
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	)
	metricsServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	logger.Info(
		"serving prometheus metrics on "+addr,
		"component", "telemetry",
	)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "telemetry",
			)
		}
	}()
	return metricsServer
}
