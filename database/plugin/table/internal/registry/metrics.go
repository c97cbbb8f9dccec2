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

package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamePrefix = "lovepoem_table_"

type metrics struct {
	statements    *prometheus.CounterVec
	tablesCreated prometheus.Counter
	queueDepth    prometheus.Gauge
	blockNumber   prometheus.Gauge
	applySeconds  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer, driver string) *metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"driver": driver}
	return &metrics{
		statements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        metricNamePrefix + "statements_total",
				Help:        "Statements applied by kind and result",
				ConstLabels: labels,
			},
			[]string{"kind", "result"},
		),
		tablesCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        metricNamePrefix + "tables_created_total",
				Help:        "Total number of tables registered",
				ConstLabels: labels,
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        metricNamePrefix + "queue_depth",
				Help:        "Submitted writes waiting to be applied",
				ConstLabels: labels,
			},
		),
		blockNumber: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        metricNamePrefix + "block_number",
				Help:        "Block number of the last applied write",
				ConstLabels: labels,
			},
		),
		applySeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:        metricNamePrefix + "apply_seconds",
				Help:        "Time taken to apply a single write",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
		),
	}
}
