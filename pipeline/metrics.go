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

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamePrefix = "lovepoem_pipeline_"

// Metrics are shared by the normalizer and the executor
type Metrics struct {
	records    *prometheus.CounterVec
	statements *prometheus.CounterVec
	waitTime   prometheus.Histogram
}

// NewMetrics registers the pipeline metrics with reg. A nil registry yields
// working but unregistered collectors
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricNamePrefix + "records_total",
				Help: "Metadata records normalized by outcome (verified, uploaded, failed)",
			},
			[]string{"outcome"},
		),
		statements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricNamePrefix + "statements_total",
				Help: "Batch statements executed by table kind and result",
			},
			[]string{"table", "result"},
		),
		waitTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricNamePrefix + "statement_wait_seconds",
				Help:    "Time from statement submission to finalization",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
