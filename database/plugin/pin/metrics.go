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

package pin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamePrefix = "lovepoem_pin_"

// Metrics are shared by every pin plugin and labelled with the backend name.
// A nil registry yields working but unregistered collectors
type Metrics struct {
	Pins          prometheus.Counter
	PinErrors     prometheus.Counter
	PinBytes      prometheus.Counter
	Verifications *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, backend string) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"backend": backend}
	return &Metrics{
		Pins: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        metricNamePrefix + "pins_total",
				Help:        "Total number of successful pin operations",
				ConstLabels: labels,
			},
		),
		PinErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        metricNamePrefix + "pin_errors_total",
				Help:        "Total number of failed pin operations",
				ConstLabels: labels,
			},
		),
		PinBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        metricNamePrefix + "pin_bytes_total",
				Help:        "Total bytes uploaded by pin operations",
				ConstLabels: labels,
			},
		),
		Verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        metricNamePrefix + "verifications_total",
				Help:        "Pin status queries by result (pinned, missing, error)",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
	}
}

// ObserveVerify records the outcome of a Verify call
func (m *Metrics) ObserveVerify(pinned bool, err error) {
	switch {
	case err != nil:
		m.Verifications.WithLabelValues("error").Inc()
	case pinned:
		m.Verifications.WithLabelValues("pinned").Inc()
	default:
		m.Verifications.WithLabelValues("missing").Inc()
	}
}
