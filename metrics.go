// Copyright 2024 The gofuse Authors.
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

package fuse

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics is the set of Prometheus collectors a Session reports
// through. Registering them is the caller's responsibility, via
// RegisterWith; a MountConfig with a nil Metrics gets an unregistered
// instance so the library never touches the default registry implicitly.
type SessionMetrics struct {
	RequestsInFlight prometheus.Gauge
	RepliesTotal     *prometheus.CounterVec
	CongestionThreshold prometheus.Gauge
	NotificationsPending prometheus.Gauge
}

// NewSessionMetrics constructs a SessionMetrics with the given namespace,
// unregistered.
func NewSessionMetrics(namespace string) *SessionMetrics {
	return &SessionMetrics{
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Number of FUSE requests currently dispatched to the filesystem.",
		}),
		RepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies written to the kernel, labeled by opcode.",
		}, []string{"opcode"}),
		CongestionThreshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "congestion_threshold",
			Help:      "Negotiated congestion_threshold from the INIT handshake.",
		}),
		NotificationsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_pending",
			Help:      "Outstanding RETRIEVE notifications awaiting a NOTIFY_REPLY.",
		}),
	}
}

// RegisterWith registers every collector in m with reg.
func (m *SessionMetrics) RegisterWith(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.RequestsInFlight, m.RepliesTotal, m.CongestionThreshold, m.NotificationsPending,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// noopMetrics backs MountConfig.Metrics when the caller supplies none.
func noopMetrics() *SessionMetrics {
	return NewSessionMetrics("gofuse")
}
