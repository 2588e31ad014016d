// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issuer

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/msl/lib/mslerror"
)

// Token kinds used as the "kind" label.
const (
	kindMaster = "master"
	kindUser   = "user"
)

type metrics struct {
	issued     *prometheus.CounterVec
	renewed    *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// newMetrics creates the issuer's counters and registers them with
// registerer when it is non-nil.
func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msl",
			Name:      "tokens_issued_total",
			Help:      "Tokens minted for a new lineage, by kind.",
		}, []string{"kind"}),
		renewed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msl",
			Name:      "tokens_renewed_total",
			Help:      "Tokens minted by renewing an existing lineage, by kind.",
		}, []string{"kind"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msl",
			Name:      "token_rejections_total",
			Help:      "Tokens refused by validation or renewal, by error code.",
		}, []string{"reason"}),
	}
	if registerer == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{m.issued, m.renewed, m.rejections} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// reject counts err under its error code and returns it unchanged.
func (m *metrics) reject(err error) error {
	reason := "other"
	if code, ok := mslerror.CodeOf(err); ok {
		reason = strings.ToLower(code.String())
	}
	m.rejections.WithLabelValues(reason).Inc()
	return err
}
