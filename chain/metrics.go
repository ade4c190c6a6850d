// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	txAccepted         prometheus.Counter
	txRejected         *prometheus.CounterVec
	opsApplied         prometheus.Counter
	blocksApplied      prometheus.Counter
	committeeApprovals prometheus.Counter
	maintenances       prometheus.Counter
}

func newMetrics(namespace string, registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		txAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_accepted",
			Help:      "Number of transactions applied",
		}),
		txRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_rejected",
			Help:      "Number of transactions rejected, by failure kind",
		}, []string{"kind"}),
		opsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ops_applied",
			Help:      "Number of operations applied",
		}),
		blocksApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_applied",
			Help:      "Number of blocks applied",
		}),
		committeeApprovals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "committee_approvals",
			Help:      "Number of transactions approved by the committee account",
		}),
		maintenances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "maintenances",
			Help:      "Number of maintenance intervals processed",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.txAccepted),
		registerer.Register(m.txRejected),
		registerer.Register(m.opsApplied),
		registerer.Register(m.blocksApplied),
		registerer.Register(m.committeeApprovals),
		registerer.Register(m.maintenances),
	)
	return m, errs.Err
}
