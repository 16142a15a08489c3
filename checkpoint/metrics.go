package checkpoint

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "pgsource"
	Subsystem = "checkpoint"

	LabelServer  = "server"
	LabelOutcome = "outcome"
)

const (
	OutcomeRestored = "restored"
	OutcomeEmpty    = "empty"
	OutcomeFailed   = "failed"
)

var (
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "commits_total",
			Help:      "Total number of offsets committed to the checkpoint store",
		},
		[]string{LabelServer},
	)

	CommitFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "commit_failures_total",
			Help:      "Total number of offset commits that failed after retries",
		},
		[]string{LabelServer},
	)

	CommittedLSN = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "committed_lsn",
			Help:      "Log sequence number of the last committed offset",
		},
		[]string{LabelServer},
	)

	SnapshotInEffect = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "snapshot_in_effect",
			Help:      "1 while the last committed offset is inside the initial snapshot",
		},
		[]string{LabelServer},
	)

	RestoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "restores_total",
			Help:      "Total number of offset restores by outcome",
		},
		[]string{LabelServer, LabelOutcome},
	)
)

// RegisterMetrics registers the checkpoint metrics with reg, or with the
// default registerer when reg is nil. Registering twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	for _, c := range []prometheus.Collector{
		CommitsTotal,
		CommitFailuresTotal,
		CommittedLSN,
		SnapshotInEffect,
		RestoresTotal,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return fmt.Errorf("register checkpoint metrics: %w", err)
		}
	}

	return nil
}
