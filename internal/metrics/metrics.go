package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	stateSaves = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "machiai",
			Name:      "state_saves_total",
			Help:      "Count of operational-state persists.",
		},
	)

	stateResets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "machiai",
			Name:      "state_resets_total",
			Help:      "Count of automatic state resets by reason.",
		},
		[]string{"reason"},
	)

	remoteUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "machiai",
			Name:      "remote_updates_total",
			Help:      "Count of state updates received from other clients.",
		},
	)

	publishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "machiai",
			Name:      "publish_failures_total",
			Help:      "Count of failed state broadcasts.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(stateSaves, stateResets, remoteUpdates, publishFailures)
	})
}

func IncStateSave() {
	stateSaves.Inc()
}

func IncStateReset(reason string) {
	stateResets.WithLabelValues(reason).Inc()
}

func IncRemoteUpdate() {
	remoteUpdates.Inc()
}

func IncPublishFailure() {
	publishFailures.Inc()
}
