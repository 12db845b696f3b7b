package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepublish",
			Name:      "verdicts_total",
			Help:      "Versions decided, by outcome and by what decided them",
		},
		[]string{"outcome", "source"},
	)

	passStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepublish",
			Name:      "pass_step_failures_total",
			Help:      "Pass sequences interrupted after the version was accepted",
		},
		[]string{"step"},
	)

	withdrawnTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepublish",
			Name:      "withdrawn_documents_total",
			Help:      "Documents removed by cascade withdrawal",
		},
		[]string{"kind"},
	)

	repairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepublish",
			Name:      "repairs_total",
			Help:      "Documents fixed by the repair workers",
		},
		[]string{"worker", "kind"},
	)
)
