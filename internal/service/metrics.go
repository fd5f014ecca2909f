package service

import "github.com/prometheus/client_golang/prometheus"

var (
	identitySubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "identity_submissions_total", Help: "Identity commitment submissions"},
		[]string{"result"},
	)
	identityBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "identity_batches_total", Help: "Batch admissions by trigger"},
		[]string{"trigger"},
	)
	identityAdmitted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "identity_admitted_total", Help: "Users moved on-chain"},
	)
	identityPending = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "identity_pending", Help: "Pending users seen by the last scan"},
	)
)

func init() {
	prometheus.MustRegister(identitySubmissions, identityBatches, identityAdmitted, identityPending)
}
