// Package metrics counts ceremony outcomes. Nothing in this package
// registers itself with prometheus's default registry at import time: a
// caller that wants these counters exposed on its own /metrics handler
// calls Register(reg) once at startup, keeping the core side-effect free
// by default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ceremonies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webauthnrp_ceremonies_total",
			Help: "WebAuthn ceremonies by kind (register/authenticate) and result kind.",
		},
		[]string{"ceremony", "result"},
	)

	attestationTypes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webauthnrp_attestation_types_total",
			Help: "Registrations by resolved attestation type.",
		},
		[]string{"type"},
	)
)

// Register adds this package's collectors to reg.
func Register(reg prometheus.Registerer) error {
	if err := reg.Register(ceremonies); err != nil {
		return err
	}
	return reg.Register(attestationTypes)
}

// ObserveRegistration records the outcome of a registration ceremony.
// result is "ok" or an error Kind string; attestationType is the resolved
// attestation type on success, empty on failure.
func ObserveRegistration(result string, attestationType string) {
	ceremonies.WithLabelValues("register", result).Inc()
	if attestationType != "" {
		attestationTypes.WithLabelValues(attestationType).Inc()
	}
}

// ObserveAuthentication records the outcome of an authentication ceremony.
func ObserveAuthentication(result string) {
	ceremonies.WithLabelValues("authenticate", result).Inc()
}
