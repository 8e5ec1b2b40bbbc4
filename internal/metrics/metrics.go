// Package metrics exposes Prometheus counters for challenge and session activity.
package metrics

import (
	"errors"

	"github.com/layer-3/walletauth/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all walletauth metrics
	Namespace = "walletauth"

	LabelOutcome = "outcome"
	LabelStore   = "store"

	OutcomeSuccess      = "success"
	OutcomeNoChallenge  = "no_challenge"
	OutcomeExpired      = "expired"
	OutcomeMismatch     = "mismatch"
	OutcomeMalformed    = "malformed"
	OutcomeStorageError = "storage_error"
	OutcomeInvalidInput = "invalid_input"
	OutcomeError        = "error"
)

var (
	// ChallengesIssued counts challenges handed out
	ChallengesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "challenges_issued_total",
			Help:      "Total number of challenges issued by outcome",
		},
		[]string{LabelOutcome},
	)

	// Verifications counts signature verification attempts
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "verifications_total",
			Help:      "Total number of challenge verifications by outcome",
		},
		[]string{LabelOutcome},
	)

	// SessionsCreated counts sessions minted after a successful login
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		},
	)

	// SessionsDestroyed counts logouts
	SessionsDestroyed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_destroyed_total",
			Help:      "Total number of sessions destroyed",
		},
	)

	// SweptRecords counts expired records removed by the sweeper
	SweptRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "swept_records_total",
			Help:      "Total number of expired records removed by the sweeper",
		},
		[]string{LabelStore},
	)
)

// Outcome maps a service error to its outcome label
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, core.ErrNoChallenge):
		return OutcomeNoChallenge
	case errors.Is(err, core.ErrChallengeExpired):
		return OutcomeExpired
	case errors.Is(err, core.ErrSignatureMismatch):
		return OutcomeMismatch
	case errors.Is(err, core.ErrMalformedSignature):
		return OutcomeMalformed
	case errors.Is(err, core.ErrStorageUnavailable):
		return OutcomeStorageError
	case errors.Is(err, core.ErrInvalidIdentity):
		return OutcomeInvalidInput
	default:
		return OutcomeError
	}
}
