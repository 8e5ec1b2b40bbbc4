package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/layer-3/walletauth/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{core.ErrNoChallenge, OutcomeNoChallenge},
		{fmt.Errorf("wrapped: %w", core.ErrChallengeExpired), OutcomeExpired},
		{core.ErrSignatureMismatch, OutcomeMismatch},
		{core.ErrMalformedSignature, OutcomeMalformed},
		{fmt.Errorf("%w: boom", core.ErrStorageUnavailable), OutcomeStorageError},
		{core.ErrInvalidIdentity, OutcomeInvalidInput},
		{errors.New("other"), OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestVerificationsCounter(t *testing.T) {
	before := testutil.ToFloat64(Verifications.WithLabelValues(OutcomeMismatch))
	Verifications.WithLabelValues(Outcome(core.ErrSignatureMismatch)).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Verifications.WithLabelValues(OutcomeMismatch)))
}
