package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus(t *testing.T) {
	for _, s := range []JobStatus{
		JobStatusAvailable, JobStatusAssigned, JobStatusInProgress,
		JobStatusSubmitted, JobStatusCompleted, JobStatusCancelled,
	} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, JobStatus("pending").Valid())
	assert.False(t, JobStatus("").Valid())

	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
	assert.False(t, JobStatusSubmitted.Terminal())
	assert.False(t, JobStatusAvailable.Terminal())
}

func TestTrustLevel_Satisfies(t *testing.T) {
	tests := []struct {
		worker   TrustLevel
		required TrustLevel
		want     bool
	}{
		{TrustBasic, TrustBasic, true},
		{TrustBasic, TrustVerified, false},
		{TrustBasic, TrustKYCGold, false},
		{TrustVerified, TrustBasic, true},
		{TrustVerified, TrustVerified, true},
		{TrustVerified, TrustKYCGold, false},
		{TrustKYCGold, TrustBasic, true},
		{TrustKYCGold, TrustKYCGold, true},
		{TrustLevel("bogus"), TrustBasic, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_requires_%s", tt.worker, tt.required), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.worker.Satisfies(tt.required))
		})
	}
}

func TestTrustLevel_TiersAtOrBelow(t *testing.T) {
	assert.Equal(t, []TrustLevel{TrustBasic}, TrustBasic.TiersAtOrBelow())
	assert.Equal(t, []TrustLevel{TrustBasic, TrustVerified}, TrustVerified.TiersAtOrBelow())
	assert.Equal(t, []TrustLevel{TrustBasic, TrustVerified, TrustKYCGold}, TrustKYCGold.TiersAtOrBelow())
}

func TestErrorKinds(t *testing.T) {
	err := E(KindValidation, "title is required")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.True(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(err, KindNotFound))

	wrapped := fmt.Errorf("handling request: %w", Wrap(KindUpstreamUnavailable, "ledger down", errors.New("dial tcp")))
	assert.Equal(t, KindUpstreamUnavailable, KindOf(wrapped))
	assert.Contains(t, wrapped.Error(), "dial tcp")

	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}
