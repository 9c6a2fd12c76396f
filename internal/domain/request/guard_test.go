package request

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"spareflow/internal/core/apperror"
	"spareflow/internal/core/id"
)

func TestCheck_ReturnTable(t *testing.T) {
	all := []string{StatusPending, StatusReceived, StatusVerified, StatusRejected, StatusReopened}
	legal := map[Transition][]string{
		TransitionUpdate:  {StatusPending},
		TransitionReceive: {StatusPending},
		TransitionVerify:  {StatusPending, StatusReceived},
		TransitionReject:  {StatusPending, StatusReceived},
		TransitionReopen:  {StatusPending, StatusReceived, StatusVerified},
	}

	for tr, allowed := range legal {
		for _, status := range all {
			r := &Request{ID: id.New(), Direction: DirectionReturn, Status: status}
			err := Check(r, tr)

			if contains(allowed, status) {
				assert.NoError(t, err, "%s from %s", tr, status)
				continue
			}
			assert.True(t, apperror.IsStateConflict(err), "%s from %s", tr, status)

			readOnly := tr != TransitionReopen && (status == StatusVerified || status == StatusReopened)
			assert.Equal(t, readOnly, apperror.IsReadOnly(err), "%s from %s", tr, status)
		}
	}
}

func TestCheck_OutboundOnlyFromPending(t *testing.T) {
	for _, status := range []string{StatusApproved, StatusRejected} {
		r := &Request{ID: id.New(), Direction: DirectionOutboundIssue, Status: status}
		err := Check(r, TransitionApprove)
		assert.True(t, apperror.IsStateConflict(err))
		assert.False(t, apperror.IsReadOnly(err))

		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, status, appErr.Details["current_status"])
	}

	r := &Request{ID: id.New(), Direction: DirectionOutboundIssue, Status: StatusPending}
	assert.NoError(t, Check(r, TransitionApprove))
	assert.NoError(t, Check(r, TransitionReject))
	assert.Error(t, Check(r, TransitionVerify))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
