package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatus_String(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusUnset, "unset"},
		{RunStatusCompleted, "completed"},
		{RunStatusAborted, "aborted"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestRunStatus_IsValid(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunStatusCompleted, true},
		{RunStatusAborted, true},
		{RunStatusUnset, false},
		{RunStatus("arbitrary"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.IsValid(), "RunStatus(%q).IsValid()", string(tt.status))
	}
}

func TestAbortReason_String(t *testing.T) {
	assert.Equal(t, "none", AbortReasonNone.String())
	assert.Equal(t, "start_unreachable", AbortReasonStartUnreachable.String())
	assert.Equal(t, "logo_not_found", AbortReasonLogoNotFound.String())
}

func TestAbortReason_IsValid(t *testing.T) {
	assert.True(t, AbortReasonStartUnreachable.IsValid())
	assert.True(t, AbortReasonLogoNotFound.IsValid())
	assert.False(t, AbortReasonNone.IsValid())
	assert.False(t, AbortReason("other").IsValid())
}
