package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"terratrust/internal/license"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		info     license.Info
		want     string
		wantDays int
	}{
		{
			name: "no license",
			info: license.Info{State: license.StateNone},
			want: StatusNotActivated,
		},
		{
			name: "expired",
			info: license.Info{State: license.StateExpired},
			want: StatusExpired,
		},
		{
			name: "invalid signature",
			info: license.Info{State: license.StateInvalid, Reason: license.ReasonSignature},
			want: StatusInvalid,
		},
		{
			name: "hardware mismatch",
			info: license.Info{State: license.StateInvalid, Reason: license.ReasonHardware},
			want: StatusInvalid,
		},
		{
			name:     "plenty of runway",
			info:     license.Info{State: license.StateValid, ExpiresAt: now.AddDate(0, 6, 0)},
			want:     StatusActive,
			wantDays: 184,
		},
		{
			name:     "inside warning threshold",
			info:     license.Info{State: license.StateValid, ExpiresAt: now.AddDate(0, 0, 20)},
			want:     StatusWarning,
			wantDays: 20,
		},
		{
			name:     "inside critical threshold",
			info:     license.Info{State: license.StateValid, ExpiresAt: now.AddDate(0, 0, 3)},
			want:     StatusCritical,
			wantDays: 3,
		},
		{
			name:     "boundary between warning and active",
			info:     license.Info{State: license.StateValid, ExpiresAt: now.AddDate(0, 0, 30)},
			want:     StatusWarning,
			wantDays: 30,
		},
		{
			name:     "tolerated license still classifies by expiry",
			info:     license.Info{State: license.StateTolerated, ExpiresAt: now.AddDate(0, 6, 0), Tolerant: true},
			want:     StatusActive,
			wantDays: 184,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message, daysLeft := Classify(tt.info, now)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.wantDays, daysLeft)
			assert.NotEmpty(t, message)
		})
	}
}

func TestClassifyMentionsToleranceMode(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	info := license.Info{State: license.StateTolerated, ExpiresAt: now.AddDate(1, 0, 0)}

	_, message, _ := Classify(info, now)

	assert.Contains(t, message, "tolerance")
}
