package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status string
		want   ClaimState
	}{
		{"awaiting carrier response", StateAwaitingCarrier},
		{"Awaiting Carrier Response", StateAwaitingCarrier},
		{"awaiting_carrier_response", StateAwaitingCarrier},
		{"submitted to insurance", StateAwaitingCarrier},
		{"Supplement Submitted", StateAwaitingCarrier},
		{"under review", StateAwaitingCarrier},
		{"Under Review - Carrier", StateAwaitingCarrier},
		{"inspection scheduled", StateAwaitingCarrier},
		{"pending carrier", StateAwaitingCarrier},
		{"awaiting adjuster assignment", StateAwaitingCarrier},
		// Truncated legacy status still matches via reverse substring
		{"under review", StateAwaitingCarrier},
		{"settled", StateOther},
		{"closed", StateOther},
		{"awaiting client documents", StateOther},
		{"negotiating", StateOther},
		{"", StateOther},
		{"   ", StateOther},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.status))
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, "under review carrier", normalizeStatus("  Under_Review - Carrier "))
	assert.Equal(t, "", normalizeStatus("   "))
}
