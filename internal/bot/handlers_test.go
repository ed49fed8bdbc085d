package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReferralPayload(t *testing.T) {
	tests := []struct {
		name   string
		args   string
		userID int64
		want   int64
	}{
		{"valid payload", "ref7", 42, 7},
		{"empty payload", "", 42, 0},
		{"wrong prefix", "promo7", 42, 0},
		{"prefix without id", "ref", 42, 0},
		{"non-numeric id", "refbob", 42, 0},
		{"negative id", "ref-5", 42, 0},
		{"self referral", "ref42", 42, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseReferralPayload(tt.args, tt.userID))
		})
	}
}
