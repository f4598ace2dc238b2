package password

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/kefi/internal/client/autherr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Check(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		pw      string
		wantErr bool
		fails   int
	}{
		{name: "standard ok", policy: Standard, pw: "Secret123"},
		{name: "standard too short", policy: Standard, pw: "Sec1", wantErr: true, fails: 1},
		{name: "standard no upper no digit", policy: Standard, pw: "secretpass", wantErr: true, fails: 2},
		{name: "basic accepts lowercase", policy: Basic, pw: "secretpass"},
		{name: "strict ok", policy: Strict, pw: "C0rrect-Horse-Battery"},
		{name: "strict missing symbol and length", policy: Strict, pw: "Secret123", wantErr: true, fails: 3},
		{name: "empty", policy: Standard, pw: "", wantErr: true, fails: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check(tt.pw)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, autherr.ErrWeakPassword)

			var ae *autherr.Error
			require.ErrorAs(t, err, &ae)
			assert.Len(t, ae.Fields["password"], tt.fails)
		})
	}
}

func TestCheck_ListsEachRuleOnce(t *testing.T) {
	err := Standard.Check("secretpass")
	require.Error(t, err)

	msg := err.Error()
	assert.Equal(t, "Password is too weak. (password: Password must contain at least one uppercase letter. Password must contain at least one digit.)", msg)
	assert.Equal(t, 1, strings.Count(msg, "at least one digit"))
}

func TestEntropy(t *testing.T) {
	assert.Zero(t, Entropy(""))
	assert.InDelta(t, 8*4.7004, Entropy("abcdefgh"), 0.01)
	assert.Greater(t, Entropy("Abcdefg1"), Entropy("abcdefgh"))
}

func TestNamed(t *testing.T) {
	p, err := Named("STRICT")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	p, err = Named("")
	require.NoError(t, err)
	assert.Equal(t, Standard, p)

	_, err = Named("paranoid")
	require.Error(t, err)
}
