package statictoken

import (
	"context"
	"testing"

	"github.com/riskibarqy/volleyball-league/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_VerifyAccessToken(t *testing.T) {
	t.Parallel()

	v := NewVerifier([]string{" alpha ", "", "beta"})

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "first token", token: "alpha"},
		{name: "second token with spaces", token: "  beta "},
		{name: "unknown token", token: "gamma", wantErr: usecase.ErrUnauthorized},
		{name: "empty token", token: " ", wantErr: usecase.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, err := v.VerifyAccessToken(context.Background(), tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, principal.CanImport())
			assert.NotEmpty(t, principal.UserID)
		})
	}
}

func TestVerifier_NoTokensRejectsEverything(t *testing.T) {
	t.Parallel()

	_, err := NewVerifier(nil).VerifyAccessToken(context.Background(), "anything")
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}
