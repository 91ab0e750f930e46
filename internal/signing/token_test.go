package signing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenDeterministicPerSecret(t *testing.T) {
	tok := Token("3e34be7c-49be-4816-b1e2-6fb2cd0ad38a", "s3cret")
	require.Len(t, tok, 64)
	require.Equal(t, tok, Token("3e34be7c-49be-4816-b1e2-6fb2cd0ad38a", "s3cret"))
	require.NotEqual(t, tok, Token("3e34be7c-49be-4816-b1e2-6fb2cd0ad38a", "other"))
	require.NotEqual(t, tok, Token("another-code", "s3cret"))
}

func TestVerify(t *testing.T) {
	tok := Token("code", "secret")
	require.True(t, Verify("code", "secret", tok))
	require.False(t, Verify("code", "secret", tok+"00"))
	require.False(t, Verify("code", "wrong", tok))
}
