package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintAndVerify(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.Mint("user-42", time.Hour)
	require.NoError(t, err)

	userID, err := v.UserID(token)
	require.NoError(t, err)
	require.Equal(t, "user-42", userID)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := NewVerifier("one").Mint("u", time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("two").UserID(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.Mint("u", -time.Minute)
	require.NoError(t, err)

	_, err = v.UserID(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageRejected(t *testing.T) {
	_, err := NewVerifier("secret").UserID("not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestFromHeader(t *testing.T) {
	tok, ok := FromHeader("Bearer abc.def.ghi")
	require.True(t, ok)
	require.Equal(t, "abc.def.ghi", tok)

	tok, ok = FromHeader("bearer abc")
	require.True(t, ok, "scheme is case-insensitive")
	require.Equal(t, "abc", tok)

	_, ok = FromHeader("")
	require.False(t, ok)
	_, ok = FromHeader("Basic abc")
	require.False(t, ok)
	_, ok = FromHeader("Bearer ")
	require.False(t, ok)
}
