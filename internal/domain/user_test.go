package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserIdentityStatus(t *testing.T) {
	c := "0xabc"

	u := User{}
	require.Equal(t, StatusUnregistered, u.IdentityStatus())
	require.False(t, u.IsPending())
	require.Equal(t, "", u.Commitment())

	u = User{IdentityCommitment: &c, IsVerified: true}
	require.Equal(t, StatusPending, u.IdentityStatus())
	require.True(t, u.IsPending())
	require.Equal(t, c, u.Commitment())

	u.IsOnChain = true
	require.Equal(t, StatusAdmitted, u.IdentityStatus())
	require.False(t, u.IsPending())
}
