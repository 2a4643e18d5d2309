package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairKey(t *testing.T) {
	low, high, err := PairKey("bob", "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", low)
	require.Equal(t, "bob", high)

	low2, high2, err := PairKey("alice", "bob")
	require.NoError(t, err)
	require.Equal(t, low, low2, "pair key is order independent")
	require.Equal(t, high, high2)
}

func TestPairKeyRejectsDegeneratePairs(t *testing.T) {
	_, _, err := PairKey("alice", "alice")
	require.ErrorIs(t, err, ErrSameParticipant)

	_, _, err = PairKey("", "bob")
	require.ErrorIs(t, err, ErrEmptyParticipant)

	_, _, err = PairKey("alice", "")
	require.ErrorIs(t, err, ErrEmptyParticipant)
}

func TestConversationHasParticipant(t *testing.T) {
	c := &Conversation{UserLow: "alice", UserHigh: "bob"}
	require.True(t, c.HasParticipant("alice"))
	require.True(t, c.HasParticipant("bob"))
	require.False(t, c.HasParticipant("mallory"))
	require.False(t, c.HasParticipant(""))
	require.Equal(t, [2]string{"alice", "bob"}, c.Participants())
}
