package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/worldcryptonomad/rsm/raft/wire"
)

func TestUpToDate(t *testing.T) {
	cases := []struct {
		name                           string
		lastTerm, lastIndex, t, i      uint64
		want                           bool
	}{
		{"higher term wins", 5, 1, 4, 100, true},
		{"lower term loses", 4, 100, 5, 1, false},
		{"same term, higher index wins", 4, 10, 4, 9, true},
		{"same term, lower index loses", 4, 9, 4, 10, false},
		{"identical heads", 4, 10, 4, 10, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, upToDate(c.lastTerm, c.lastIndex, c.t, c.i))
		})
	}
}

func newTestRaft() *Raft[*noopPayload] {
	return &Raft[*noopPayload]{
		log:           newLog(),
		electionTimer: newEpochTimer(timerElection),
		cmdCh:         make(chan command, 16),
	}
}

func TestGrantVoteRejectsStaleTerm(t *testing.T) {
	r := newTestRaft()
	r.term = 5
	require.False(t, r.grantVote(4, 1, 0, 0))
}

func TestGrantVoteRejectsSecondCandidateSameTerm(t *testing.T) {
	r := newTestRaft()
	r.term = 5
	self := wire.NodeID(9)
	r.votedFor = &self
	require.False(t, r.grantVote(5, 1, 0, 0))
}

func TestGrantVoteAllowsRevotingSameCandidate(t *testing.T) {
	r := newTestRaft()
	r.term = 5
	voted := wire.NodeID(1)
	r.votedFor = &voted
	require.True(t, r.grantVote(5, 1, 0, 0))
}

func TestGrantVoteRejectsStaleLog(t *testing.T) {
	r := newTestRaft()
	r.log.append(wire.LogEntry{Term: 3}, wire.LogEntry{Term: 3})
	r.term = 3
	require.False(t, r.grantVote(3, 1, 0 /* head */, 2 /* headTerm */))
}

func TestGrantVoteAcceptsUpToDateLog(t *testing.T) {
	r := newTestRaft()
	r.log.append(wire.LogEntry{Term: 3})
	r.term = 3
	require.True(t, r.grantVote(3, 1, 1, 3))
	require.NotNil(t, r.votedFor)
	require.Equal(t, wire.NodeID(1), *r.votedFor)
}
