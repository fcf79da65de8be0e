package raft

import (
	"math/rand"
	"time"

	"github.com/worldcryptonomad/rsm/raft/sink"
	"github.com/worldcryptonomad/rsm/raft/wire"
)

// randomizedElectionTimeout draws uniformly from [T, 2T], per §4.9.
func randomizedElectionTimeout(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return base + time.Duration(rand.Int63n(int64(base)+1))
}

func (r *Raft[P]) armElectionTimer() {
	r.electionTimer.arm(randomizedElectionTimeout(r.cfg.ElectionTimeoutBase), false, r.cmdCh)
}

func (r *Raft[P]) armProbeTimer() {
	r.probeTimer.arm(r.cfg.ElectionTimeoutBase, false, r.cmdCh)
}

func (r *Raft[P]) armIdleTimer() {
	r.idleTimer.arm(r.cfg.IdleGrace, false, r.cmdCh)
}

// armHeartbeat starts the leader's periodic HEARTBEAT tick. Firing
// while no longer leader is harmless: handle() gates heartbeatCmd on
// the current role.
func (r *Raft[P]) armHeartbeat() {
	r.disarmHeartbeat()
	stop := make(chan struct{})
	r.heartbeatStop = stop
	interval := r.cfg.HeartbeatInterval
	out := r.cmdCh
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case out <- heartbeatCmd{}:
				case <-stop:
					return
				}
			}
		}
	}()
}

func (r *Raft[P]) disarmHeartbeat() {
	if r.heartbeatStop != nil {
		close(r.heartbeatStop)
		r.heartbeatStop = nil
	}
}

// noteLeaderTraffic resets the idle timer; called whenever a valid
// PING or REPLICATE is observed from the current-term leader.
func (r *Raft[P]) noteLeaderTraffic() {
	r.armIdleTimer()
}

// becomeFollower adopts newTerm (which may equal the current term, for
// a same-term step-down) and resets role state. votedFor is cleared
// only when the term actually advances, per §4.5's term rule.
func (r *Raft[P]) becomeFollower(newTerm uint64) {
	wasFollower := r.role == Follower
	if newTerm > r.term {
		r.term = newTerm
		r.votedFor = nil
		r.leader = nil
	}
	r.role = Follower
	r.votes = nil
	r.advertises = nil
	r.probeTimer.disarm()
	r.disarmHeartbeat()
	r.armElectionTimer()
	if !wasFollower {
		r.producer.Emit(sink.Following)
		r.logger().Info().Msg("became follower")
	}
}

// becomeProbe enters the pre-candidate phase: broadcasts a prevote
// PROBE without mutating term or votedFor, per §4.5.
func (r *Raft[P]) becomeProbe() {
	r.role = Probe
	r.advertises = make(map[wire.NodeID]bool, len(r.peers))
	r.electionTimer.disarm()
	r.armProbeTimer()
	r.logger().Info().Msg("entering probe")
	prospective := r.term + 1
	head, headTerm := r.log.lastIndex(), r.log.lastTerm()
	r.broadcast(func(wire.NodeID) wire.Message {
		return wire.Probe{ID: r.id, Term: prospective, Head: head, HeadTerm: headTerm, Prevote: true}
	})
	if r.majority(1) { // no peers to wait on: self alone already decides
		r.becomeCandidate()
	}
}

// becomeCandidate increments term, votes for self, and solicits votes
// via a non-prevote PROBE, per §4.5.
func (r *Raft[P]) becomeCandidate() {
	r.role = Candidate
	r.term++
	self := r.id
	r.votedFor = &self
	r.votes = map[wire.NodeID]bool{r.id: true}
	r.leader = nil
	r.probeTimer.disarm()
	r.armElectionTimer()
	r.logger().Info().Msg("became candidate")
	head, headTerm := r.log.lastIndex(), r.log.lastTerm()
	r.broadcast(func(wire.NodeID) wire.Message {
		return wire.Probe{ID: r.id, Term: r.term, Head: head, HeadTerm: headTerm, Prevote: false}
	})
	if r.majority(len(r.votes)) { // no peers to wait on: self alone already decides
		r.becomeLeader()
	}
}

// becomeLeader initializes leader-only state, appends a no-op entry at
// the new term, and starts heartbeating, per §4.5.
func (r *Raft[P]) becomeLeader() {
	r.role = Leader
	self := r.id
	r.leader = &self
	r.electionTimer.disarm()
	r.nextIndex = make(map[wire.NodeID]uint64, len(r.peers))
	r.matchIndex = make(map[wire.NodeID]uint64, len(r.peers))
	for _, p := range r.peers {
		r.nextIndex[p] = r.log.lastIndex() + 1
		r.matchIndex[p] = 0
		r.age[p]++
	}
	r.log.append(wire.LogEntry{Term: r.term, Blob: nil})
	r.producer.Emit(sink.Leading)
	r.logger().Info().Msg("became leader")
	r.broadcast(func(wire.NodeID) wire.Message {
		return wire.Upgrade{ID: r.id, Term: r.term}
	})
	r.armHeartbeat()
	// With no peers, majority is self alone: advanceCommit must run
	// here too, since there will never be an ACK to trigger it.
	r.advanceCommit()
	r.replicateAll()
}

// upToDate reports whether (lastTerm, lastIndex) is at least as
// up-to-date as (t, i), per §4.7.
func upToDate(lastTerm, lastIndex, t, i uint64) bool {
	if lastTerm != t {
		return lastTerm > t
	}
	return lastIndex >= i
}

// grantVote applies the §4.5 vote-granting rule for a real (non-
// prevote) solicitation. Caller has already applied the term-adoption
// rule, so term >= r.term by the time this runs.
func (r *Raft[P]) grantVote(term uint64, candidate wire.NodeID, head, headTerm uint64) bool {
	if term < r.term {
		return false
	}
	if r.votedFor != nil && *r.votedFor != candidate {
		return false
	}
	if !upToDate(headTerm, head, r.log.lastTerm(), r.log.lastIndex()) {
		return false
	}
	r.votedFor = &candidate
	r.armElectionTimer()
	return true
}
