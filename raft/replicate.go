package raft

import (
	"github.com/worldcryptonomad/rsm/raft/sink"
	"github.com/worldcryptonomad/rsm/raft/wire"
)

// handleMessage applies the global term rule (§4.5) — except for a
// prevote Probe, which is exempt so the PROBE phase cannot inflate
// anyone's term — then dispatches to the role-specific handler.
func (r *Raft[P]) handleMessage(c messageCmd) {
	msg := c.msg

	if p, ok := msg.(wire.Probe); ok && p.Prevote {
		r.onProbePrevote(c.src, p)
		return
	}

	if msg.MsgTerm() < r.term {
		return // stale message, §7
	}
	if msg.MsgTerm() > r.term {
		r.becomeFollower(msg.MsgTerm())
	}

	switch m := msg.(type) {
	case wire.Ping:
		r.onPing(c.src, m)
	case wire.Replicate:
		r.onReplicate(c.src, m)
	case wire.Ack:
		r.onAck(c.src, m)
	case wire.Rebase:
		r.onRebase(c.src, m)
	case wire.Upgrade:
		r.onUpgrade(c.src, m)
	case wire.Probe:
		r.onProbeVote(c.src, m)
	case wire.Advertise:
		r.onAdvertise(c.src, m)
	case wire.Vote:
		r.onVote(c.src, m)
	case wire.Append:
		r.onAppend(c.src, m)
	}
}

func (r *Raft[P]) onPing(src string, m wire.Ping) {
	peerID, ok := r.nodeIDFor(src)
	if !ok {
		return
	}
	if r.role != Follower {
		r.becomeFollower(m.Term)
	}
	r.leader = &peerID
	r.noteLeaderTraffic()
	r.armElectionTimer()
	r.applyCommitHint(m.Commit)
	r.send(src, wire.Ack{ID: r.id, Term: r.term, Ack: r.log.lastIndex(), Age: 0})
}

func (r *Raft[P]) onReplicate(src string, m wire.Replicate) {
	peerID, ok := r.nodeIDFor(src)
	if !ok {
		return
	}
	if r.role != Follower {
		r.becomeFollower(m.Term)
	}
	r.leader = &peerID
	r.noteLeaderTraffic()
	r.armElectionTimer()

	if m.Off > r.log.lastIndex() {
		r.send(src, wire.Rebase{ID: r.id, Term: r.term})
		return
	}
	prevTerm, ok := r.log.termAt(m.Off)
	if !ok || prevTerm != m.PrevTerm {
		r.send(src, wire.Rebase{ID: r.id, Term: r.term})
		return
	}

	r.reconcile(m.Off, m.Append)
	r.applyCommitHint(m.Commit)
	r.send(src, wire.Ack{ID: r.id, Term: r.term, Ack: r.log.lastIndex(), Age: m.Age})
}

// reconcile implements §4.6 step 2: entries already present with a
// matching term are left alone; the first mismatch truncates the log
// from that point and appends the remainder.
func (r *Raft[P]) reconcile(off uint64, entries []wire.LogEntry) {
	for i, e := range entries {
		pos := off + 1 + uint64(i)
		existing, exists := r.log.get(pos)
		if exists && existing.Term == e.Term {
			continue
		}
		if exists {
			r.log.truncateFrom(pos)
		}
		r.log.append(entries[i:]...)
		return
	}
}

// applyCommitHint advances commit to min(hint, last_log_index) and
// drives the apply pipeline forward, per §4.6 step 3 / §4.8.
func (r *Raft[P]) applyCommitHint(hint uint64) {
	if hint <= r.commit {
		return
	}
	nc := hint
	if nc > r.log.lastIndex() {
		nc = r.log.lastIndex()
	}
	if nc > r.commit {
		r.commit = nc
		r.advanceApply()
	}
}

func (r *Raft[P]) onAck(src string, m wire.Ack) {
	if r.role != Leader {
		return
	}
	peerID, ok := r.nodeIDFor(src)
	if !ok {
		return
	}
	if m.Age != r.age[peerID] {
		return // stale ack from before a retransmit-reset, §4.5
	}
	if m.Ack > r.matchIndex[peerID] {
		r.matchIndex[peerID] = m.Ack
	}
	if m.Ack+1 > r.nextIndex[peerID] {
		r.nextIndex[peerID] = m.Ack + 1
	}
	r.advanceCommit()
}

func (r *Raft[P]) onRebase(src string, m wire.Rebase) {
	if r.role != Leader {
		return
	}
	peerID, ok := r.nodeIDFor(src)
	if !ok {
		return
	}
	if r.nextIndex[peerID] > 1 {
		r.nextIndex[peerID]--
	}
	r.age[peerID]++
	r.replicateTo(peerID)
}

func (r *Raft[P]) onUpgrade(src string, m wire.Upgrade) {
	peerID, ok := r.nodeIDFor(src)
	if !ok {
		return
	}
	if r.role != Follower {
		r.becomeFollower(m.Term)
	}
	r.leader = &peerID
	r.noteLeaderTraffic()
	r.armElectionTimer()
}

// onProbePrevote always answers a prevote Probe with our current log
// head; it never mutates term or votedFor (§4.5).
func (r *Raft[P]) onProbePrevote(src string, p wire.Probe) {
	r.send(src, wire.Advertise{
		ID:       r.id,
		Term:     r.term,
		Head:     r.log.lastIndex(),
		HeadTerm: r.log.lastTerm(),
	})
}

// onProbeVote is a real (non-prevote) candidate's vote solicitation.
func (r *Raft[P]) onProbeVote(src string, p wire.Probe) {
	if r.grantVote(p.Term, p.ID, p.Head, p.HeadTerm) {
		r.send(src, wire.Vote{ID: r.id, Term: p.Term})
	}
}

// onAdvertise counts prevote replies toward the PROBE-phase majority
// (§4.5, §4.7).
func (r *Raft[P]) onAdvertise(src string, m wire.Advertise) {
	if r.role != Probe {
		return
	}
	if upToDate(r.log.lastTerm(), r.log.lastIndex(), m.HeadTerm, m.Head) {
		r.advertises[m.ID] = true
	}
	count := 1 // self
	for _, ok := range r.advertises {
		if ok {
			count++
		}
	}
	if r.majority(count) {
		r.becomeCandidate()
	}
}

func (r *Raft[P]) onVote(src string, m wire.Vote) {
	if r.role != Candidate || m.Term != r.term {
		return
	}
	r.votes[m.ID] = true
	count := 0
	for _, ok := range r.votes {
		if ok {
			count++
		}
	}
	if r.majority(count) {
		r.becomeLeader()
	}
}

// onAppend is a client submission forwarded by a peer that isn't
// leading. On a leader, it is appended and replicated; otherwise it is
// forwarded again toward whoever we believe is leading, or dropped.
func (r *Raft[P]) onAppend(src string, m wire.Append) {
	if r.role != Leader {
		if r.leader != nil {
			r.send(r.roster[*r.leader], m)
		}
		return
	}
	r.log.append(wire.LogEntry{Term: r.term, Blob: m.Blob})
	r.advanceCommit()
	r.replicateAll()
}

func (r *Raft[P]) handleStore(blob []byte) {
	if r.role == Leader {
		r.log.append(wire.LogEntry{Term: r.term, Blob: blob})
		r.advanceCommit()
		r.replicateAll()
		return
	}
	if r.leader != nil {
		r.send(r.roster[*r.leader], wire.Append{ID: r.id, Term: r.term, Blob: blob})
	}
	// Else: no known leader. Dropped per SPEC_FULL.md §4's resolution
	// of spec.md's STORE-on-non-leader open question.
}

func (r *Raft[P]) handleTimeout(c timeoutCmd) {
	switch c.kind {
	case timerElection:
		if !r.electionTimer.valid(c.epoch) {
			return
		}
		switch r.role {
		case Follower, Candidate:
			r.becomeProbe()
		}
	case timerProbeWindow:
		if !r.probeTimer.valid(c.epoch) {
			return
		}
		if r.role == Probe {
			r.becomeFollower(r.term)
		}
	case timerIdle:
		if !r.idleTimer.valid(c.epoch) {
			return
		}
		r.producer.Emit(sink.Idle)
		r.armIdleTimer()
	}
}

// leaderHeartbeat is the HEARTBEAT command's handler: round-robin
// replication to every peer, one PING or REPLICATE per peer per tick
// (§4.5, §4.6).
func (r *Raft[P]) leaderHeartbeat() {
	r.replicateAll()
}

func (r *Raft[P]) replicateAll() {
	for _, p := range r.peers {
		r.replicateTo(p)
	}
}

func (r *Raft[P]) replicateTo(peer wire.NodeID) {
	next := r.nextIndex[peer]
	if next == 0 {
		next = 1
	}
	if next > r.log.lastIndex() {
		r.send(r.roster[peer], wire.Ping{ID: r.id, Term: r.term, Commit: r.commit})
		return
	}
	entries, prevTerm := r.log.entriesFrom(next, r.cfg.ReplicationBatchMax)
	r.send(r.roster[peer], wire.Replicate{
		ID:       r.id,
		Term:     r.term,
		Off:      next - 1,
		PrevTerm: prevTerm,
		Age:      r.age[peer],
		Commit:   r.commit,
		Append:   entries,
	})
}

// advanceCommit implements the leader's majority+current-term commit
// rule (§4.5): the highest N with match_index ≥ N on a strict majority
// of peers (including self) and log[N].term == self.term.
func (r *Raft[P]) advanceCommit() {
	for n := r.log.lastIndex(); n > r.commit; n-- {
		term, ok := r.log.termAt(n)
		if !ok || term != r.term {
			continue
		}
		count := 1 // self
		for _, p := range r.peers {
			if r.matchIndex[p] >= n {
				count++
			}
		}
		if r.majority(count) {
			r.commit = n
			r.advanceApply()
			return
		}
	}
}

// advanceApply drives applied toward commit, one entry at a time, in
// order, per §4.8. An apply panic is treated as fatal per §7: it is
// recovered here and converted into a clean shutdown rather than a
// crash of the whole process, so one automaton's failure never takes
// down a host running several.
func (r *Raft[P]) advanceApply() {
	for r.applied < r.commit {
		n := r.applied + 1
		entry, ok := r.log.get(n)
		if !ok {
			return
		}
		if !r.applyOne(entry.Blob) {
			return
		}
		r.applied = n
	}
}

func (r *Raft[P]) applyOne(blob []byte) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().Error().Interface("panic", rec).Msg("apply callback panicked, shutting down")
			ok = false
			r.Drain()
		}
	}()
	r.barrier.apply(func(p P) { p.Apply(blob) })
	return true
}
