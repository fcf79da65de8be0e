// Package raft implements the consensus automaton: a leader-elected,
// log-replicating role state machine that owns one worker thread and
// drives itself off an internal command queue fed by inbound messages,
// client submissions, and timers.
package raft

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/worldcryptonomad/rsm/primitives/event"
	"github.com/worldcryptonomad/rsm/raft/sink"
	"github.com/worldcryptonomad/rsm/raft/wire"
)

// Roster maps a cluster member's 8-bit id to its transport-addressable
// host label. Fixed at spawn time; dynamic membership is out of scope
// (spec.md §1 Non-goals).
type Roster map[wire.NodeID]string

// Transport is the user-supplied send callback. Best-effort: may drop,
// reorder, or duplicate. Invoked on the automaton's worker thread and
// must not block indefinitely or call back into the same automaton
// synchronously.
type Transport func(dstHost string, payload []byte)

// Raft is one cluster member's consensus automaton. The zero value is
// not usable; construct with Spawn.
type Raft[P Payload] struct {
	id         wire.NodeID
	host       string
	roster     Roster
	peers      []wire.NodeID
	cfg        Config
	transport  Transport
	instanceID uuid.UUID

	log      *entryLog
	term     uint64
	votedFor *wire.NodeID
	role     Role
	commit   uint64
	applied  uint64
	leader   *wire.NodeID

	hostToID map[string]wire.NodeID

	nextIndex  map[wire.NodeID]uint64
	matchIndex map[wire.NodeID]uint64
	age        map[wire.NodeID]uint64

	votes      map[wire.NodeID]bool
	advertises map[wire.NodeID]bool

	electionTimer  *epochTimer
	probeTimer     *epochTimer
	idleTimer      *epochTimer
	heartbeatStop  chan struct{}

	cmdCh    chan command
	producer *sink.Producer

	barrier *barrier[P]

	guard    *event.Guard
	doneCh   chan struct{}
	drained  bool
}

// Spawn creates and starts an automaton. id must be a key of roster
// (the member's own entry); newPayload constructs the initial, empty
// Payload. guard, if non-nil, is held by the automaton for its entire
// lifetime and dropped on Drain, so a caller can block on a shared
// event.Event until every spawned automaton has gone down (mirrors
// original_source/src/bin/cluster.rs's termination event).
func Spawn[P Payload](cfg Config, guard *event.Guard, id wire.NodeID, roster Roster, transport Transport, newPayload func() P) (*Raft[P], *ReadHandle[P], *sink.Sink) {
	cfg = cfg.withDefaults()
	host, ok := roster[id]
	if !ok {
		panic(fmt.Sprintf("raft: id %d is not a member of its own roster", id))
	}

	peers := make([]wire.NodeID, 0, len(roster)-1)
	hostToID := make(map[string]wire.NodeID, len(roster))
	for pid, phost := range roster {
		hostToID[phost] = pid
		if pid != id {
			peers = append(peers, pid)
		}
	}

	producer, consumer := sink.New(cfg.NotificationBuffer)

	r := &Raft[P]{
		id:         id,
		host:       host,
		roster:     roster,
		peers:      peers,
		cfg:        cfg,
		transport:  transport,
		instanceID: uuid.New(),

		log:      newLog(),
		role:     Follower,
		hostToID: hostToID,

		nextIndex:  make(map[wire.NodeID]uint64),
		matchIndex: make(map[wire.NodeID]uint64),
		age:        make(map[wire.NodeID]uint64),

		electionTimer: newEpochTimer(timerElection),
		probeTimer:    newEpochTimer(timerProbeWindow),
		idleTimer:     newEpochTimer(timerIdle),

		cmdCh:    make(chan command, cfg.CommandQueueDepth),
		producer: producer,

		barrier: newBarrier(cfg.LockStrategy, newPayload()),

		guard:  guard,
		doneCh: make(chan struct{}),
	}

	r.producer.Emit(sink.Started)
	r.armElectionTimer()
	r.armIdleTimer()

	go r.run()

	return r, &ReadHandle[P]{b: r.barrier}, consumer
}

// logger returns a zerolog.Logger carrying the automaton's current
// identity fields. Named logger (not log) because the type already has
// a log field holding the replicated entryLog.
func (r *Raft[P]) logger() zerolog.Logger {
	return r.cfg.Logger.With().
		Uint8("id", uint8(r.id)).
		Uint64("term", r.term).
		Str("role", r.role.String()).
		Str("instance", r.instanceID.String()).
		Logger()
}

// nodeIDFor resolves a transport host label back to a roster id.
func (r *Raft[P]) nodeIDFor(host string) (wire.NodeID, bool) {
	id, ok := r.hostToID[host]
	return id, ok
}

// majority reports whether count is a strict majority of the full
// cluster size (including self).
func (r *Raft[P]) majority(count int) bool {
	return count*2 > len(r.roster)
}

// Feed decodes data as an inbound envelope and enqueues it for
// processing. Thread-safe. Malformed input is logged and dropped, per
// spec §7 Protocol violation handling. A full command queue is treated
// as transport loss: the message is dropped.
func (r *Raft[P]) Feed(data []byte) {
	src, dst, msg, err := r.cfg.Codec.Unmarshal(data)
	if err != nil {
		r.cfg.Logger.Warn().Err(err).Msg("raft: dropping malformed envelope")
		return
	}
	select {
	case r.cmdCh <- messageCmd{src: src, dst: dst, msg: msg}:
	default:
		r.cfg.Logger.Warn().Str("src", src).Msg("raft: command queue full, dropping inbound message")
	}
}

// ErrBackpressure is returned by Store when the command queue is full.
var ErrBackpressure = fmt.Errorf("raft: command queue full")

// Store submits a client command. Thread-safe. No acknowledgement: the
// effect is observed via the ReadHandle or the notification stream. On
// a non-leader the submission is forwarded to the cached leader as
// APPEND if one is known, else dropped silently (spec.md Open
// Question, resolved in SPEC_FULL.md §4).
func (r *Raft[P]) Store(blob []byte) error {
	select {
	case r.cmdCh <- storeCmd{blob: blob}:
		return nil
	default:
		return ErrBackpressure
	}
}

// Drain posts a terminal command: the worker finishes in-flight apply,
// emits final notifications, closes the sink, drops its event guard,
// and exits. Idempotent.
func (r *Raft[P]) Drain() {
	select {
	case r.cmdCh <- drainCmd{}:
	case <-r.doneCh:
	}
}

// Done returns a channel closed once the automaton's worker has exited.
func (r *Raft[P]) Done() <-chan struct{} {
	return r.doneCh
}

// InstanceID is a per-spawn correlation id, distinct from the cluster
// NodeID, useful for telling apart successive restarts of the same
// NodeID in logs.
func (r *Raft[P]) InstanceID() uuid.UUID {
	return r.instanceID
}

func (r *Raft[P]) run() {
	defer r.shutdown()
	for {
		cmd := <-r.cmdCh
		if _, drain := cmd.(drainCmd); drain {
			return
		}
		r.handle(cmd)
	}
}

func (r *Raft[P]) handle(cmd command) {
	switch c := cmd.(type) {
	case messageCmd:
		r.handleMessage(c)
	case storeCmd:
		r.handleStore(c.blob)
	case timeoutCmd:
		r.handleTimeout(c)
	case heartbeatCmd:
		if r.role == Leader {
			r.leaderHeartbeat()
		}
	}
}

func (r *Raft[P]) shutdown() {
	if r.drained {
		return
	}
	r.drained = true
	r.electionTimer.disarm()
	r.probeTimer.disarm()
	r.idleTimer.disarm()
	r.disarmHeartbeat()
	r.producer.Emit(sink.Stopped)
	r.producer.Close()
	close(r.doneCh)
	if r.guard != nil {
		r.guard.Drop()
	}
}

func (r *Raft[P]) send(dstHost string, msg wire.Message) {
	data, err := r.cfg.Codec.Marshal(r.host, dstHost, msg)
	if err != nil {
		r.cfg.Logger.Error().Err(err).Msg("raft: failed to encode outbound message")
		return
	}
	r.transport(dstHost, data)
}

func (r *Raft[P]) broadcast(msg func(peer wire.NodeID) wire.Message) {
	for _, p := range r.peers {
		r.send(r.roster[p], msg(p))
	}
}
