package raft

import "github.com/worldcryptonomad/rsm/raft/wire"

// command is the sum type processed one at a time by the automaton's
// worker loop, per spec §4.5/§5.
type command interface{ isCommand() }

// messageCmd carries an inbound decoded message.
type messageCmd struct {
	src, dst string
	msg      wire.Message
}

func (messageCmd) isCommand() {}

// storeCmd is a client submission.
type storeCmd struct {
	blob []byte
}

func (storeCmd) isCommand() {}

// timeoutCmd is a timer tick, addressed by epoch; stale epochs (that
// don't match the firing timer's current epoch) are ignored.
type timeoutCmd struct {
	epoch uint64
	kind  timerKind
}

func (timeoutCmd) isCommand() {}

// heartbeatCmd is the leader's periodic replication tick.
type heartbeatCmd struct{}

func (heartbeatCmd) isCommand() {}

// drainCmd is the terminal command posted by Drain.
type drainCmd struct{}

func (drainCmd) isCommand() {}
