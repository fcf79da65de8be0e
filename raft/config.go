package raft

import (
	"reflect"
	"time"

	"github.com/rs/zerolog"
	"github.com/worldcryptonomad/rsm/primitives/lock"
	"github.com/worldcryptonomad/rsm/raft/wire"
)

// Config enumerates the tunables spec.md §6 names explicitly.
type Config struct {
	// ElectionTimeoutBase is T: the election timeout is drawn uniformly
	// from [T, 2T] on every entry into FOLLOWER/CANDIDATE.
	ElectionTimeoutBase time.Duration
	// HeartbeatInterval is the leader's PING/REPLICATE cadence. Must be
	// less than ElectionTimeoutBase/2.
	HeartbeatInterval time.Duration
	// ReplicationBatchMax caps entries per REPLICATE.
	ReplicationBatchMax int
	// LockStrategy selects the wait-queue discipline of the payload
	// barrier's fairness lock.
	LockStrategy lock.Strategy
	// IdleGrace is the quiet period, with no leader traffic observed,
	// after which an IDLE notification is emitted.
	IdleGrace time.Duration
	// Codec serializes outbound messages and decodes Feed's input.
	// Defaults to wire.JSONCodec{}.
	Codec wire.Codec
	// Logger receives structured diagnostics. Defaults to zerolog.Nop().
	Logger zerolog.Logger
	// CommandQueueDepth bounds the automaton's inbound command queue.
	CommandQueueDepth int
	// NotificationBuffer bounds the notification sink.
	NotificationBuffer int
}

// DefaultConfig returns the configuration spec.md §9 calls "order
// 150ms typical" for the election timeout, with a heartbeat comfortably
// under half of it.
func DefaultConfig() Config {
	return Config{
		ElectionTimeoutBase: 150 * time.Millisecond,
		HeartbeatInterval:   40 * time.Millisecond,
		ReplicationBatchMax: 64,
		LockStrategy:        lock.FIFO,
		IdleGrace:           2 * time.Second,
		Codec:               wire.JSONCodec{},
		Logger:              zerolog.Nop(),
		CommandQueueDepth:   256,
		NotificationBuffer:  32,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ElectionTimeoutBase <= 0 {
		c.ElectionTimeoutBase = d.ElectionTimeoutBase
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.ReplicationBatchMax <= 0 {
		c.ReplicationBatchMax = d.ReplicationBatchMax
	}
	if c.IdleGrace <= 0 {
		c.IdleGrace = d.IdleGrace
	}
	if c.Codec == nil {
		c.Codec = d.Codec
	}
	if reflect.DeepEqual(c.Logger, zerolog.Logger{}) {
		c.Logger = d.Logger
	}
	if c.CommandQueueDepth <= 0 {
		c.CommandQueueDepth = d.CommandQueueDepth
	}
	if c.NotificationBuffer <= 0 {
		c.NotificationBuffer = d.NotificationBuffer
	}
	return c
}
