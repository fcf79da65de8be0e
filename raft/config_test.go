package raft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{ElectionTimeoutBase: 10 * time.Millisecond}
	filled := cfg.withDefaults()

	require.Equal(t, 10*time.Millisecond, filled.ElectionTimeoutBase)
	require.Equal(t, DefaultConfig().HeartbeatInterval, filled.HeartbeatInterval)
	require.Equal(t, DefaultConfig().ReplicationBatchMax, filled.ReplicationBatchMax)
	require.NotNil(t, filled.Codec)
}

func TestWithDefaultsIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, cfg, cfg.withDefaults())
}
