package sink_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/worldcryptonomad/rsm/raft/sink"
)

func TestDeliveryOrderAndTermination(t *testing.T) {
	producer, consumer := sink.New(4)

	producer.Emit(sink.Started)
	producer.Emit(sink.Leading)
	producer.Emit(sink.Idle)
	producer.Close()

	n, ok := consumer.Next()
	require.True(t, ok)
	require.Equal(t, sink.Started, n)

	n, ok = consumer.Next()
	require.True(t, ok)
	require.Equal(t, sink.Leading, n)

	n, ok = consumer.Next()
	require.True(t, ok)
	require.Equal(t, sink.Idle, n)

	_, ok = consumer.Next()
	require.False(t, ok, "Next must report end-of-stream after the producer closes")

	// end-of-stream is sticky
	_, ok = consumer.Next()
	require.False(t, ok)
}

func TestNotificationString(t *testing.T) {
	require.Equal(t, "LEADING", sink.Leading.String())
	require.Equal(t, "FOLLOWING", sink.Following.String())
	require.Equal(t, "IDLE", sink.Idle.String())
	require.Equal(t, "STARTED", sink.Started.String())
	require.Equal(t, "STOPPED", sink.Stopped.String())
}
