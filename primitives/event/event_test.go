package event_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/worldcryptonomad/rsm/primitives/event"
)

func TestEventFiresWhenLastGuardDrops(t *testing.T) {
	e := event.New()
	require.False(t, e.Signalled())

	g1 := e.Guard()
	g2 := g1.Clone()

	g1.Drop()
	require.False(t, e.Signalled(), "event must not fire until every guard has dropped")

	g2.Drop()
	require.True(t, e.Signalled())

	// idempotent
	g2.Drop()
	require.True(t, e.Signalled())
}

func TestWaitBlocksUntilSignalled(t *testing.T) {
	e := event.New()
	g := e.Guard()

	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before the guard was dropped")
	case <-time.After(20 * time.Millisecond):
	}

	g.Drop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the last guard dropped")
	}

	// once signalled, Wait always returns immediately.
	waitReturned := make(chan struct{})
	go func() { e.Wait(); close(waitReturned) }()
	select {
	case <-waitReturned:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return immediately once already signalled")
	}
}

func TestNoGuardsNeverFires(t *testing.T) {
	e := event.New()
	require.False(t, e.Signalled())
}
