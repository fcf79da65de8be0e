// Package sink implements the bounded single-producer/single-consumer
// notification stream an automaton uses to report role transitions and
// lifecycle events to its owner.
package sink

// Notification is one event on the stream.
type Notification uint8

const (
	// Leading is emitted on entering LEADER.
	Leading Notification = iota
	// Following is emitted on entering FOLLOWER from a non-follower role.
	Following
	// Idle is emitted after losing contact with the cluster for longer
	// than the configured grace period.
	Idle
	// Started is emitted once, right after spawn.
	Started
	// Stopped is emitted once, as the final notification before the
	// sink closes.
	Stopped
)

func (n Notification) String() string {
	switch n {
	case Leading:
		return "LEADING"
	case Following:
		return "FOLLOWING"
	case Idle:
		return "IDLE"
	case Started:
		return "STARTED"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Sink is the consumer side of the notification stream.
type Sink struct {
	ch <-chan Notification
}

// Next blocks until a notification arrives or the producer side has
// shut down and the queue has drained, in which case it returns
// (0, false).
func (s *Sink) Next() (Notification, bool) {
	n, ok := <-s.ch
	return n, ok
}

// Producer is the single-writer side, held by the automaton's worker.
type Producer struct {
	ch chan Notification
}

// New returns a connected Producer/Sink pair with the given buffer
// depth. A depth of 0 still allows rendezvous delivery.
func New(buffer int) (*Producer, *Sink) {
	ch := make(chan Notification, buffer)
	return &Producer{ch: ch}, &Sink{ch: ch}
}

// Emit delivers n in production order. It blocks if the buffer is
// full; callers on the automaton's worker thread should size the
// buffer generously enough that this is not a practical concern, since
// transitions into a role must never be silently dropped.
func (p *Producer) Emit(n Notification) {
	p.ch <- n
}

// Close signals end-of-stream: after the buffered notifications already
// in flight are drained, Sink.Next returns (0, false) forever.
func (p *Producer) Close() {
	close(p.ch)
}
