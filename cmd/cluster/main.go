// Command cluster runs a handful of raft automata in one process,
// wiring them together with an in-memory transport, and drives a
// trivial counting payload. It exists only to demonstrate the external
// interfaces; it is not part of the library's test surface.
package main

import (
	"encoding/json"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/worldcryptonomad/rsm/primitives/event"
	"github.com/worldcryptonomad/rsm/primitives/lock"
	"github.com/worldcryptonomad/rsm/raft"
	"github.com/worldcryptonomad/rsm/raft/sink"
	"github.com/worldcryptonomad/rsm/raft/wire"
)

// Counter is the sample payload: it counts applied entries. Methods
// use a pointer receiver so mutation made under the write barrier
// survives past the closure that ran it.
type Counter struct {
	Count uint64 `json:"count"`
}

func (c *Counter) Apply(blob []byte) { c.Count++ }
func (c *Counter) Flush() []byte {
	b, _ := json.Marshal(c)
	return b
}

func main() {
	size := flag.Int("size", 3, "number of automata to run")
	flag.Parse()
	n := *size
	if n > 16 {
		n = 16
	}
	if n < 1 {
		n = 1
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	term := event.New()
	guard := term.Guard()

	roster := make(raft.Roster, n)
	for i := 0; i < n; i++ {
		roster[wire.NodeID(i)] = hostFor(i)
	}

	// peers is the sample driver's one use of the fairness lock outside
	// the library itself (spec §5): it protects the shared routing map
	// the in-process transport closure reads from.
	peers := lock.NewWithValue[map[string]*raft.Raft[*Counter]](lock.FIFO, make(map[string]*raft.Raft[*Counter]))

	transport := func(dstHost string, payload []byte) {
		var target *raft.Raft[*Counter]
		peers.Lock(func(m *map[string]*raft.Raft[*Counter]) { target = (*m)[dstHost] })
		peers.Unlock(func(m *map[string]*raft.Raft[*Counter]) {})
		if target != nil {
			target.Feed(payload)
		}
	}

	all := make([]*raft.Raft[*Counter], 0, n)
	for i := 0; i < n; i++ {
		id := wire.NodeID(i)
		cfg := raft.DefaultConfig()
		cfg.Logger = log.With().Int("node", i).Logger()

		r, _, notifications := raft.Spawn[*Counter](cfg, guard.Clone(), id, roster, transport, func() *Counter { return &Counter{} })
		log.Info().Int("node", i).Str("instance", r.InstanceID().String()).Msg("spawned")

		peers.Lock(func(m *map[string]*raft.Raft[*Counter]) {})
		peers.Unlock(func(m *map[string]*raft.Raft[*Counter]) { (*m)[hostFor(i)] = r })
		all = append(all, r)

		go runWriteWorkload(r, notifications, cfg.Logger)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info().Msg("draining cluster")
		for _, r := range all {
			r.Drain()
		}
	}()

	guard.Drop()
	term.Wait()
	log.Info().Msg("exiting")
}

func hostFor(id int) string {
	return "#" + strconv.Itoa(id)
}

// runWriteWorkload mirrors the reference driver's behavior: while
// leading, it submits a burst of empty entries every tick; it stops at
// the first FOLLOWING or IDLE notification and resumes only on the next
// LEADING. The automaton emits IDLE every IdleGrace without leader
// traffic, which includes the leader itself.
func runWriteWorkload(r *raft.Raft[*Counter], notifications *sink.Sink, log zerolog.Logger) {
	var leading atomic.Bool
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			n, ok := notifications.Next()
			if !ok {
				return
			}
			switch n {
			case sink.Leading:
				log.Info().Msg("starting to write")
				leading.Store(true)
			case sink.Following, sink.Idle:
				leading.Store(false)
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !leading.Load() {
				continue
			}
			for i := 0; i < rand.Intn(10); i++ {
				_ = r.Store(nil)
			}
		}
	}
}
