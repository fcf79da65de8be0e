package raft

import "time"

// timerKind tags which logical timer a timeoutCmd came from, so the
// automaton can tell an election timeout from an idle-grace timeout
// that happen to share an epoch counter's neighborhood.
type timerKind uint8

const (
	timerElection timerKind = iota
	timerProbeWindow
	timerIdle
)

// epochTimer arms a one-shot or repeating timer whose firing is
// delivered as a timeoutCmd tagged with a monotonically increasing
// epoch id. Re-arming bumps the epoch and cancels the previous timer
// goroutine; handlers discard a timeoutCmd whose epoch doesn't match
// the current one. This is spec §4.9's "stale timer suppression",
// applied independently per timerKind so resetting the election timer
// doesn't disturb the idle timer's epoch and vice versa.
type epochTimer struct {
	kind   timerKind
	epoch  uint64
	cancel chan struct{}
}

func newEpochTimer(kind timerKind) *epochTimer {
	return &epochTimer{kind: kind}
}

// arm cancels any previously running timer of this kind and starts a
// new one. out receives a timeoutCmd when it (first) fires.
func (t *epochTimer) arm(d time.Duration, repeat bool, out chan<- command) uint64 {
	t.disarmLocked()
	t.epoch++
	epoch := t.epoch
	cancel := make(chan struct{})
	t.cancel = cancel
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-timer.C:
				select {
				case out <- timeoutCmd{epoch: epoch, kind: t.kind}:
				case <-cancel:
					return
				}
				if !repeat {
					return
				}
				timer.Reset(d)
			}
		}
	}()
	return epoch
}

// disarm stops the current timer of this kind, if any, without arming
// a replacement.
func (t *epochTimer) disarm() {
	t.disarmLocked()
}

func (t *epochTimer) disarmLocked() {
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
}

// valid reports whether epoch is the current epoch for this timer.
func (t *epochTimer) valid(epoch uint64) bool {
	return epoch == t.epoch
}
