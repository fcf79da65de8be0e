package raft

import "github.com/worldcryptonomad/rsm/raft/wire"

// entryLog is the 1-indexed, in-memory append-only log. Index 0 is a
// sentinel at term 0, per spec §3: "1-indexed by convention with a
// sentinel zero entry at term 0."
type entryLog struct {
	entries []wire.LogEntry // entries[0] is the sentinel
}

func newLog() *entryLog {
	return &entryLog{entries: []wire.LogEntry{{Term: 0}}}
}

func (l *entryLog) lastIndex() uint64 {
	return uint64(len(l.entries) - 1)
}

func (l *entryLog) lastTerm() uint64 {
	return l.entries[len(l.entries)-1].Term
}

// termAt returns the term of the entry at idx (0 is always term 0).
func (l *entryLog) termAt(idx uint64) (uint64, bool) {
	if idx >= uint64(len(l.entries)) {
		return 0, false
	}
	return l.entries[idx].Term, true
}

func (l *entryLog) get(idx uint64) (wire.LogEntry, bool) {
	if idx == 0 || idx >= uint64(len(l.entries)) {
		return wire.LogEntry{}, false
	}
	return l.entries[idx], true
}

// append adds entries after the current tail.
func (l *entryLog) append(entries ...wire.LogEntry) {
	l.entries = append(l.entries, entries...)
}

// truncateFrom drops every entry at index >= idx. A leader never calls
// this on its own log (§8 invariant 2); only followers reconciling with
// a leader's REPLICATE do.
func (l *entryLog) truncateFrom(idx uint64) {
	if idx >= uint64(len(l.entries)) {
		return
	}
	if idx == 0 {
		idx = 1
	}
	l.entries = l.entries[:idx]
}

// entriesFrom returns up to max entries starting at idx (inclusive),
// and the term of the entry immediately preceding idx.
func (l *entryLog) entriesFrom(idx uint64, max int) ([]wire.LogEntry, uint64) {
	prevTerm, _ := l.termAt(idx - 1)
	if idx >= uint64(len(l.entries)) {
		return nil, prevTerm
	}
	end := idx + uint64(max)
	if end > uint64(len(l.entries)) {
		end = uint64(len(l.entries))
	}
	out := make([]wire.LogEntry, end-idx)
	copy(out, l.entries[idx:end])
	return out, prevTerm
}
