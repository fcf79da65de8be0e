// Package wire defines the envelope and typed message set the raft
// automaton exchanges over a user-supplied transport, plus reference
// codecs. Per spec, the wire codec is an external collaborator's
// concern: the automaton only requires something satisfying Codec.
// This package exists so the module is usable without an embedder
// having to write one first.
package wire

import "fmt"

// Code identifies which of the nine message kinds an envelope's User
// payload decodes to.
type Code uint8

const (
	CodePing Code = iota
	CodeReplicate
	CodeAck
	CodeRebase
	CodeUpgrade
	CodeProbe
	CodeAdvertise
	CodeVote
	CodeAppend
)

func (c Code) String() string {
	switch c {
	case CodePing:
		return "PING"
	case CodeReplicate:
		return "REPLICATE"
	case CodeAck:
		return "ACK"
	case CodeRebase:
		return "REBASE"
	case CodeUpgrade:
		return "UPGRADE"
	case CodeProbe:
		return "PROBE"
	case CodeAdvertise:
		return "ADVERTISE"
	case CodeVote:
		return "VOTE"
	case CodeAppend:
		return "APPEND"
	default:
		return "UNKNOWN"
	}
}

// NodeID is the 8-bit cluster member identifier.
type NodeID uint8

// LogEntry is one entry of the replicated log.
type LogEntry struct {
	Term uint64 `json:"term"`
	Blob []byte `json:"blob"`
}

// Message is implemented by every one of the nine inner message kinds.
type Message interface {
	Code() Code
	MsgTerm() uint64
}

// Ping is a leader heartbeat / liveness signal.
type Ping struct {
	ID     NodeID `json:"id"`
	Term   uint64 `json:"term"`
	Commit uint64 `json:"commit"`
}

func (Ping) Code() Code         { return CodePing }
func (m Ping) MsgTerm() uint64 { return m.Term }

// Replicate asks a follower to append log entries starting at Off+1,
// assuming the follower's log agrees with the leader's at index Off
// with term PrevTerm.
type Replicate struct {
	ID       NodeID     `json:"id"`
	Term     uint64     `json:"term"`
	Off      uint64     `json:"off"`
	PrevTerm uint64     `json:"prev_term"`
	Age      uint64     `json:"age"`
	Commit   uint64     `json:"commit"`
	Append   []LogEntry `json:"append"`
}

func (Replicate) Code() Code         { return CodeReplicate }
func (m Replicate) MsgTerm() uint64 { return m.Term }

// Ack is a follower's reply to Replicate/Ping, reporting the highest
// index it has accepted. Age echoes the leader's per-peer epoch so the
// leader can discard stale acks after a retransmit reset.
type Ack struct {
	ID   NodeID `json:"id"`
	Term uint64 `json:"term"`
	Ack  uint64 `json:"ack"`
	Age  uint64 `json:"age"`
}

func (Ack) Code() Code         { return CodeAck }
func (m Ack) MsgTerm() uint64 { return m.Term }

// Rebase is a follower's rejection of Replicate, asking the leader to
// resend from an earlier index.
type Rebase struct {
	ID   NodeID `json:"id"`
	Term uint64 `json:"term"`
}

func (Rebase) Code() Code         { return CodeRebase }
func (m Rebase) MsgTerm() uint64 { return m.Term }

// Upgrade announces a candidate's election win / promotion to leader.
type Upgrade struct {
	ID   NodeID `json:"id"`
	Term uint64 `json:"term"`
}

func (Upgrade) Code() Code         { return CodeUpgrade }
func (m Upgrade) MsgTerm() uint64 { return m.Term }

// Probe serves two roles distinguished by Prevote. Prevote=true is the
// pre-election liveness probe of the PROBE role: Term is the sender's
// prospective term (self.term+1, not yet adopted), and the message is
// exempt from the term-adoption rule. Prevote=false is a candidate's
// real vote solicitation, sent with its already-incremented Term and
// subject to the normal term-adoption and vote-granting rules.
// HeadTerm/Head together are the sender's (last_term, last_index) log
// head, needed for the up-to-date comparison.
type Probe struct {
	ID       NodeID `json:"id"`
	Term     uint64 `json:"term"`
	Head     uint64 `json:"head"`
	HeadTerm uint64 `json:"head_term"`
	Age      uint64 `json:"age"`
	Prevote  bool   `json:"prevote"`
}

func (Probe) Code() Code         { return CodeProbe }
func (m Probe) MsgTerm() uint64 { return m.Term }

// Advertise is a reply to a prevote Probe, carrying the replier's own
// log head so the prober can evaluate the §4.7 up-to-date rule.
type Advertise struct {
	ID       NodeID `json:"id"`
	Term     uint64 `json:"term"`
	Head     uint64 `json:"head"`
	HeadTerm uint64 `json:"head_term"`
	Age      uint64 `json:"age"`
}

func (Advertise) Code() Code         { return CodeAdvertise }
func (m Advertise) MsgTerm() uint64 { return m.Term }

// Vote is a reply to a real (non-prevote) Probe, granting the vote.
type Vote struct {
	ID   NodeID `json:"id"`
	Term uint64 `json:"term"`
}

func (Vote) Code() Code         { return CodeVote }
func (m Vote) MsgTerm() uint64 { return m.Term }

// Append is a client submission forwarded to the known leader by a
// node that received Store while not itself leading.
type Append struct {
	ID   NodeID `json:"id"`
	Term uint64 `json:"term"`
	Blob []byte `json:"blob"`
}

func (Append) Code() Code         { return CodeAppend }
func (m Append) MsgTerm() uint64 { return m.Term }

// Envelope is the outer wrapper every message travels in.
type Envelope struct {
	Code Code
	Src  string
	Dst  string
	User []byte
}

// ErrUnknownCode is returned by a Codec when an envelope carries a code
// outside the nine known message kinds.
var ErrUnknownCode = fmt.Errorf("wire: unknown message code")

// Codec serializes/deserializes the typed message set inside the
// outer envelope. Implementations must be bijective: Unmarshal(Marshal(m))
// reproduces m.
type Codec interface {
	// Marshal encodes msg as the User payload of an envelope from src
	// to dst and returns the full wire bytes.
	Marshal(src, dst string, msg Message) ([]byte, error)
	// Unmarshal decodes wire bytes into the envelope's src/dst and the
	// typed inner message.
	Unmarshal(data []byte) (src, dst string, msg Message, err error)
}
