package wire

import "encoding/json"

// JSONCodec is the reference Codec implementation: the outer envelope
// is {code, src, dst, user}, with user a nested JSON object selected by
// code, mirroring the original Rust reference's RAW{code,src,dst,user}
// wrapper (original_source/src/raft/messages.rs).
type JSONCodec struct{}

type rawEnvelope struct {
	Code Code            `json:"code"`
	Src  string          `json:"src"`
	Dst  string          `json:"dst"`
	User json.RawMessage `json:"user"`
}

// Marshal implements Codec.
func (JSONCodec) Marshal(src, dst string, msg Message) ([]byte, error) {
	user, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawEnvelope{
		Code: msg.Code(),
		Src:  src,
		Dst:  dst,
		User: user,
	})
}

// Unmarshal implements Codec.
func (JSONCodec) Unmarshal(data []byte) (string, string, Message, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", "", nil, err
	}
	msg, err := decodeUser(raw.Code, raw.User)
	if err != nil {
		return "", "", nil, err
	}
	return raw.Src, raw.Dst, msg, nil
}

func decodeUser(code Code, user json.RawMessage) (Message, error) {
	switch code {
	case CodePing:
		var m Ping
		return m, json.Unmarshal(user, &m)
	case CodeReplicate:
		var m Replicate
		return m, json.Unmarshal(user, &m)
	case CodeAck:
		var m Ack
		return m, json.Unmarshal(user, &m)
	case CodeRebase:
		var m Rebase
		return m, json.Unmarshal(user, &m)
	case CodeUpgrade:
		var m Upgrade
		return m, json.Unmarshal(user, &m)
	case CodeProbe:
		var m Probe
		return m, json.Unmarshal(user, &m)
	case CodeAdvertise:
		var m Advertise
		return m, json.Unmarshal(user, &m)
	case CodeVote:
		var m Vote
		return m, json.Unmarshal(user, &m)
	case CodeAppend:
		var m Append
		return m, json.Unmarshal(user, &m)
	default:
		return nil, ErrUnknownCode
	}
}
