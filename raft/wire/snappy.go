package wire

import "github.com/golang/snappy"

// SnappyCodec wraps another Codec and compresses/decompresses the full
// wire payload with snappy. Grounded on
// abrahamVado-DriftPursuit/go-broker/internal/replay, which compresses
// serialized frames with the same library before they hit the wire.
// Useful once REPLICATE batches start carrying many log entries.
type SnappyCodec struct {
	Inner Codec
}

// NewSnappyCodec wraps inner, defaulting to JSONCodec when inner is nil.
func NewSnappyCodec(inner Codec) SnappyCodec {
	if inner == nil {
		inner = JSONCodec{}
	}
	return SnappyCodec{Inner: inner}
}

// Marshal implements Codec.
func (c SnappyCodec) Marshal(src, dst string, msg Message) ([]byte, error) {
	raw, err := c.Inner.Marshal(src, dst, msg)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

// Unmarshal implements Codec.
func (c SnappyCodec) Unmarshal(data []byte) (string, string, Message, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return "", "", nil, err
	}
	return c.Inner.Unmarshal(raw)
}
