package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/worldcryptonomad/rsm/raft/wire"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := wire.JSONCodec{}

	cases := []wire.Message{
		wire.Ping{ID: 1, Term: 4, Commit: 9},
		wire.Replicate{ID: 2, Term: 4, Off: 9, PrevTerm: 3, Age: 1, Commit: 9, Append: []wire.LogEntry{{Term: 4, Blob: []byte("x")}}},
		wire.Ack{ID: 1, Term: 4, Ack: 10, Age: 1},
		wire.Rebase{ID: 1, Term: 4},
		wire.Upgrade{ID: 2, Term: 5},
		wire.Probe{ID: 3, Term: 5, Head: 10, HeadTerm: 4, Prevote: true},
		wire.Advertise{ID: 1, Term: 4, Head: 10, HeadTerm: 4},
		wire.Vote{ID: 1, Term: 5},
		wire.Append{ID: 1, Term: 4, Blob: []byte("blob")},
	}

	for _, msg := range cases {
		data, err := codec.Marshal("#src", "#dst", msg)
		require.NoError(t, err)

		src, dst, decoded, err := codec.Unmarshal(data)
		require.NoError(t, err)
		require.Equal(t, "#src", src)
		require.Equal(t, "#dst", dst)
		require.Equal(t, msg, decoded)
		require.Equal(t, msg.Code(), decoded.Code())
	}
}

func TestJSONCodecUnknownCode(t *testing.T) {
	_, _, _, err := wire.JSONCodec{}.Unmarshal([]byte(`{"code":200,"src":"a","dst":"b","user":{}}`))
	require.ErrorIs(t, err, wire.ErrUnknownCode)
}

func TestSnappyCodecRoundTrip(t *testing.T) {
	codec := wire.NewSnappyCodec(wire.JSONCodec{})
	msg := wire.Replicate{
		ID:     1,
		Term:   2,
		Off:    5,
		Commit: 5,
		Append: []wire.LogEntry{{Term: 2, Blob: []byte("payload")}},
	}

	data, err := codec.Marshal("#a", "#b", msg)
	require.NoError(t, err)

	src, dst, decoded, err := codec.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, "#a", src)
	require.Equal(t, "#b", dst)
	require.Equal(t, msg, decoded)
}

func TestSnappyCodecDefaultsToJSON(t *testing.T) {
	codec := wire.NewSnappyCodec(nil)
	msg := wire.Ping{ID: 1, Term: 1, Commit: 0}
	data, err := codec.Marshal("#a", "#b", msg)
	require.NoError(t, err)
	_, _, decoded, err := codec.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, msg, decoded)
}
