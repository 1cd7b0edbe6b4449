package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func TestEncoderNoCompression(t *testing.T) {
	enc := NewEncoder(nil, CompressionNone, 0)

	f, err := enc.Encode(payload{Title: "hello", Body: "world"})
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, f.Compression)
	assert.Equal(t, Default.Name(), f.Codec)
	assert.Equal(t, len(f.Data), f.RawLen)

	var got payload
	require.NoError(t, Decode(f, &got))
	assert.Equal(t, "hello", got.Title)
}

func TestEncoderCompression(t *testing.T) {
	// Repetitive payload well above the threshold, so compression pays off.
	big := payload{Title: "t", Body: strings.Repeat("all work and no play ", 500)}

	for _, compression := range []Compression{CompressionLZ4, CompressionZSTD} {
		t.Run(compression.String(), func(t *testing.T) {
			enc := NewEncoder(nil, compression, 0)

			f, err := enc.Encode(big)
			require.NoError(t, err)
			assert.Equal(t, compression, f.Compression)
			assert.Less(t, len(f.Data), f.RawLen)

			var got payload
			require.NoError(t, Decode(f, &got))
			assert.Equal(t, big, got)
		})
	}
}

func TestEncoderSmallPayloadSkipsCompression(t *testing.T) {
	enc := NewEncoder(nil, CompressionZSTD, 0)

	f, err := enc.Encode(payload{Title: "tiny"})
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, f.Compression)

	var got payload
	require.NoError(t, Decode(f, &got))
	assert.Equal(t, "tiny", got.Title)
}

func TestEncoderIncompressiblePayloadStaysRaw(t *testing.T) {
	// High-entropy content above the threshold; compression cannot shrink it,
	// so the encoder keeps the raw form.
	var sb strings.Builder
	x := uint64(88172645463325252)
	for sb.Len() < 4096 {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		sb.WriteByte('a' + byte(x%26))
		sb.WriteByte('0' + byte((x>>8)%10))
	}
	enc := NewEncoder(nil, CompressionLZ4, 0)

	f, err := enc.Encode(payload{Body: sb.String()})
	require.NoError(t, err)

	var got payload
	require.NoError(t, Decode(f, &got))
	assert.Equal(t, sb.String(), got.Body)
}

func TestDecodeErrors(t *testing.T) {
	t.Run("Unknown codec", func(t *testing.T) {
		var got payload
		err := Decode(Frame{Codec: "xml", Data: []byte("{}")}, &got)
		require.Error(t, err)
	})

	t.Run("Unknown compression", func(t *testing.T) {
		var got payload
		err := Decode(Frame{Codec: "json", Compression: Compression(99), Data: []byte("{}")}, &got)
		require.Error(t, err)
	})
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}
