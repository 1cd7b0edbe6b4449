package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the compression algorithm applied to encoded payloads.
type Compression uint8

const (
	// CompressionNone indicates no compression.
	CompressionNone Compression = 0
	// CompressionLZ4 indicates LZ4 block compression (fast, favors latency).
	CompressionLZ4 Compression = 1
	// CompressionZSTD indicates ZSTD compression (better ratio for large fanouts).
	CompressionZSTD Compression = 2
)

// String returns the stable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// Frame is one encoded payload as handed to the transport.
//
// RawLen carries the pre-compression length; LZ4 block decompression needs it
// to size its output buffer.
type Frame struct {
	Codec       string
	Compression Compression
	RawLen      int
	Data        []byte
}

// zstd encoder/decoder pools; creating them per frame is too expensive.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Encoder turns payload values into frames: marshal through the configured
// codec, then compress when the encoded payload reaches MinCompressSize and
// compression actually helps.
type Encoder struct {
	codec           Codec
	compression     Compression
	minCompressSize int
}

// DefaultMinCompressSize is the encoded-size threshold below which
// compression is skipped; small payloads rarely shrink and the CPU cost
// dominates.
const DefaultMinCompressSize = 1 << 10

// NewEncoder creates an Encoder. A nil codec selects Default; minCompressSize
// <= 0 selects DefaultMinCompressSize.
func NewEncoder(c Codec, compression Compression, minCompressSize int) *Encoder {
	if c == nil {
		c = Default
	}
	if minCompressSize <= 0 {
		minCompressSize = DefaultMinCompressSize
	}
	return &Encoder{codec: c, compression: compression, minCompressSize: minCompressSize}
}

// Encode marshals v and wraps it in a Frame.
func (e *Encoder) Encode(v any) (Frame, error) {
	data, err := e.codec.Marshal(v)
	if err != nil {
		return Frame{}, fmt.Errorf("encode payload: %w", err)
	}
	f := Frame{Codec: e.codec.Name(), Compression: CompressionNone, RawLen: len(data), Data: data}
	if e.compression == CompressionNone || len(data) < e.minCompressSize {
		return f, nil
	}

	var compressed []byte
	switch e.compression {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return Frame{}, fmt.Errorf("lz4 compress payload: %w", err)
		}
		if n > 0 {
			compressed = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	}

	// Keep the uncompressed form when compression does not pay off.
	if len(compressed) == 0 || len(compressed) >= len(data) {
		return f, nil
	}
	f.Compression = e.compression
	f.Data = compressed
	return f, nil
}

// Decode reverses Encode. Transports embedded in the same process (and tests)
// use it; remote adapters reimplement it from the frame fields.
func Decode(f Frame, v any) error {
	c, ok := ByName(f.Codec)
	if !ok {
		return fmt.Errorf("decode payload: unknown codec %q", f.Codec)
	}
	data := f.Data
	switch f.Compression {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, f.RawLen)
		n, err := lz4.UncompressBlock(data, buf)
		if err != nil {
			return fmt.Errorf("lz4 decompress payload: %w", err)
		}
		data = buf[:n]
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(data, nil)
		putZstdDecoder(dec)
		if err != nil {
			return fmt.Errorf("zstd decompress payload: %w", err)
		}
		data = out
	default:
		return fmt.Errorf("decode payload: unknown compression %d", f.Compression)
	}
	return c.Unmarshal(data, v)
}
