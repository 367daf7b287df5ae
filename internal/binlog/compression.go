package binlog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is the payload compression algorithm.
type Compression uint8

const (
	CompressionNone   Compression = 0
	CompressionZstd   Compression = 1
	CompressionLZ4    Compression = 2
	CompressionSnappy Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionSnappy:
		return "snappy"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "snappy":
		return CompressionSnappy, nil
	default:
		return 0, fmt.Errorf("binlog: unknown compression %q", s)
	}
}

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

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compress returns the stored bytes and the algorithm actually used.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, CompressionNone, nil
	}

	var out []byte
	switch c {
	case CompressionZstd:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("binlog: lz4: %w", err)
		}
		out = buf[:n]
	case CompressionSnappy:
		out = snappy.Encode(nil, data)
	default:
		return nil, 0, fmt.Errorf("binlog: unknown compression %s", c)
	}

	// Incompressible payloads are stored raw.
	if len(out) == 0 || len(out) >= len(data) {
		return data, CompressionNone, nil
	}
	return out, c, nil
}

func decompress(data []byte, c Compression, rawSize uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		if uint64(len(data)) != rawSize {
			return nil, fmt.Errorf("%w: raw payload %d bytes, header says %d", ErrTruncated, len(data), rawSize)
		}
		return data, nil
	case CompressionZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		// Preallocate from the stored size; DecodeAll grows the buffer as needed.
		out, err := dec.DecodeAll(data, make([]byte, 0, min(rawSize, 64*uint64(len(data)))))
		if err != nil {
			return nil, fmt.Errorf("binlog: zstd: %w", err)
		}
		return checkSize(out, rawSize)
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("binlog: lz4: %w", err)
		}
		return checkSize(out[:n], rawSize)
	case CompressionSnappy:
		n, err := snappy.DecodedLen(data)
		if err != nil {
			return nil, fmt.Errorf("binlog: snappy: %w", err)
		}
		if uint64(n) != rawSize {
			return nil, fmt.Errorf("%w: snappy payload decodes to %d bytes, header says %d", ErrRawSize, n, rawSize)
		}
		out, err := snappy.Decode(make([]byte, n), data)
		if err != nil {
			return nil, fmt.Errorf("binlog: snappy: %w", err)
		}
		return checkSize(out, rawSize)
	default:
		return nil, fmt.Errorf("binlog: unknown compression %s", c)
	}
}

var errSizeMismatch = errors.New("binlog: decompressed size mismatch")

func checkSize(out []byte, rawSize uint64) ([]byte, error) {
	if uint64(len(out)) != rawSize {
		return nil, fmt.Errorf("%w: got %d, want %d", errSizeMismatch, len(out), rawSize)
	}
	return out, nil
}
