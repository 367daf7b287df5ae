package binlog

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/segcore/internal/hash"
)

const (
	// MagicNumber opens every binlog frame.
	MagicNumber int32 = 0xfffabc
	// Version is the frame version written by this package.
	Version = 1
	// HeaderSize is the size of the frame header in bytes.
	HeaderSize = 32
	// MaxRawSize bounds the decompressed payload of a single frame.
	MaxRawSize = 1 << 34
)

var (
	// ErrInvalidMagic is returned when a frame does not start with MagicNumber.
	ErrInvalidMagic = errors.New("binlog: invalid magic number")
	// ErrInvalidVersion is returned for unknown frame versions.
	ErrInvalidVersion = errors.New("binlog: unsupported version")
	// ErrTruncated is returned when a frame is shorter than its header claims.
	ErrTruncated = errors.New("binlog: truncated frame")
	// ErrChecksum is returned when the payload checksum does not match.
	ErrChecksum = errors.New("binlog: checksum mismatch")
	// ErrKind is returned when a frame holds a different kind than expected.
	ErrKind = errors.New("binlog: unexpected frame kind")
	// ErrRawSize is returned when the header's raw size cannot match its payload.
	ErrRawSize = errors.New("binlog: implausible raw size")
)

// Kind identifies what a frame carries.
type Kind uint8

const (
	KindFieldData Kind = 1
	KindIndex     Kind = 2
	KindDelta     Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindFieldData:
		return "FieldData"
	case KindIndex:
		return "Index"
	case KindDelta:
		return "Delta"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Header describes a frame.
type Header struct {
	Magic       int32
	Version     uint16
	Kind        Kind
	Compression Compression
	RawSize     uint64
	StoredSize  uint64
	Checksum    uint32
}

// Encode serializes the header.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(h.Magic))
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	buf[6] = byte(h.Kind)
	buf[7] = byte(h.Compression)
	binary.LittleEndian.PutUint64(buf[8:], h.RawSize)
	binary.LittleEndian.PutUint64(buf[16:], h.StoredSize)
	binary.LittleEndian.PutUint32(buf[24:], h.Checksum)
	return buf
}

// ReadMagic returns the leading magic number of buf.
func ReadMagic(buf []byte) (int32, error) {
	if len(buf) < 4 {
		return 0, fmt.Errorf("%w: %d bytes", ErrTruncated, len(buf))
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}

// DecodeHeader validates the magic number and parses the header.
func DecodeHeader(buf []byte) (*Header, error) {
	magic, err := ReadMagic(buf)
	if err != nil {
		return nil, err
	}
	if magic != MagicNumber {
		return nil, fmt.Errorf("%w: got %#x", ErrInvalidMagic, magic)
	}
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderSize, len(buf))
	}
	h := &Header{
		Magic:       magic,
		Version:     binary.LittleEndian.Uint16(buf[4:]),
		Kind:        Kind(buf[6]),
		Compression: Compression(buf[7]),
		RawSize:     binary.LittleEndian.Uint64(buf[8:]),
		StoredSize:  binary.LittleEndian.Uint64(buf[16:]),
		Checksum:    binary.LittleEndian.Uint32(buf[24:]),
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	return h, nil
}

// Seal compresses payload and wraps it in a frame.
func Seal(kind Kind, c Compression, payload []byte) ([]byte, error) {
	stored, used, err := compress(payload, c)
	if err != nil {
		return nil, err
	}
	h := Header{
		Magic:       MagicNumber,
		Version:     Version,
		Kind:        kind,
		Compression: used,
		RawSize:     uint64(len(payload)),
		StoredSize:  uint64(len(stored)),
		Checksum:    hash.CRC32C(stored),
	}
	return append(h.Encode(), stored...), nil
}

// Open validates a frame of the given kind and returns its decompressed payload.
func Open(kind Kind, frame []byte) ([]byte, error) {
	h, err := DecodeHeader(frame)
	if err != nil {
		return nil, err
	}
	if h.Kind != kind {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrKind, kind, h.Kind)
	}
	body := frame[HeaderSize:]
	if uint64(len(body)) < h.StoredSize {
		return nil, fmt.Errorf("%w: payload needs %d bytes, have %d", ErrTruncated, h.StoredSize, len(body))
	}
	stored := body[:h.StoredSize]
	if !hash.Verify(stored, h.Checksum) {
		return nil, ErrChecksum
	}
	// The checksum covers only the payload, so RawSize is untrusted here.
	if err := checkRawSize(h); err != nil {
		return nil, err
	}
	return decompress(stored, h.Compression, h.RawSize)
}

// checkRawSize rejects raw sizes no payload of StoredSize bytes can expand to.
func checkRawSize(h *Header) error {
	if h.RawSize > MaxRawSize {
		return fmt.Errorf("%w: %d exceeds %d", ErrRawSize, h.RawSize, uint64(MaxRawSize))
	}
	if h.Compression == CompressionLZ4 && h.RawSize > 255*h.StoredSize+16 {
		return fmt.Errorf("%w: lz4 cannot expand %d bytes to %d", ErrRawSize, h.StoredSize, h.RawSize)
	}
	return nil
}
