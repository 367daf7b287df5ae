package column

import (
	"encoding/binary"

	"github.com/hupe1980/segcore/internal/mmap"
)

// memory is the backing storage of one chunk.
type memory interface {
	Bytes() []byte
	Mapped() bool
}

// heapMemory is owned by the chunk and reclaimed by the garbage collector.
type heapMemory []byte

func (m heapMemory) Bytes() []byte { return m }
func (heapMemory) Mapped() bool    { return false }

// regionMemory is a non-owning view of the column's file mapping.
type regionMemory struct {
	r *mmap.Region
}

func (m regionMemory) Bytes() []byte { return m.r.Bytes() }
func (regionMemory) Mapped() bool    { return true }

// Chunk is a contiguous run of rows of one field.
type Chunk struct {
	rows   int
	stride int
	mem    memory

	valid   []byte
	offsets []byte
	data    []byte
}

func validitySize(rows int) int { return (rows + 7) / 8 }

func offsetsSize(rows int) int { return (rows + 1) * 8 }

// encodeChunk serializes rows [start, end) of d in chunk layout.
func encodeChunk(d *FieldData, start, end int, nullable bool) []byte {
	rows := end - start
	stride := d.RowSize()
	variable := d.Type.IsVariableLength()

	size := 0
	if nullable {
		size += validitySize(rows)
	}
	if variable {
		size += offsetsSize(rows)
		for i := start; i < end; i++ {
			size += len(d.Var[i])
		}
	} else {
		size += rows * stride
	}

	buf := make([]byte, size)
	pos := 0
	if nullable {
		for i := 0; i < rows; i++ {
			if d.IsValid(start + i) {
				buf[i/8] |= 1 << (i % 8)
			}
		}
		pos += validitySize(rows)
	}

	if variable {
		offs := buf[pos : pos+offsetsSize(rows)]
		pos += len(offs)
		off := uint64(0)
		for i := 0; i < rows; i++ {
			binary.LittleEndian.PutUint64(offs[i*8:], off)
			off += uint64(copy(buf[pos+int(off):], d.Var[start+i]))
		}
		binary.LittleEndian.PutUint64(offs[rows*8:], off)
		return buf
	}

	copy(buf[pos:], d.Fixed[start*stride:end*stride])
	return buf
}

// newChunk slices a chunk's views out of mem.
func newChunk(mem memory, rows, stride int, nullable, variable bool) *Chunk {
	c := &Chunk{rows: rows, stride: stride, mem: mem}
	buf := mem.Bytes()
	pos := 0
	if nullable {
		c.valid = buf[:validitySize(rows)]
		pos = len(c.valid)
	}
	if variable {
		c.offsets = buf[pos : pos+offsetsSize(rows)]
		pos += len(c.offsets)
	}
	c.data = buf[pos:]
	return c
}

// Rows returns the number of rows in the chunk.
func (c *Chunk) Rows() int { return c.rows }

// Mapped reports whether the chunk is backed by a file mapping.
func (c *Chunk) Mapped() bool { return c.mem.Mapped() }

// Size returns the number of bytes backing the chunk.
func (c *Chunk) Size() int { return len(c.mem.Bytes()) }

// IsValid reports whether local row i holds a value.
func (c *Chunk) IsValid(i int) bool {
	return c.valid == nil || c.valid[i/8]&(1<<(i%8)) != 0
}

// Row returns a view of the encoded bytes of local row i.
func (c *Chunk) Row(i int) []byte {
	if c.offsets != nil {
		lo := binary.LittleEndian.Uint64(c.offsets[i*8:])
		hi := binary.LittleEndian.Uint64(c.offsets[(i+1)*8:])
		return c.data[lo:hi:hi]
	}
	return c.data[i*c.stride : (i+1)*c.stride : (i+1)*c.stride]
}

// Fixed returns a view of the fixed-width values of rows [start, start+n).
func (c *Chunk) Fixed(start, n int) []byte {
	return c.data[start*c.stride : (start+n)*c.stride]
}
