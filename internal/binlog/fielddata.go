package binlog

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/segcore/internal/column"
	"github.com/hupe1980/segcore/schema"
)

const (
	descriptorSize = 24
	flagNullable   = 1 << 0
)

// EncodeFieldData serializes d into a field data frame.
//
// Payload layout:
//
//	data type (int32) | dim (int32) | rows (int64) | flags (uint8) | 7 reserved
//	[validity bitmap] [offsets (rows+1)*uint64] values
func EncodeFieldData(d *column.FieldData, c Compression) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	nullable := d.Valid != nil
	payload := make([]byte, descriptorSize, descriptorSize+int(d.MemSize())+8*(d.Rows+1))
	binary.LittleEndian.PutUint32(payload[0:], uint32(d.Type))
	binary.LittleEndian.PutUint32(payload[4:], uint32(d.Dim))
	binary.LittleEndian.PutUint64(payload[8:], uint64(d.Rows))
	if nullable {
		payload[16] = flagNullable
	}

	if nullable {
		bitmap := make([]byte, (d.Rows+7)/8)
		for i, ok := range d.Valid {
			if ok {
				bitmap[i/8] |= 1 << (i % 8)
			}
		}
		payload = append(payload, bitmap...)
	}

	if d.Type.IsVariableLength() {
		off := uint64(0)
		for _, v := range d.Var {
			payload = binary.LittleEndian.AppendUint64(payload, off)
			off += uint64(len(v))
		}
		payload = binary.LittleEndian.AppendUint64(payload, off)
		for _, v := range d.Var {
			payload = append(payload, v...)
		}
	} else {
		payload = append(payload, d.Fixed...)
	}

	return Seal(KindFieldData, c, payload)
}

// DecodeFieldData parses a field data frame. Variable-length rows alias the
// decompressed payload.
func DecodeFieldData(frame []byte) (*column.FieldData, error) {
	payload, err := Open(KindFieldData, frame)
	if err != nil {
		return nil, err
	}
	if len(payload) < descriptorSize {
		return nil, fmt.Errorf("%w: descriptor", ErrTruncated)
	}

	d := &column.FieldData{
		Type: schema.DataType(int32(binary.LittleEndian.Uint32(payload[0:]))),
		Dim:  int(int32(binary.LittleEndian.Uint32(payload[4:]))),
		Rows: int(binary.LittleEndian.Uint64(payload[8:])),
	}
	if !d.Type.Valid() || d.Rows < 0 {
		return nil, fmt.Errorf("binlog: bad descriptor type=%s rows=%d", d.Type, d.Rows)
	}
	body := payload[descriptorSize:]

	if payload[16]&flagNullable != 0 {
		n := (d.Rows + 7) / 8
		if len(body) < n {
			return nil, fmt.Errorf("%w: validity bitmap", ErrTruncated)
		}
		d.Valid = make([]bool, d.Rows)
		for i := range d.Valid {
			d.Valid[i] = body[i/8]&(1<<(i%8)) != 0
		}
		body = body[n:]
	}

	if d.Type.IsVariableLength() {
		n := 8 * (d.Rows + 1)
		if len(body) < n {
			return nil, fmt.Errorf("%w: offsets", ErrTruncated)
		}
		offs, data := body[:n], body[n:]
		d.Var = make([][]byte, d.Rows)
		for i := range d.Var {
			lo := binary.LittleEndian.Uint64(offs[8*i:])
			hi := binary.LittleEndian.Uint64(offs[8*(i+1):])
			if lo > hi || hi > uint64(len(data)) {
				return nil, fmt.Errorf("%w: row %d spans [%d, %d) of %d", ErrTruncated, i, lo, hi, len(data))
			}
			d.Var[i] = data[lo:hi:hi]
		}
	} else {
		d.Fixed = body
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
