package binlog

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/segcore/model"
)

// EncodeDelta serializes deletion records into a delta frame.
//
// Payload layout:
//
//	rows (uint64) | pk kind (uint8)
//	per row: ts (uint64) | pk (int64, or uint32 length + bytes)
func EncodeDelta(pks []model.PK, tss []model.Timestamp, c Compression) ([]byte, error) {
	if len(pks) != len(tss) {
		return nil, fmt.Errorf("binlog: %d keys for %d timestamps", len(pks), len(tss))
	}
	kind := model.PKInt64
	if len(pks) > 0 {
		kind = pks[0].Kind()
	}

	payload := binary.LittleEndian.AppendUint64(nil, uint64(len(pks)))
	payload = append(payload, byte(kind))
	for i, pk := range pks {
		if pk.Kind() != kind {
			return nil, fmt.Errorf("binlog: mixed primary key kinds at row %d", i)
		}
		payload = binary.LittleEndian.AppendUint64(payload, uint64(tss[i]))
		if kind == model.PKVarChar {
			payload = binary.LittleEndian.AppendUint32(payload, uint32(len(pk.VarChar())))
			payload = append(payload, pk.VarChar()...)
		} else {
			payload = binary.LittleEndian.AppendUint64(payload, uint64(pk.Int64()))
		}
	}
	return Seal(KindDelta, c, payload)
}

// DecodeDelta parses a delta frame.
func DecodeDelta(frame []byte) ([]model.PK, []model.Timestamp, error) {
	payload, err := Open(KindDelta, frame)
	if err != nil {
		return nil, nil, err
	}
	if len(payload) < 9 {
		return nil, nil, fmt.Errorf("%w: delta descriptor", ErrTruncated)
	}
	rows := binary.LittleEndian.Uint64(payload)
	kind := model.PKKind(payload[8])
	buf := payload[9:]

	// Every row takes at least 12 bytes.
	if rows > uint64(len(buf))/12 {
		return nil, nil, fmt.Errorf("%w: %d delta rows in %d bytes", ErrTruncated, rows, len(buf))
	}
	pks := make([]model.PK, 0, rows)
	tss := make([]model.Timestamp, 0, rows)
	for i := uint64(0); i < rows; i++ {
		if len(buf) < 8 {
			return nil, nil, fmt.Errorf("%w: delta row %d", ErrTruncated, i)
		}
		tss = append(tss, model.Timestamp(binary.LittleEndian.Uint64(buf)))
		buf = buf[8:]
		switch kind {
		case model.PKVarChar:
			if len(buf) < 4 {
				return nil, nil, fmt.Errorf("%w: delta row %d", ErrTruncated, i)
			}
			n := int(binary.LittleEndian.Uint32(buf))
			if len(buf) < 4+n {
				return nil, nil, fmt.Errorf("%w: delta row %d", ErrTruncated, i)
			}
			pks = append(pks, model.VarCharPK(string(buf[4:4+n])))
			buf = buf[4+n:]
		default:
			if len(buf) < 8 {
				return nil, nil, fmt.Errorf("%w: delta row %d", ErrTruncated, i)
			}
			pks = append(pks, model.Int64PK(int64(binary.LittleEndian.Uint64(buf))))
			buf = buf[8:]
		}
	}
	return pks, tss, nil
}
