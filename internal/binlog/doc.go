// Package binlog encodes and decodes the remote representation of field data
// and index artifacts.
//
// # Frame Format
//
// Every binlog is one frame:
//
//	offset  size  field
//	0       4     magic number (int32, little-endian)
//	4       2     version
//	6       1     kind (field data, index or delta)
//	7       1     compression
//	8       8     uncompressed payload size
//	16      8     stored payload size
//	24      4     CRC32C of the stored payload
//	28      4     reserved
//	32      ...   payload
//
// The magic number is validated before anything else is read; a mismatch is
// reported as ErrInvalidMagic and is never retried.
//
// # Compression
//
// Payloads may be stored raw or compressed with zstd, LZ4 or snappy. A
// payload that does not shrink is stored raw.
package binlog
