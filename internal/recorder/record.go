package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"main/internal/schema"
)

const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 56
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'W', 'A', 'L', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("wal invalid magic")
	ErrUnsupportedRecordVer    = errors.New("wal unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("wal invalid header size")
)

func encodeHeader(dst []byte, meta schema.EventMeta, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(meta.Kind))
	binary.LittleEndian.PutUint16(dst[10:12], uint16(meta.Venue))
	binary.LittleEndian.PutUint32(dst[12:16], uint32(meta.Symbol))
	binary.LittleEndian.PutUint32(dst[16:20], uint32(meta.Account))
	binary.LittleEndian.PutUint32(dst[20:24], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[24:32], uint64(meta.Seq))
	binary.LittleEndian.PutUint64(dst[32:40], uint64(meta.FirstID))
	binary.LittleEndian.PutUint64(dst[40:48], uint64(meta.TsEvent))
	binary.LittleEndian.PutUint64(dst[48:56], uint64(meta.TsRecv))
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}

func decodeRecordHeader(src []byte) (schema.EventMeta, uint32, error) {
	if len(src) < recordHeaderSize {
		return schema.EventMeta{}, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return schema.EventMeta{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return schema.EventMeta{}, 0, ErrUnsupportedRecordVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != recordHeaderSize {
		return schema.EventMeta{}, 0, ErrInvalidRecordHeaderSize
	}
	payloadLen := binary.LittleEndian.Uint32(src[20:24])
	meta := schema.EventMeta{
		Kind:    schema.EventKind(binary.LittleEndian.Uint16(src[8:10])),
		Venue:   schema.VenueID(binary.LittleEndian.Uint16(src[10:12])),
		Symbol:  schema.SymbolID(binary.LittleEndian.Uint32(src[12:16])),
		Account: schema.AccountID(binary.LittleEndian.Uint32(src[16:20])),
		Seq:     int64(binary.LittleEndian.Uint64(src[24:32])),
		FirstID: int64(binary.LittleEndian.Uint64(src[32:40])),
		TsEvent: int64(binary.LittleEndian.Uint64(src[40:48])),
		TsRecv:  int64(binary.LittleEndian.Uint64(src[48:56])),
	}
	return meta, payloadLen, nil
}
