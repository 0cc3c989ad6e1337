package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const (
	execFixedSize  = 48
	fillHeaderSize = 16
	fillEntrySize  = 16
)

// MaxExecPayloadSize bounds an execution payload with a full fill batch.
const MaxExecPayloadSize = execFixedSize + fillHeaderSize + schema.FillCapacity*fillEntrySize

// EncodeExec serializes an execution report and its fill breakdown.
func EncodeExec(dst []byte, exec *schema.ExecPayload, fills *schema.FillBatch) []byte {
	count := fills.Count
	if count > schema.FillCapacity {
		count = schema.FillCapacity
	}

	size := execFixedSize + fillHeaderSize + count*fillEntrySize
	if cap(dst) < size {
		dst = make([]byte, size)
	} else {
		dst = dst[:size]
	}

	binary.LittleEndian.PutUint64(dst[0:8], exec.OrderID)
	binary.LittleEndian.PutUint64(dst[8:16], exec.ClientHash)
	binary.LittleEndian.PutUint64(dst[16:24], uint64(exec.ExchangeID))
	binary.LittleEndian.PutUint16(dst[24:26], uint16(exec.Side))
	binary.LittleEndian.PutUint16(dst[26:28], uint16(exec.Type))
	binary.LittleEndian.PutUint16(dst[28:30], uint16(exec.Status))
	binary.LittleEndian.PutUint16(dst[30:32], 0)
	binary.LittleEndian.PutUint64(dst[32:40], uint64(exec.FilledQty))
	binary.LittleEndian.PutUint64(dst[40:48], uint64(exec.FillPrice))

	binary.LittleEndian.PutUint32(dst[48:52], uint32(count))
	binary.LittleEndian.PutUint32(dst[52:56], 0)
	binary.LittleEndian.PutUint64(dst[56:64], uint64(fills.Total))
	off := execFixedSize + fillHeaderSize
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], uint64(fills.Price[i]))
		binary.LittleEndian.PutUint64(dst[off+8:off+16], uint64(fills.Qty[i]))
		off += fillEntrySize
	}
	return dst
}

// DecodeExec parses an execution payload into exec and fills.
func DecodeExec(src []byte, exec *schema.ExecPayload, fills *schema.FillBatch) bool {
	if len(src) < execFixedSize+fillHeaderSize {
		return false
	}

	exec.OrderID = binary.LittleEndian.Uint64(src[0:8])
	exec.ClientHash = binary.LittleEndian.Uint64(src[8:16])
	exec.ExchangeID = int64(binary.LittleEndian.Uint64(src[16:24]))
	exec.Side = schema.OrderSide(binary.LittleEndian.Uint16(src[24:26]))
	exec.Type = schema.OrderType(binary.LittleEndian.Uint16(src[26:28]))
	exec.Status = schema.OrderStatus(binary.LittleEndian.Uint16(src[28:30]))
	exec.FilledQty = schema.Quantity(int64(binary.LittleEndian.Uint64(src[32:40])))
	exec.FillPrice = schema.Price(int64(binary.LittleEndian.Uint64(src[40:48])))

	count := int(binary.LittleEndian.Uint32(src[48:52]))
	if count > schema.FillCapacity {
		return false
	}
	if len(src) < execFixedSize+fillHeaderSize+count*fillEntrySize {
		return false
	}
	fills.Total = schema.Quantity(int64(binary.LittleEndian.Uint64(src[56:64])))
	off := execFixedSize + fillHeaderSize
	for i := 0; i < count; i++ {
		fills.Price[i] = schema.Price(int64(binary.LittleEndian.Uint64(src[off : off+8])))
		fills.Qty[i] = schema.Quantity(int64(binary.LittleEndian.Uint64(src[off+8 : off+16])))
		off += fillEntrySize
	}
	fills.Count = count
	return true
}
