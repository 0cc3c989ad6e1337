package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const (
	batchHeaderSize     = 8
	orderEntrySize      = 64
	balanceEntrySize    = 24
	TransferPayloadSize = 16
)

// MaxOrderBatchPayloadSize bounds a full account-orders payload.
const MaxOrderBatchPayloadSize = batchHeaderSize + schema.OrderBatchCapacity*orderEntrySize

// MaxBalanceBatchPayloadSize bounds a full balance-sync payload.
const MaxBalanceBatchPayloadSize = batchHeaderSize + schema.BalanceBatchCapacity*balanceEntrySize

// EncodeOrderBatch serializes an account-orders sync.
func EncodeOrderBatch(dst []byte, b *schema.AccountOrderBatch) []byte {
	count := b.Count
	if count > schema.OrderBatchCapacity {
		count = schema.OrderBatchCapacity
	}

	size := batchHeaderSize + count*orderEntrySize
	if cap(dst) < size {
		dst = make([]byte, size)
	} else {
		dst = dst[:size]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(count))
	binary.LittleEndian.PutUint32(dst[4:8], 0)
	off := batchHeaderSize
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], b.ClientHash[i])
		binary.LittleEndian.PutUint32(dst[off+8:off+12], uint32(b.Symbol[i]))
		binary.LittleEndian.PutUint16(dst[off+12:off+14], uint16(b.Side[i]))
		binary.LittleEndian.PutUint16(dst[off+14:off+16], uint16(b.Status[i]))
		binary.LittleEndian.PutUint64(dst[off+16:off+24], uint64(b.Price[i]))
		binary.LittleEndian.PutUint64(dst[off+24:off+32], uint64(b.Qty[i]))
		binary.LittleEndian.PutUint64(dst[off+32:off+40], uint64(b.FilledQty[i]))
		binary.LittleEndian.PutUint64(dst[off+40:off+48], b.Cancel[i].PairID)
		binary.LittleEndian.PutUint32(dst[off+48:off+52], b.Cancel[i].Flags)
		binary.LittleEndian.PutUint32(dst[off+52:off+56], 0)
		binary.LittleEndian.PutUint64(dst[off+56:off+64], uint64(b.Cancel[i].ExpiresAt))
		off += orderEntrySize
	}
	return dst
}

// DecodeOrderBatch parses an account-orders payload into b.
func DecodeOrderBatch(src []byte, b *schema.AccountOrderBatch) bool {
	if len(src) < batchHeaderSize {
		return false
	}
	count := int(binary.LittleEndian.Uint32(src[0:4]))
	if count > schema.OrderBatchCapacity {
		return false
	}
	if len(src) < batchHeaderSize+count*orderEntrySize {
		return false
	}

	off := batchHeaderSize
	for i := 0; i < count; i++ {
		b.ClientHash[i] = binary.LittleEndian.Uint64(src[off : off+8])
		b.Symbol[i] = schema.SymbolID(binary.LittleEndian.Uint32(src[off+8 : off+12]))
		b.Side[i] = schema.OrderSide(binary.LittleEndian.Uint16(src[off+12 : off+14]))
		b.Status[i] = schema.OrderStatus(binary.LittleEndian.Uint16(src[off+14 : off+16]))
		b.Price[i] = schema.Price(int64(binary.LittleEndian.Uint64(src[off+16 : off+24])))
		b.Qty[i] = schema.Quantity(int64(binary.LittleEndian.Uint64(src[off+24 : off+32])))
		b.FilledQty[i] = schema.Quantity(int64(binary.LittleEndian.Uint64(src[off+32 : off+40])))
		b.Cancel[i] = schema.CancelMeta{
			PairID:    binary.LittleEndian.Uint64(src[off+40 : off+48]),
			Flags:     binary.LittleEndian.Uint32(src[off+48 : off+52]),
			ExpiresAt: int64(binary.LittleEndian.Uint64(src[off+56 : off+64])),
		}
		off += orderEntrySize
	}
	b.Count = count
	return true
}

// EncodeBalanceBatch serializes a balance sync.
func EncodeBalanceBatch(dst []byte, b *schema.BalanceBatch) []byte {
	count := b.Count
	if count > schema.BalanceBatchCapacity {
		count = schema.BalanceBatchCapacity
	}

	size := batchHeaderSize + count*balanceEntrySize
	if cap(dst) < size {
		dst = make([]byte, size)
	} else {
		dst = dst[:size]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(count))
	binary.LittleEndian.PutUint32(dst[4:8], 0)
	off := batchHeaderSize
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint32(dst[off:off+4], uint32(b.Asset[i]))
		binary.LittleEndian.PutUint32(dst[off+4:off+8], 0)
		binary.LittleEndian.PutUint64(dst[off+8:off+16], uint64(b.Free[i]))
		binary.LittleEndian.PutUint64(dst[off+16:off+24], uint64(b.Locked[i]))
		off += balanceEntrySize
	}
	return dst
}

// DecodeBalanceBatch parses a balance-sync payload into b.
func DecodeBalanceBatch(src []byte, b *schema.BalanceBatch) bool {
	if len(src) < batchHeaderSize {
		return false
	}
	count := int(binary.LittleEndian.Uint32(src[0:4]))
	if count > schema.BalanceBatchCapacity {
		return false
	}
	if len(src) < batchHeaderSize+count*balanceEntrySize {
		return false
	}

	off := batchHeaderSize
	for i := 0; i < count; i++ {
		b.Asset[i] = schema.AssetID(binary.LittleEndian.Uint32(src[off : off+4]))
		b.Free[i] = schema.Amount(int64(binary.LittleEndian.Uint64(src[off+8 : off+16])))
		b.Locked[i] = schema.Amount(int64(binary.LittleEndian.Uint64(src[off+16 : off+24])))
		off += balanceEntrySize
	}
	b.Count = count
	return true
}

// EncodeTransfer serializes a transfer confirmation.
func EncodeTransfer(dst []byte, p *schema.TransferPayload) []byte {
	if cap(dst) < TransferPayloadSize {
		dst = make([]byte, TransferPayloadSize)
	} else {
		dst = dst[:TransferPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(p.Asset))
	binary.LittleEndian.PutUint16(dst[4:6], uint16(p.Direction))
	binary.LittleEndian.PutUint16(dst[6:8], 0)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(p.Amount))
	return dst
}

// DecodeTransfer parses a transfer payload.
func DecodeTransfer(src []byte, p *schema.TransferPayload) bool {
	if len(src) < TransferPayloadSize {
		return false
	}
	p.Asset = schema.AssetID(binary.LittleEndian.Uint32(src[0:4]))
	p.Direction = schema.TransferDirection(binary.LittleEndian.Uint16(src[4:6]))
	p.Amount = schema.Amount(int64(binary.LittleEndian.Uint64(src[8:16])))
	return true
}
