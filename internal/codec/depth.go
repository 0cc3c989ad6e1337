package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const (
	depthHeaderSize = 8
	depthLevelSize  = 16
)

// MaxDepthPayloadSize bounds a fully populated depth payload.
const MaxDepthPayloadSize = depthHeaderSize + 2*schema.DepthCapacity*depthLevelSize

// EncodeDepth serializes a depth payload. Only the valid levels are written,
// so the output size varies with the counts.
func EncodeDepth(dst []byte, p *schema.DepthPayload) []byte {
	bids := p.BidCount
	if bids > schema.DepthCapacity {
		bids = schema.DepthCapacity
	}
	asks := p.AskCount
	if asks > schema.DepthCapacity {
		asks = schema.DepthCapacity
	}

	size := depthHeaderSize + (bids+asks)*depthLevelSize
	if cap(dst) < size {
		dst = make([]byte, size)
	} else {
		dst = dst[:size]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(bids))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(asks))
	off := depthHeaderSize
	for i := 0; i < bids; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], uint64(p.BidPrice[i]))
		binary.LittleEndian.PutUint64(dst[off+8:off+16], uint64(p.BidQty[i]))
		off += depthLevelSize
	}
	for i := 0; i < asks; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], uint64(p.AskPrice[i]))
		binary.LittleEndian.PutUint64(dst[off+8:off+16], uint64(p.AskQty[i]))
		off += depthLevelSize
	}
	return dst
}

// DecodeDepth parses a depth payload into p. Counts above capacity or a short
// buffer fail.
func DecodeDepth(src []byte, p *schema.DepthPayload) bool {
	if len(src) < depthHeaderSize {
		return false
	}
	bids := int(binary.LittleEndian.Uint32(src[0:4]))
	asks := int(binary.LittleEndian.Uint32(src[4:8]))
	if bids > schema.DepthCapacity || asks > schema.DepthCapacity {
		return false
	}
	if len(src) < depthHeaderSize+(bids+asks)*depthLevelSize {
		return false
	}

	off := depthHeaderSize
	for i := 0; i < bids; i++ {
		p.BidPrice[i] = schema.Price(int64(binary.LittleEndian.Uint64(src[off : off+8])))
		p.BidQty[i] = schema.Quantity(int64(binary.LittleEndian.Uint64(src[off+8 : off+16])))
		off += depthLevelSize
	}
	for i := 0; i < asks; i++ {
		p.AskPrice[i] = schema.Price(int64(binary.LittleEndian.Uint64(src[off : off+8])))
		p.AskQty[i] = schema.Quantity(int64(binary.LittleEndian.Uint64(src[off+8 : off+16])))
		off += depthLevelSize
	}
	p.BidCount = bids
	p.AskCount = asks
	return true
}
