package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const MarketPayloadSize = 16

// EncodeMarket serializes a trade tick into a fixed-size payload.
func EncodeMarket(dst []byte, p *schema.MarketPayload) []byte {
	if cap(dst) < MarketPayloadSize {
		dst = make([]byte, MarketPayloadSize)
	} else {
		dst = dst[:MarketPayloadSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], uint64(p.Price))
	binary.LittleEndian.PutUint64(dst[8:16], uint64(p.Qty))
	return dst
}

// DecodeMarket parses a fixed-size trade tick payload.
func DecodeMarket(src []byte, p *schema.MarketPayload) bool {
	if len(src) < MarketPayloadSize {
		return false
	}
	p.Price = schema.Price(int64(binary.LittleEndian.Uint64(src[0:8])))
	p.Qty = schema.Quantity(int64(binary.LittleEndian.Uint64(src[8:16])))
	return true
}
