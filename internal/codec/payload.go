package codec

import (
	"encoding/binary"

	"main/internal/schema"
)

const commandPayloadSize = 8

// MaxPayloadSize bounds any encoded payload; readers can use it as a sanity
// limit.
const MaxPayloadSize = MaxDepthPayloadSize

// EncodePayload serializes the payload section selected by the record's kind.
// Kinds with no payload return dst truncated to zero length; unknown kinds
// return ok false.
func EncodePayload(dst []byte, rec *schema.EventRecord) ([]byte, bool) {
	switch rec.Meta.Kind {
	case schema.EventMarketTick:
		return EncodeMarket(dst, &rec.Market), true
	case schema.EventDepth:
		return EncodeDepth(dst, &rec.Depth), true
	case schema.EventExecution:
		return EncodeExec(dst, &rec.Exec, &rec.Fills), true
	case schema.EventAccountOrders:
		return EncodeOrderBatch(dst, &rec.Orders), true
	case schema.EventAccountBalances:
		return EncodeBalanceBatch(dst, &rec.Balances), true
	case schema.EventTransfer:
		return EncodeTransfer(dst, &rec.Transfer), true
	case schema.EventCommand:
		if cap(dst) < commandPayloadSize {
			dst = make([]byte, commandPayloadSize)
		} else {
			dst = dst[:commandPayloadSize]
		}
		binary.LittleEndian.PutUint16(dst[0:2], uint16(rec.Command.Op))
		binary.LittleEndian.PutUint16(dst[2:4], 0)
		binary.LittleEndian.PutUint32(dst[4:8], 0)
		return dst, true
	case schema.EventConfig, schema.EventTimer:
		return dst[:0], true
	default:
		return dst[:0], false
	}
}

// DecodePayload parses a payload into the section selected by kind. The
// record's other sections are left alone; callers reset the record first.
func DecodePayload(kind schema.EventKind, src []byte, rec *schema.EventRecord) bool {
	switch kind {
	case schema.EventMarketTick:
		return DecodeMarket(src, &rec.Market)
	case schema.EventDepth:
		return DecodeDepth(src, &rec.Depth)
	case schema.EventExecution:
		return DecodeExec(src, &rec.Exec, &rec.Fills)
	case schema.EventAccountOrders:
		return DecodeOrderBatch(src, &rec.Orders)
	case schema.EventAccountBalances:
		return DecodeBalanceBatch(src, &rec.Balances)
	case schema.EventTransfer:
		return DecodeTransfer(src, &rec.Transfer)
	case schema.EventCommand:
		if len(src) < commandPayloadSize {
			return false
		}
		rec.Command.Op = schema.CommandOp(binary.LittleEndian.Uint16(src[0:2]))
		return true
	case schema.EventConfig, schema.EventTimer:
		return true
	default:
		return false
	}
}
