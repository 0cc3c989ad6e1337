package schema

// Price is an e8 fixed-point integer: the true value multiplied by 1e8.
type Price int64

// Quantity is an e8 fixed-point integer: the true value multiplied by 1e8.
type Quantity int64

// Amount is an e8 fixed-point balance or transfer size.
type Amount int64

// VenueID is the numeric identifier for a venue.
type VenueID uint16

// SymbolID is the numeric identifier for an instrument.
type SymbolID uint32

// AccountID is the numeric identifier for a trading account.
type AccountID uint32

// AssetID is the numeric identifier for an asset.
type AssetID uint32

// SyncStyle selects the book reconciliation protocol for a venue.
type SyncStyle uint8

const (
	SyncStyleUnknown SyncStyle = iota
	// SyncStyleSequenced: point-in-time snapshot plus sequenced increments.
	SyncStyleSequenced
	// SyncStyleSentinel: periodic full snapshots marked by a reserved
	// first-update-id; increments carry no usable sequence.
	SyncStyleSentinel
)

// OrderSide describes order direction.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
)

// TimeInForce describes order time-in-force.
type TimeInForce uint16

const (
	TimeInForceUnknown TimeInForce = iota
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
)

// OrderStatus is the venue-reported order state carried on events.
type OrderStatus uint16

const (
	OrderStatusUnknown OrderStatus = iota
	OrderStatusNew
	OrderStatusPartFilled
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusRejected
	OrderStatusExpired
)

// TransferDirection describes which way a transfer or settlement moves value.
type TransferDirection uint16

const (
	TransferUnknown TransferDirection = iota
	TransferCredit
	TransferDebit
)

// CommandOp is an operator/strategy command carried on EventCommand records.
type CommandOp uint16

const (
	CommandNone CommandOp = iota
	CommandHalt
	CommandResume
)
