package exception

import "errors"

var (
	ErrSequenceGap            = errors.New("market data: sequence gap")
	ErrUnknownVenue           = errors.New("market data: unknown venue")
	ErrUnknownSymbol          = errors.New("market data: unknown symbol")
	ErrUnsupportedSyncStyle   = errors.New("market data: unsupported sync style")
	ErrInvalidDepthPayload    = errors.New("market data: invalid depth payload")
	ErrInvalidSnapshotPayload = errors.New("market data: invalid snapshot payload")
)
