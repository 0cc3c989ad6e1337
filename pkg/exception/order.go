package exception

import "errors"

var (
	ErrOrderDuplicate         = errors.New("order: already exists")
	ErrOrderUnknown           = errors.New("order: not found")
	ErrOrderUnknownClientHash = errors.New("order: unknown client hash")
	ErrOrderInvalidTransition = errors.New("order: invalid state transition")
	ErrOrderOverfill          = errors.New("order: filled exceeds quantity")
	ErrOrderInvalidRequest    = errors.New("order: invalid request")
	ErrOrderChannelFull       = errors.New("order: gateway channel full")
)

var (
	ErrInsufficientBalance = errors.New("balance: insufficient free amount")
	ErrNegativeAmount      = errors.New("balance: negative amount")
	ErrLockedUnderflow     = errors.New("balance: locked underflow")
)
