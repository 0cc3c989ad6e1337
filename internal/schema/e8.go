package schema

import (
	"errors"
	"strconv"
)

// E8 is the fixed-point scale: stored integers are the true value times 1e8.
const E8 int64 = 100_000_000

const e8Digits = 8

var ErrInvalidDecimal = errors.New("invalid decimal literal")

const maxInt64 = int64(^uint64(0) >> 1)

// ParseE8 converts a decimal string into an e8 fixed-point integer, exactly.
// Fractional digits past the 8th must be zero; anything else is rejected
// rather than rounded.
func ParseE8(s string) (int64, error) {
	if len(s) == 0 {
		return 0, ErrInvalidDecimal
	}

	i := 0
	neg := false
	switch s[0] {
	case '-':
		neg = true
		i++
	case '+':
		i++
	}
	if i >= len(s) {
		return 0, ErrInvalidDecimal
	}

	var whole uint64
	sawDigit := false
	for ; i < len(s) && s[i] != '.'; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, ErrInvalidDecimal
		}
		d := uint64(c - '0')
		if whole > (uint64(maxInt64)-d)/10 {
			return 0, ErrInvalidDecimal
		}
		whole = whole*10 + d
		sawDigit = true
	}

	var frac uint64
	fracLen := 0
	if i < len(s) {
		i++ // '.'
		for ; i < len(s); i++ {
			c := s[i]
			if c < '0' || c > '9' {
				return 0, ErrInvalidDecimal
			}
			if fracLen >= e8Digits {
				if c != '0' {
					return 0, ErrInvalidDecimal
				}
				continue
			}
			frac = frac*10 + uint64(c-'0')
			fracLen++
			sawDigit = true
		}
	}
	if !sawDigit {
		return 0, ErrInvalidDecimal
	}
	for ; fracLen < e8Digits; fracLen++ {
		frac *= 10
	}

	if whole > uint64(maxInt64/E8) {
		return 0, ErrInvalidDecimal
	}
	v := whole * uint64(E8)
	if v > uint64(maxInt64)-frac {
		return 0, ErrInvalidDecimal
	}
	v += frac

	if neg {
		return -int64(v), nil
	}
	return int64(v), nil
}

// ParsePriceE8 parses a decimal string into an e8 Price.
func ParsePriceE8(s string) (Price, error) {
	v, err := ParseE8(s)
	return Price(v), err
}

// ParseQuantityE8 parses a decimal string into an e8 Quantity.
func ParseQuantityE8(s string) (Quantity, error) {
	v, err := ParseE8(s)
	return Quantity(v), err
}

// ParseAmountE8 parses a decimal string into an e8 Amount.
func ParseAmountE8(s string) (Amount, error) {
	v, err := ParseE8(s)
	return Amount(v), err
}

// AppendE8 appends the decimal form of an e8 fixed-point integer.
func AppendE8(buf []byte, value int64) []byte {
	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= e8Digits {
		buf = append(buf, '0', '.')
		for i := 0; i < e8Digits-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return buf
	}

	idx := len(digits) - e8Digits
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return buf
}

// FormatE8 returns the decimal form of an e8 fixed-point integer.
func FormatE8(value int64) string {
	return string(AppendE8(nil, value))
}
