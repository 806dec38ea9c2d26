package codegen

import (
	"fmt"

	"github.com/bc80/bc80/pkg/ir"
)

// BCD record layout: byte 0 sign (0x00 positive, 0x80 negative), byte 1
// nominal digit count (always 50), byte 2 scale, bytes 3..27 hold 50
// packed digits, most significant digit in the high nibble of byte 3.
const (
	recordSize = 28
	digitBytes = 25
	numDigits  = 50
)

// EncodeBCD packs a constant into its 28-byte record. The digit string
// is right-aligned so the last fractional digit lands in the low nibble
// of byte 27.
func EncodeBCD(c ir.Const) ([]byte, error) {
	digits := c.Digits
	if c.Scale < 0 || c.Scale > numDigits {
		return nil, &Error{Message: fmt.Sprintf("literal scale %d is out of range", c.Scale)}
	}
	if len(digits) > numDigits {
		return nil, &Error{Message: fmt.Sprintf("literal %q exceeds %d digits", digits, numDigits)}
	}
	rec := make([]byte, recordSize)
	rec[1] = numDigits
	rec[2] = byte(c.Scale)
	// nibble index 0..49, most significant first
	pos := numDigits - 1
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i] - '0'
		if d > 9 {
			return nil, &Error{Message: fmt.Sprintf("bad digit %q in literal", digits[i])}
		}
		b := 3 + pos/2
		if pos%2 == 0 {
			rec[b] |= d << 4
		} else {
			rec[b] |= d
		}
		pos--
	}
	return rec, nil
}

// sigDigits counts the significant digits of an interned constant
func sigDigits(c ir.Const) int {
	if c.Digits == "0" {
		return 0
	}
	return len(c.Digits)
}
