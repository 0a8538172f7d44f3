// Package keycodec converts fixed-length byte keys to and from their base-10
// representation. It is an encoding, not encryption: the decimal string is the
// big-endian unsigned integer formed by the bytes.
//
// Leading zero bytes add nothing to the string, so decoding needs the original
// byte length to reproduce them.
package keycodec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecimalEncodingOverflow indicates the decoded value needs more bytes
	// than the requested length. The most-significant bytes were dropped.
	ErrDecimalEncodingOverflow = errors.New("decimal value exceeds target length")
	// ErrInvalidDecimal indicates the input is empty or contains a non-digit.
	ErrInvalidDecimal = errors.New("invalid decimal string")
	// ErrInvalidLength indicates a negative target length.
	ErrInvalidLength = errors.New("invalid target length")
)

// BytesToDecimal returns the base-10 representation of b read as a big-endian
// unsigned integer. Empty and all-zero input both encode as "0".
func BytesToDecimal(b []byte) string {
	// little-endian decimal digits
	digits := []byte{0}
	for _, v := range b {
		carry := int(v)
		for i := range digits {
			x := int(digits[i])*256 + carry
			digits[i] = byte(x % 10)
			carry = x / 10
		}
		for carry > 0 {
			digits = append(digits, byte(carry%10))
			carry /= 10
		}
	}

	var sb strings.Builder
	sb.Grow(len(digits))
	for i := len(digits) - 1; i >= 0; i-- {
		sb.WriteByte('0' + digits[i])
	}
	return sb.String()
}

// DecimalToBytes decodes s into exactly length bytes, left-padding with zeros.
//
// When the value does not fit, the low-order length bytes are still returned
// together with an error wrapping ErrDecimalEncodingOverflow, so callers that
// accept the lossy result can opt in with errors.Is.
func DecimalToBytes(s string, length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	digits, err := parseDigits(s)
	if err != nil {
		return nil, err
	}

	out := make([]byte, length)
	for pos := length - 1; pos >= 0 && len(digits) > 0; pos-- {
		var rem byte
		digits, rem = divmod256(digits)
		out[pos] = rem
	}
	if len(digits) > 0 {
		return out, fmt.Errorf("%w: value needs more than %d bytes", ErrDecimalEncodingOverflow, length)
	}
	return out, nil
}

// parseDigits returns the big-endian digit values of s with leading zeros
// removed. Zero is represented by an empty slice.
func parseDigits(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDecimal)
	}
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: unexpected character at offset %d", ErrInvalidDecimal, i)
		}
		if len(digits) == 0 && c == '0' {
			continue
		}
		digits = append(digits, c-'0')
	}
	return digits, nil
}

// divmod256 divides a big-endian digit slice by 256 in place and returns the
// quotient (leading zeros stripped) and the remainder.
func divmod256(digits []byte) ([]byte, byte) {
	rem := 0
	for i, d := range digits {
		cur := rem*10 + int(d)
		digits[i] = byte(cur / 256)
		rem = cur % 256
	}
	start := 0
	for start < len(digits) && digits[start] == 0 {
		start++
	}
	return digits[start:], byte(rem)
}
