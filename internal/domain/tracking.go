package domain

import (
	"crypto/rand"
	"math/big"
)

// TrackingCodeLength is the number of digits in an order tracking code
const TrackingCodeLength = 10

var tenDigits = big.NewInt(10)

// NewTrackingCode returns a random numeric tracking code. Uniqueness is
// enforced by the store; callers regenerate on collision.
func NewTrackingCode() (string, error) {
	code := make([]byte, TrackingCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, tenDigits)
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
