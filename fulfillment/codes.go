package fulfillment

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mathrand "math/rand"
)

const (
	trackingPrefix       = "TRK-"
	trackingSuffixLength = 10
	trackingAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewTrackingNumber returns a fixed prefix plus a random uppercase
// alphanumeric suffix, issued once per shipped transition.
func NewTrackingNumber() string {
	suffix := make([]byte, trackingSuffixLength)
	for i := range suffix {
		suffix[i] = trackingAlphabet[mathrand.Intn(len(trackingAlphabet))]
	}
	return trackingPrefix + string(suffix)
}

// NewDeliveryCode returns a uniformly random 4-digit code, zero-padded so
// codes below 1000 keep their leading zeros.
func NewDeliveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
