// Package cardgen synthesizes card numbers and CVVs for simulated cards.
//
// Numbers are the issuing prefix followed by independently-drawn random
// decimal digits. They are deliberately not Luhn-valid: these cards must
// never pass real-world validation. Uniqueness is enforced by the stores,
// not here; callers retry on conflict.
package cardgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Prefix is the fixed issuing prefix for all generated numbers.
	Prefix = "4111"
	// NumberLength is the total PAN length.
	NumberLength = 16
)

// GenerateNumber returns a 16-digit card number: the fixed prefix plus 12
// random digits.
func GenerateNumber() (string, error) {
	digits, err := randomDigits(NumberLength - len(Prefix))
	if err != nil {
		return "", fmt.Errorf("generate card number: %w", err)
	}
	return Prefix + digits, nil
}

// GenerateCVV returns a 3-digit CVV drawn uniformly from [100, 999].
func GenerateCVV() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900))
	if err != nil {
		return "", fmt.Errorf("generate cvv: %w", err)
	}
	return fmt.Sprintf("%03d", n.Int64()+100), nil
}

// LastFour returns the trailing four digits of a card number.
func LastFour(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}

// randomDigits draws count uniform decimal digits using rejection sampling to
// avoid modulo bias.
func randomDigits(count int) (string, error) {
	const threshold = 250 // 256 - (256 % 10)
	var sb strings.Builder
	sb.Grow(count)
	buf := make([]byte, 32)
	for sb.Len() < count {
		n, err := rand.Read(buf)
		if err != nil {
			return "", err
		}
		for i := 0; i < n && sb.Len() < count; i++ {
			if buf[i] < threshold {
				sb.WriteByte('0' + buf[i]%10)
			}
		}
	}
	return sb.String(), nil
}
