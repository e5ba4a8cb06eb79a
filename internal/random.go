package internal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// TokenLength is the length of verification, reset, and email sign-in tokens.
	TokenLength = 21
	// CodeDigits is the length of numeric sign-in codes sent over SMS.
	CodeDigits = 6
)

// NewToken returns a random alphanumeric token of TokenLength characters.
func NewToken() (string, error) {
	return randomString(tokenAlphabet, TokenLength)
}

// NewNumericCode returns a random decimal code with the given number of digits.
func NewNumericCode(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid code digits")
	}
	return randomString("0123456789", digits)
}

// FormatCode splits a numeric code into two dash-separated halves for
// human entry ("123456" -> "123-456"). Odd lengths are returned unchanged.
func FormatCode(code string) string {
	if len(code) == 0 || len(code)%2 != 0 {
		return code
	}
	half := len(code) / 2
	return code[:half] + "-" + code[half:]
}

// NormalizeCode strips the separators FormatCode and users add.
func NormalizeCode(code string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(code))
}

func randomString(alphabet string, length int) (string, error) {
	var b strings.Builder
	b.Grow(length)

	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}

	out := b.String()
	if len(out) != length {
		return "", fmt.Errorf("invalid random string length")
	}
	return out, nil
}
