package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"
)

// Alphabet for registration tokens. No 0/O or 1/I/l so codes survive
// being read aloud or copied from paper.
const tokenAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewRegistrationToken returns a short alphanumeric one-time code.
func NewRegistrationToken(length int) (string, error) {
	if length <= 0 {
		length = 8
	}
	buf := make([]byte, length)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
