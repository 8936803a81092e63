package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// UserCodeAlphabet holds consonants only, so codes never spell words and are
// easy to read back over the phone.
const UserCodeAlphabet = "BCDFGHJKLMNPQRSTVWXZ"

// UserCodeLength is the number of characters in a device user code.
const UserCodeLength = 8

// GenerateUserCode returns a random user code drawn uniformly from
// UserCodeAlphabet.
func GenerateUserCode() (string, error) {
	max := big.NewInt(int64(len(UserCodeAlphabet)))
	out := make([]byte, UserCodeLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("cryptox: generate user code: %w", err)
		}
		out[i] = UserCodeAlphabet[n.Int64()]
	}
	return string(out), nil
}
