package security

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math/big"
	mathrand "math/rand"
)

const IdentifierAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var (
	errNegativeLength = errors.New("length must be non-negative")
	errEmptyAlphabet  = errors.New("alphabet must not be empty")
)

// RandomString returns a cryptographically secure, unbiased string of the requested length.
func RandomString(length int, alphabet string) (string, error) {
	if length < 0 {
		return "", errNegativeLength
	}
	if length == 0 {
		return "", nil
	}
	if len(alphabet) == 0 {
		return "", errEmptyAlphabet
	}

	limit := big.NewInt(int64(len(alphabet)))
	value := make([]byte, length)
	for index := range value {
		position, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		value[index] = alphabet[position.Int64()]
	}

	return string(value), nil
}

// ClientID builds a broker client identifier such as "nestling-k3x9q2ab".
func ClientID(prefix string) (string, error) {
	suffix, err := RandomString(8, IdentifierAlphabet)
	if err != nil {
		return "", err
	}
	return prefix + "-" + suffix, nil
}

// NewSeededRand returns a math/rand source seeded from the system CSPRNG.
func NewSeededRand() (*mathrand.Rand, error) {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}
	return mathrand.New(mathrand.NewSource(int64(binary.LittleEndian.Uint64(seed[:])))), nil
}
