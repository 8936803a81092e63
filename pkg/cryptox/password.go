package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrWrongPassword is returned by VerifyPassword when the password does not
	// match the stored hash, or the stored hash cannot be used for comparison.
	ErrWrongPassword = errors.New("cryptox: password does not match")

	// ErrInvalidInput is returned when the password is not valid UTF-8 text.
	ErrInvalidInput = errors.New("cryptox: password is not valid text")
)

// HashPassword returns an Argon2id hash in PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iters>,p=<par>$<salt>$<hash>
//
// The pepper is appended to the password before hashing.
func HashPassword(password string) (string, error) {
	if !utf8.ValidString(password) {
		return "", ErrInvalidInput
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password+GetPepper()), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks password against a hash produced by HashPassword.
// A nil error means the password matches. Every failure, including a
// malformed hash, satisfies errors.Is(err, ErrWrongPassword).
func VerifyPassword(password, encodedHash string) error {
	if !utf8.ValidString(password) {
		return ErrInvalidInput
	}

	salt, expected, params, err := decodeHash(encodedHash)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrongPassword, err)
	}

	computed := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		params.iterations,
		params.memory,
		params.parallelism,
		uint32(len(expected)), // #nosec G115 - bounded by the decoded hash length
	)

	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrWrongPassword
	}
	return nil
}

type hashParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func decodeHash(encoded string) (salt, hash []byte, p hashParams, err error) {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, p, errors.New("invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return nil, nil, p, errors.New("invalid hash format: not argon2id")
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return nil, nil, p, errors.New("invalid hash format: wrong version")
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return nil, nil, p, fmt.Errorf("invalid hash format: parameters: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, p, fmt.Errorf("invalid hash format: salt: %w", err)
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, p, fmt.Errorf("invalid hash format: hash: %w", err)
	}

	return salt, hash, p, nil
}
