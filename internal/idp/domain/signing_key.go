package domain

import "time"

// SigningKey is a persisted RS256 key. The private PEM is sealed with the
// master key. A retired key stops signing and only verifies until ExpiresAt.
type SigningKey struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	ExpiresAt           time.Time
}

func (k *SigningKey) IsActive() bool { return k.RetiredAt == nil }

// IsExpired reports a retired key past its grace period.
func (k *SigningKey) IsExpired(now time.Time) bool {
	return k.RetiredAt != nil && !now.Before(k.ExpiresAt)
}
