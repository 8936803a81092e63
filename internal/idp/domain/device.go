package domain

import "time"

// Fixed device flow timings, independent of the client.
const (
	DeviceCodeLifetime = 600 * time.Second
	DevicePollInterval = 5 * time.Second
)

// Device is a pending device authorization. DeviceCode holds the
// fingerprint; the raw value is only handed to the device once.
type Device struct {
	DeviceCode              string
	UserCode                string
	ClientID                string
	Scopes                  []string
	VerificationURI         string
	VerificationURIComplete string
	CreatedAt               time.Time
	ExpiresIn               int64 // seconds
	Interval                int64 // seconds
	LastPolledAt            *time.Time
}

func (d *Device) ExpiresAt() time.Time {
	return d.CreatedAt.Add(time.Duration(d.ExpiresIn) * time.Second)
}

func (d *Device) IsExpired(now time.Time) bool {
	return !now.Before(d.ExpiresAt())
}

// DeviceAuthorization is the RFC 8628 device authorization response.
type DeviceAuthorization struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval"`
}
