package domain

import "time"

// ClaimType is an OpenID Connect standard claim name.
type ClaimType string

const (
	ClaimName                ClaimType = "name"
	ClaimGivenName           ClaimType = "given_name"
	ClaimFamilyName          ClaimType = "family_name"
	ClaimMiddleName          ClaimType = "middle_name"
	ClaimNickname            ClaimType = "nickname"
	ClaimPreferredUsername   ClaimType = "preferred_username"
	ClaimProfile             ClaimType = "profile"
	ClaimPicture             ClaimType = "picture"
	ClaimWebsite             ClaimType = "website"
	ClaimEmail               ClaimType = "email"
	ClaimEmailVerified       ClaimType = "email_verified"
	ClaimGender              ClaimType = "gender"
	ClaimBirthdate           ClaimType = "birthdate"
	ClaimZoneinfo            ClaimType = "zoneinfo"
	ClaimLocale              ClaimType = "locale"
	ClaimPhoneNumber         ClaimType = "phone_number"
	ClaimPhoneNumberVerified ClaimType = "phone_number_verified"
	ClaimAddress             ClaimType = "address"
	ClaimUpdatedAt           ClaimType = "updated_at"
)

// AllClaimTypes lists every ClaimType the store accepts.
var AllClaimTypes = []ClaimType{
	ClaimName, ClaimGivenName, ClaimFamilyName, ClaimMiddleName, ClaimNickname,
	ClaimPreferredUsername, ClaimProfile, ClaimPicture, ClaimWebsite, ClaimEmail,
	ClaimEmailVerified, ClaimGender, ClaimBirthdate, ClaimZoneinfo, ClaimLocale,
	ClaimPhoneNumber, ClaimPhoneNumberVerified, ClaimAddress, ClaimUpdatedAt,
}

// User is a resource owner. ID is numeric and rendered as a decimal string in
// the sub claim.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	MFASecret    *string // TOTP secret; nil when MFA is off
	Roles        []string
	Claims       map[ClaimType]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) MFAEnabled() bool { return u.MFASecret != nil && *u.MFASecret != "" }

// FederatedIdentity links an upstream provider subject to a local user.
type FederatedIdentity struct {
	Provider  string
	Subject   string
	UserID    int64
	Email     string
	CreatedAt time.Time
}
