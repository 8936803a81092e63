package domain

// APIResource is a protected API. Its name joins the access token audience
// when any of its scopes is granted.
type APIResource struct {
	Name        string
	DisplayName string
	Scopes      []APIScope
}

// APIScope is a scope exposed by an API resource.
type APIScope struct {
	Name       string
	ClaimTypes []ClaimType
}

// Identity scopes with their fixed claim sets. openid only carries sub.
var IdentityScopes = map[string][]ClaimType{
	"openid": {},
	"profile": {
		ClaimName, ClaimFamilyName, ClaimGivenName, ClaimMiddleName, ClaimNickname,
		ClaimPreferredUsername, ClaimProfile, ClaimPicture, ClaimWebsite, ClaimGender,
		ClaimBirthdate, ClaimZoneinfo, ClaimLocale, ClaimUpdatedAt,
	},
	"email":          {ClaimEmail, ClaimEmailVerified},
	"phone":          {ClaimPhoneNumber, ClaimPhoneNumberVerified},
	"address":        {ClaimAddress},
	"offline_access": {},
}
