package domain

import (
	"slices"
	"time"
)

// RefreshTokenUsage controls whether a refresh token survives being used.
type RefreshTokenUsage string

const (
	RefreshTokenOneTimeOnly RefreshTokenUsage = "one_time_only"
	RefreshTokenReuse       RefreshTokenUsage = "reuse"
)

// RefreshTokenExpiration controls how a refresh token's lifetime moves.
type RefreshTokenExpiration string

const (
	RefreshTokenAbsolute RefreshTokenExpiration = "absolute"
	RefreshTokenSliding  RefreshTokenExpiration = "sliding"
)

// Default lifetimes for clients that do not configure their own.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultIDTokenTTL      = time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultAuthCodeTTL     = 5 * time.Minute

	// MaxSlidingRefreshTokenLifetime caps a sliding refresh token no matter
	// how often it is used.
	MaxSlidingRefreshTokenLifetime = 90 * 24 * time.Hour
)

type Client struct {
	ID      string
	Name    string
	Secrets []ClientSecret

	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Scopes                 []string
	GrantTypes             []string
	ResponseTypes          []string // empty allows every registered response type

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	IDTokenTTL      time.Duration
	AuthCodeTTL     time.Duration

	RefreshTokenUsage      RefreshTokenUsage
	RefreshTokenExpiration RefreshTokenExpiration
	RequirePKCE            bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClientSecret is one argon2id hashed secret of a client.
type ClientSecret struct {
	ID        string
	ClientID  string
	Hash      string
	Type      string // "shared_secret"
	ExpiresAt *time.Time
	CreatedAt time.Time
}

const SecretTypeShared = "shared_secret"

func (c *Client) AllowsRedirectURI(uri string) bool {
	return uri != "" && slices.Contains(c.RedirectURIs, uri)
}

func (c *Client) AllowsPostLogoutRedirectURI(uri string) bool {
	return uri != "" && slices.Contains(c.PostLogoutRedirectURIs, uri)
}

func (c *Client) AllowsScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

func (c *Client) AllowsGrantType(gt string) bool {
	return slices.Contains(c.GrantTypes, gt)
}

func (c *Client) AllowsResponseType(rt string) bool {
	return len(c.ResponseTypes) == 0 || slices.Contains(c.ResponseTypes, rt)
}

// IsPublic reports a client without any secret.
func (c *Client) IsPublic() bool { return len(c.Secrets) == 0 }

// ActiveSecrets returns the secrets not expired at now.
func (c *Client) ActiveSecrets(now time.Time) []ClientSecret {
	out := make([]ClientSecret, 0, len(c.Secrets))
	for _, s := range c.Secrets {
		if s.ExpiresAt == nil || now.Before(*s.ExpiresAt) {
			out = append(out, s)
		}
	}
	return out
}

func (c *Client) AccessTTL() time.Duration  { return orDefault(c.AccessTokenTTL, DefaultAccessTokenTTL) }
func (c *Client) RefreshTTL() time.Duration { return orDefault(c.RefreshTokenTTL, DefaultRefreshTokenTTL) }
func (c *Client) IDTTL() time.Duration      { return orDefault(c.IDTokenTTL, DefaultIDTokenTTL) }
func (c *Client) CodeTTL() time.Duration    { return orDefault(c.AuthCodeTTL, DefaultAuthCodeTTL) }

// RefreshAbsoluteLifetime is how long a refresh token chain may live from
// the first issue. Absolute tokens never outlive their first expiry.
func (c *Client) RefreshAbsoluteLifetime() time.Duration {
	if c.RefreshTokenExpiration == RefreshTokenSliding {
		return max(c.RefreshTTL(), MaxSlidingRefreshTokenLifetime)
	}
	return c.RefreshTTL()
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
