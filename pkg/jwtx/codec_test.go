package jwtx_test

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://idp.example.com"

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func testAccessClaims(ttl time.Duration) *jwtx.AccessClaims {
	return &jwtx.AccessClaims{
		RegisteredClaims: jwtx.NewRegisteredClaims(testIssuer, "42", []string{"userinfo", "introspection", "revoke"}, ttl, time.Now()),
		ClientID:         "test_client",
		Scope:            "openid profile",
		AMR:              []string{"pwd"},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	in := testAccessClaims(time.Minute)

	token, err := jwtx.Encode(in, key, "kid-1")
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(token, "."))

	var out jwtx.AccessClaims
	require.NoError(t, jwtx.Decode(token, &key.PublicKey, &out, jwtx.WithAudience("userinfo"), jwtx.WithIssuer(testIssuer)))

	require.Equal(t, "42", out.Subject)
	require.Equal(t, testIssuer, out.Issuer)
	require.Equal(t, "test_client", out.ClientID)
	require.Equal(t, "openid profile", out.Scope)
	require.Equal(t, []string{"pwd"}, out.AMR)
	require.ElementsMatch(t, []string{"userinfo", "introspection", "revoke"}, out.Audience)
	require.NotEmpty(t, out.ID)
	require.NotNil(t, out.IssuedAt)
	require.NotNil(t, out.ExpiresAt)
}

func TestDecode_BearerPrefix(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	token, err := jwtx.Encode(testAccessClaims(time.Minute), key, "")
	require.NoError(t, err)

	var out jwtx.AccessClaims
	require.NoError(t, jwtx.Decode("Bearer "+token, &key.PublicKey, &out))
	require.Equal(t, "42", out.Subject)
}

func TestDecode_Failures(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	other := newRSAKey(t)

	valid, err := jwtx.Encode(testAccessClaims(time.Minute), key, "kid")
	require.NoError(t, err)
	expired, err := jwtx.Encode(testAccessClaims(-time.Minute), key, "kid")
	require.NoError(t, err)
	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, testAccessClaims(time.Minute)).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		key     *rsa.PublicKey
		opts    []jwtx.DecodeOption
		wantErr error
	}{
		{"mismatched key", valid, &other.PublicKey, nil, jwtx.ErrTokenDecode},
		{"garbage", "not.a.jwt", &key.PublicKey, nil, jwtx.ErrTokenDecode},
		{"empty", "", &key.PublicKey, nil, jwtx.ErrTokenDecode},
		{"wrong algorithm", hs256, &key.PublicKey, nil, jwtx.ErrTokenDecode},
		{"wrong audience", valid, &key.PublicKey, []jwtx.DecodeOption{jwtx.WithAudience("other")}, jwtx.ErrAudience},
		{"wrong issuer", valid, &key.PublicKey, []jwtx.DecodeOption{jwtx.WithIssuer("https://evil")}, jwtx.ErrIssuer},
		{"expired", expired, &key.PublicKey, nil, jwtx.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out jwtx.AccessClaims
			err := jwtx.Decode(tt.token, tt.key, &out, tt.opts...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode_AudienceErrorIsDecodeError(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	token, err := jwtx.Encode(testAccessClaims(time.Minute), key, "")
	require.NoError(t, err)

	var out jwtx.AccessClaims
	err = jwtx.Decode(token, &key.PublicKey, &out, jwtx.WithAudience("chat"))
	require.ErrorIs(t, err, jwtx.ErrTokenDecode)
	require.ErrorIs(t, err, jwtx.ErrAudience)
}

func TestDecode_WithoutSignatureAndExpiry(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	other := newRSAKey(t)
	token, err := jwtx.Encode(testAccessClaims(-time.Hour), key, "")
	require.NoError(t, err)

	var out jwtx.AccessClaims
	err = jwtx.Decode(token, &other.PublicKey, &out, jwtx.WithoutSignature())
	require.ErrorIs(t, err, jwtx.ErrTokenExpired)

	err = jwtx.Decode(token, nil, &out, jwtx.WithoutSignature(), jwtx.WithoutExpiry())
	require.NoError(t, err)
	require.Equal(t, "42", out.Subject)

	// Unverified parsing still rejects junk.
	err = jwtx.Decode("a.b", nil, &out, jwtx.WithoutSignature())
	require.ErrorIs(t, err, jwtx.ErrTokenDecode)
}

func TestDecode_Leeway(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t)
	token, err := jwtx.Encode(testAccessClaims(-5*time.Second), key, "")
	require.NoError(t, err)

	var out jwtx.AccessClaims
	require.ErrorIs(t, jwtx.Decode(token, &key.PublicKey, &out), jwtx.ErrTokenExpired)
	require.NoError(t, jwtx.Decode(token, &key.PublicKey, &out, jwtx.WithLeeway(time.Minute)))
}
