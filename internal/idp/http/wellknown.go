package http

import (
	"net/http"
	"slices"
	"strings"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-idp/pkg/httpx"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
)

// DiscoveryHandler serves the OpenID Provider Metadata.
//
//	@Summary		OpenID Provider Metadata
//	@Description	OpenID Connect Discovery 1.0 document.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.DiscoveryDocument
//	@Router			/.well-known/openid-configuration [get].
func DiscoveryHandler(issuer string) http.HandlerFunc {
	doc := discoveryDocument(issuer)
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}

func discoveryDocument(issuer string) authsdk.DiscoveryDocument {
	base := strings.TrimSuffix(issuer, "/")

	scopes := make([]string, 0, len(domain.IdentityScopes))
	claims := []string{"sub", "iss", "aud", "exp", "iat", "nonce", "sid", "amr", "at_hash"}
	for scope, types := range domain.IdentityScopes {
		scopes = append(scopes, scope)
		for _, ct := range types {
			claims = append(claims, string(ct))
		}
	}
	slices.Sort(scopes)

	return authsdk.DiscoveryDocument{
		Issuer:                      issuer,
		AuthorizationEndpoint:       base + authsdk.PathAuthorize,
		TokenEndpoint:               base + authsdk.PathToken,
		UserInfoEndpoint:            base + authsdk.PathUserInfo,
		JWKSURI:                     base + authsdk.PathJWKS,
		RevocationEndpoint:          base + authsdk.PathRevoke,
		IntrospectionEndpoint:       base + authsdk.PathIntrospect,
		DeviceAuthorizationEndpoint: base + authsdk.PathDeviceAuthorization,
		EndSessionEndpoint:          base + authsdk.PathEndSession,
		ResponseTypesSupported:      []string{"code", "token", "id_token", "id_token token"},
		GrantTypesSupported: []string{
			"authorization_code", "refresh_token", "password", "client_credentials", authsdk.GrantTypeDeviceCode,
		},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{jwtx.AlgorithmRS256},
		ScopesSupported:                   scopes,
		ClaimsSupported:                   claims,
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
		CodeChallengeMethodsSupported:     []string{"S256", "plain"},
	}
}

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify JWTs.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.KeySet.PublicJWKS()))
	}
}
