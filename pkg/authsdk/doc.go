/*
Package authsdk is a client SDK for the BarTab identity provider.

# Overview

An SDKClient acts for one registered OAuth2 client. It runs the grant types
the provider supports and reads its public endpoints. Authentication returns
a Session, which keeps the tokens and refreshes the access token when it
expires.

	client := authsdk.NewSDKClient("https://id.example.com", "my-client", "secret")

	doc, err := client.GetDiscovery(ctx)
	jwks, err := client.GetJWKS(ctx)

# Grants

Resource owner password credentials:

	session, err := client.AuthenticateWithPassword(ctx, "alice", "pw", "", []string{"openid", "profile"})
	if errors.Is(err, authsdk.ErrMFARequired) {
		session, err = client.AuthenticateWithPassword(ctx, "alice", "pw", otpCode, scopes)
	}

Client credentials:

	session, err := client.AuthenticateWithClientCredentials(ctx, []string{"api"})

Authorization code with PKCE, driven by a browser:

	pkce := authsdk.GeneratePKCEChallenge()
	u := client.BuildAuthorizeURL(authsdk.AuthorizeParams{
		RedirectURI: "https://app.example.com/cb",
		Scopes:      []string{"openid"},
		State:       state,
		PKCE:        pkce,
	})
	// ... after the callback:
	code, state, err := authsdk.ParseAuthorizationCallback(callbackURL)
	tokens, err := client.ExchangeAuthorizationCode(ctx, code, redirectURI, pkce.Verifier)
	session := client.NewSessionFromTokens(tokens)

OAuth2Config returns the same endpoints as a golang.org/x/oauth2 Config for
callers already built on that package.

Device authorization (RFC 8628):

	da, err := client.StartDeviceAuthorization(ctx, []string{"openid"})
	fmt.Println("visit", da.VerificationURIComplete)
	tokens, err := client.WaitForDeviceToken(ctx, da)

# Sessions

Session methods refresh the access token 30 seconds before it expires.
Sessions are safe for concurrent use.

	info, err := session.UserInfo(ctx)
	err = session.Revoke(ctx)
	redirect, err := session.Logout(ctx, "https://app.example.com/bye", "")

# Errors

Provider errors are returned as *OAuth2Error. They match the predefined
values with errors.Is on the error code, so a caller can test for
ErrInvalidGrant or ErrAuthorizationPending without inspecting the response.
*/
package authsdk
