package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/metrics"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/service"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-idp/pkg/httpx"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
	"github.com/gorilla/sessions"

	_ "github.com/aussiebroadwan/bartab-idp/api/idp" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Pinger is a dependency /readyz checks besides the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics

	store store.Store

	AuthorizationService *service.AuthorizationService
	TokenService         *service.TokenService
	EndSessionService    *service.EndSessionService
	DeviceService        *service.DeviceService
	RevocationService    *service.RevocationService
	UserInfoService      *service.UserInfoService

	// Optional: federation routes are only registered when set.
	FederationService *service.FederationService
	Sessions          sessions.Store

	// Optional: a Redis blacklist reported by /readyz.
	Blacklist Pinger
}

func NewRouter(
	keys *jwtx.KeyManager,
	issuer, buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		metrics:      m,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerDevice()
	r.registerUserInfo()
	r.registerFederation()
	r.registerWellKnown()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			BarTab Identity Provider API
//	@version		0.1.0
//	@description	OpenID Connect and OAuth2 identity provider. Supports the authorization code (with PKCE),
//	@description	implicit, resource owner password, client credentials, refresh token and device authorization grants.
//	@description
//	@description				All tokens are signed using RS256 (RSA-SHA256) and can be verified using the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/bartab-idp
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h with the route metrics and the given middlewares.
func (r *Router) handle(pattern, route string, h http.Handler, mws ...httpx.Middleware) {
	mws = append([]httpx.Middleware{r.metrics.Middleware(route)}, mws...)
	r.Mux.Handle(pattern, httpx.Chain(h, mws...))
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizationService: r.AuthorizationService,
		FederationService:    r.FederationService,
	}

	// GET only reports login_required, POST checks credentials
	r.handle("GET "+authsdk.PathAuthorize, "authorize",
		http.HandlerFunc(authorizeHandler.HandleGet),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
	r.handle("POST "+authsdk.PathAuthorize, "authorize",
		http.HandlerFunc(authorizeHandler.HandlePost),
		httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
	)

	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.handle("POST "+authsdk.PathToken, "token",
		tokenHandler,
		httpx.RateLimitByIP(httpx.StrictLimit),
	)

	revokeHandler := &RevokeHandler{RevocationService: r.RevocationService}
	r.handle("POST "+authsdk.PathRevoke, "revoke",
		revokeHandler,
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)

	introspectHandler := &IntrospectHandler{RevocationService: r.RevocationService}
	r.handle("POST "+authsdk.PathIntrospect, "introspect",
		introspectHandler,
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)

	endSessionHandler := &EndSessionHandler{EndSessionService: r.EndSessionService}
	r.handle("GET "+authsdk.PathEndSession, "endsession",
		endSessionHandler,
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
	r.handle("POST "+authsdk.PathEndSession, "endsession",
		endSessionHandler,
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
}

func (r *Router) registerDevice() {
	h := &DeviceHandler{DeviceService: r.DeviceService}

	r.handle("POST "+authsdk.PathDeviceAuthorization, "device_authorization",
		http.HandlerFunc(h.HandleAuthorization),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)

	// User code lookups are guessable, keep them strict.
	r.handle("GET "+authsdk.PathDevice, "device",
		http.HandlerFunc(h.HandleVerify),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)
	r.handle("POST "+authsdk.PathDeviceCancel, "device_cancel",
		http.HandlerFunc(h.HandleCancel),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
	r.handle("GET "+authsdk.PathDeviceSuccess, "device_success",
		http.HandlerFunc(h.HandleSuccess),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
}

func (r *Router) registerUserInfo() {
	h := &UserInfoHandler{UserInfoService: r.UserInfoService}

	secured := []httpx.Middleware{
		httpx.RateLimitByIP(httpx.LenientLimit),
		httpx.AuthnMiddleware(r.UserInfoService), // audience userinfo, not revoked
		httpx.RequireScopes(service.ScopeOpenID),
	}

	r.handle("GET "+authsdk.PathUserInfo, "userinfo", h, secured...)
	r.handle("POST "+authsdk.PathUserInfo, "userinfo", h, secured...)
}

func (r *Router) registerFederation() {
	if r.FederationService == nil || r.Sessions == nil {
		return
	}

	h := &FederationHandler{
		FederationService:    r.FederationService,
		AuthorizationService: r.AuthorizationService,
		Sessions:             r.Sessions,
	}

	r.handle("GET "+authsdk.PathFederation+"{$}", "federation",
		http.HandlerFunc(h.HandleProviders),
		httpx.RateLimitByIP(httpx.PublicLimit),
	)
	r.handle("GET "+authsdk.PathFederation+"{provider}/login", "federation_login",
		http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
	r.handle("GET "+authsdk.PathFederation+"{provider}/callback", "federation_callback",
		http.HandlerFunc(h.HandleCallback),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
}

func (r *Router) registerWellKnown() {
	r.handle("GET "+authsdk.PathDiscovery, "discovery",
		DiscoveryHandler(r.issuer),
		httpx.RateLimitByIP(httpx.PublicLimit),
	)
	r.handle("GET "+authsdk.PathJWKS, "jwks",
		JWKSHandler(r.keys),
		httpx.RateLimitByIP(httpx.PublicLimit),
	)
}

func (r *Router) registerSystem() {
	// Monitoring systems poll these often.
	r.Mux.Handle("GET "+authsdk.PathLivez,
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET "+authsdk.PathReadyz,
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys, r.Blacklist),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
