package idp_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and shared fixtures for the identity provider end-to-end
 * tests. The provider is seeded through idpctl inside the container.
 */

const (
	testImageName = "bartab-idp-test:latest"

	redirectURI       = "http://localhost/callback"
	postLogoutURI     = "http://localhost/bye"
	webClientID       = "web"
	webClientSecret   = "web-secret"
	spaClientID       = "spa"
	serviceClientID   = "service"
	serviceSecret     = "service-secret"
	tvClientID        = "tv"
	aliceUsername     = "alice"
	alicePassword     = "Alice123!"
	aliceEmail        = "alice@example.com"
	seedFileInImage   = "/data/seed.yaml"
	defaultRedisImage = "redis:7-alpine"
)

const seedDocument = `
api_resources:
  - name: tabs
    display_name: Tabs API
    scopes:
      - name: tabs.read
      - name: tabs.write

clients:
  - id: web
    secret: web-secret
    redirect_uris: [http://localhost/callback]
    post_logout_redirect_uris: [http://localhost/bye]
    scopes: [openid, profile, email, offline_access, tabs.read]
    grant_types: [authorization_code, refresh_token, password]
    require_pkce: true
  - id: spa
    redirect_uris: [http://localhost/callback]
    scopes: [openid, profile, tabs.read]
    grant_types: [authorization_code]
    response_types: [token, id_token, "id_token token"]
  - id: service
    secret: service-secret
    scopes: [tabs.read, tabs.write]
    grant_types: [client_credentials]
  - id: tv
    redirect_uris: [http://localhost/callback]
    scopes: [openid, profile]
    grant_types: ["urn:ietf:params:oauth:grant-type:device_code"]

users:
  - username: alice
    password: Alice123!
    roles: [admin]
    claims:
      email: alice@example.com
      name: Alice
`

// TestMain builds the image once for the whole suite and removes it after.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building identity provider Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up identity provider Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // the image may not exist
}

// relaxedLimits keeps the suites from tripping the production rate limits.
var relaxedLimits = map[string]string{
	"RATELIMIT_STRICT_REQUESTS":   "1000",
	"RATELIMIT_STRICT_WINDOW_SEC": "60",
	"RATELIMIT_STRICT_BURST":      "1000",
	"RATELIMIT_MODERATE_REQUESTS": "1000",
	"RATELIMIT_MODERATE_BURST":    "1000",
}

// setupIDPContainer starts a seeded provider and returns its base URL.
// extraEnv is applied last.
func setupIDPContainer(t *testing.T, extraEnv ...map[string]string) string {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"IDP_DATABASE_FILE": "/data/idp.db",
		"IDP_PEPPER_FILE":   "/data/pepper",
		"IDP_NUM_KEYS":      "1",
		"IDP_RSA_BITS":      "2048",
		"ENV":               "test",
		"LOG_LEVEL":         "info",
		"LOG_FORMAT":        "json",
	}
	for _, extra := range extraEnv {
		for k, v := range extra {
			env[k] = v
		}
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		Files: []testcontainers.ContainerFile{{
			Reader:            strings.NewReader(seedDocument),
			ContainerFilePath: seedFileInImage,
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForHTTP(authsdk.PathLivez).
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	code, out, err := container.Exec(ctx, []string{"idpctl", "seed", seedFileInImage})
	require.NoError(t, err)
	if code != 0 {
		b, _ := io.ReadAll(out)
		t.Fatalf("idpctl seed exited with %d: %s", code, b)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

// setupRedisContainer starts Redis and returns a URL the provider container
// can reach over the default bridge network.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        defaultRedisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis: %v", err)
		}
	})

	ip, err := container.ContainerIP(ctx)
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:6379/0", ip)
}

func webClient(baseURL string) *authsdk.SDKClient {
	return authsdk.NewSDKClient(baseURL, webClientID, webClientSecret)
}

// loginAlice runs the authorization code flow with PKCE for alice.
func loginAlice(t *testing.T, baseURL string, scopes ...string) *authsdk.Session {
	t.Helper()

	session, err := webClient(baseURL).AuthorizeAndExchange(t.Context(), redirectURI, aliceUsername, alicePassword, "", scopes)
	require.NoError(t, err, "login should succeed")
	return session
}

// assertTokenResponse verifies the fields every token response carries.
func assertTokenResponse(t *testing.T, resp *authsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "access token should not be empty")
	require.Equal(t, "Bearer", resp.TokenType)
	require.Positive(t, resp.ExpiresIn)
}

// assertOAuth2Error checks err carries the given OAuth2 error code.
func assertOAuth2Error(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)

	var oe *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oe, "got %v", err)
	require.Equal(t, code, oe.Code, "got %v", err)
}
