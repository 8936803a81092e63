package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-idp/pkg/authsdk"
	"github.com/caarlos0/env/v11"
)

const (
	KeyStorageEphemeral  = "ephemeral"
	KeyStoragePersistent = "persistent"
)

type Config struct {
	Issuer       string `env:"IDP_ISSUER" envDefault:"http://localhost:8080"`
	Port         int    `env:"PORT" envDefault:"8080"`
	DatabaseFile string `env:"IDP_DATABASE_FILE" envDefault:"idp.db"`
	PepperFile   string `env:"IDP_PEPPER_FILE" envDefault:"pepper"`

	KeyStorageMode string        `env:"IDP_KEY_STORAGE_MODE" envDefault:"ephemeral"` // ephemeral or persistent
	MasterKeyPath  string        `env:"IDP_MASTER_KEY_PATH"`                         // persistent mode only
	RSABits        int           `env:"IDP_RSA_BITS"`                                // 0 lets the key manager pick
	NumKeys        int           `env:"IDP_NUM_KEYS"`
	KeyGracePeriod time.Duration `env:"IDP_KEY_GRACE_PERIOD" envDefault:"720h"`

	// VerifyIDTokenHint checks the signature of id_token_hint at end-session.
	VerifyIDTokenHint bool `env:"IDP_VERIFY_ID_TOKEN_HINT" envDefault:"true"`

	// Both default to pages served by the IdP itself.
	DeviceVerificationURI string `env:"IDP_DEVICE_VERIFICATION_URI"`
	DeviceSuccessURL      string `env:"IDP_DEVICE_SUCCESS_URL"`

	// SessionKey authenticates the federation state cookie. Federation is
	// disabled without it.
	SessionKey string `env:"IDP_SESSION_KEY"`

	// RedisURL moves the token blacklist to Redis when set.
	RedisURL string `env:"REDIS_URL"`

	Upstream UpstreamConfig `envPrefix:"IDP_UPSTREAM_"`

	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// UpstreamConfig describes one upstream OpenID Connect provider.
type UpstreamConfig struct {
	Name         string   `env:"NAME"`
	Issuer       string   `env:"ISSUER"`
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

func (u UpstreamConfig) Enabled() bool { return u.Name != "" }

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Issuer = strings.TrimSuffix(cfg.Issuer, "/")

	if cfg.DeviceVerificationURI == "" {
		cfg.DeviceVerificationURI = cfg.Issuer + authsdk.PathDevice
	}
	if cfg.DeviceSuccessURL == "" {
		cfg.DeviceSuccessURL = cfg.Issuer + authsdk.PathDeviceSuccess
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.KeyStorageMode {
	case KeyStorageEphemeral, KeyStoragePersistent:
	default:
		errs = append(errs, fmt.Errorf("IDP_KEY_STORAGE_MODE: unknown mode %q", c.KeyStorageMode))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT: %d out of range", c.Port))
	}
	if c.Upstream.Enabled() {
		if c.Upstream.Issuer == "" || c.Upstream.ClientID == "" {
			errs = append(errs, errors.New("IDP_UPSTREAM_ISSUER and IDP_UPSTREAM_CLIENT_ID are required with IDP_UPSTREAM_NAME"))
		}
		if len(c.SessionKey) < 32 {
			errs = append(errs, errors.New("IDP_SESSION_KEY must be at least 32 bytes when an upstream is configured"))
		}
	}

	return errors.Join(errs...)
}

// UpstreamRedirectURL is where the upstream sends the user back to.
func (c Config) UpstreamRedirectURL() string {
	return c.Issuer + authsdk.PathFederation + c.Upstream.Name + "/callback"
}
