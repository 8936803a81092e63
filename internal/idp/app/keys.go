package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
)

// InitSigningKeys builds the KeyManager for the configured storage mode.
//
// Storage modes:
//   - "ephemeral": keys are generated on startup and kept in memory only.
//     Every issued token stops verifying when the process restarts.
//   - "persistent": keys are sealed with the master key and stored in the
//     database, so tokens survive restarts. Retired keys keep verifying for
//     the grace period.
func InitSigningKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	}

	switch cfg.KeyStorageMode {
	case KeyStoragePersistent:
		logger.Info("initializing persistent key manager",
			"num_keys", cfg.NumKeys,
			"grace_period", cfg.KeyGracePeriod,
		)

		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:       store.NewKeyStoreAdapter(db),
			RSABits:     cfg.RSABits,
			NumKeys:     cfg.NumKeys,
			GracePeriod: cfg.KeyGracePeriod,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumSigners(),
			"issuer", cfg.Issuer,
		)
		return km, nil

	default:
		logger.Info("initializing ephemeral key manager", "num_keys", cfg.NumKeys)

		km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
			RSABits: cfg.RSABits,
			NumKeys: cfg.NumKeys,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("generated ephemeral signing keys",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumSigners(),
			"issuer", cfg.Issuer,
		)
		logger.Warn("tokens issued before this start no longer verify")
		return km, nil
	}
}
