package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite/gen"
)

type txStore struct {
	tx *sql.Tx
	q  *gen.Queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{
		tx: tx,
		q:  gen.New(tx),
	}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // the outer DB stays open

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Clients() store.Clients                     { return &clientsRepo{q: t.q} }
func (t *txStore) Users() store.Users                         { return &usersRepo{q: t.q} }
func (t *txStore) PersistentGrants() store.PersistentGrants   { return &grantsRepo{q: t.q} }
func (t *txStore) Devices() store.Devices                     { return &devicesRepo{q: t.q} }
func (t *txStore) BlacklistedTokens() store.BlacklistedTokens { return &blacklistRepo{q: t.q} }
func (t *txStore) APIResources() store.APIResources           { return &apiResourcesRepo{q: t.q} }
func (t *txStore) FederatedIdentities() store.FederatedIdentities {
	return &federatedRepo{q: t.q}
}
func (t *txStore) SigningKeys() store.SigningKeys { return &signingKeysRepo{q: t.q} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx
