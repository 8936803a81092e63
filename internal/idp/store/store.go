package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers implement it and expose
// sub-repositories so a Tx-scoped store can hand out the same repos.
type Store interface {
	Clients() Clients
	Users() Users
	PersistentGrants() PersistentGrants
	Devices() Devices
	BlacklistedTokens() BlacklistedTokens
	APIResources() APIResources
	FederatedIdentities() FederatedIdentities
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction. A non-nil error from fn rolls it back,
	// otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	// GetClientByID returns the client with its secrets.
	GetClientByID(ctx context.Context, id string) (domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)

	// CreateClient inserts the client and every secret it carries.
	CreateClient(ctx context.Context, c domain.Client) error
	UpdateClient(ctx context.Context, c domain.Client) error
	DeleteClient(ctx context.Context, id string) error

	AddClientSecret(ctx context.Context, s domain.ClientSecret) error
	DeleteClientSecret(ctx context.Context, clientID, secretID string) error

	IsEmpty(ctx context.Context) (bool, error)
}

type Users interface {
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts the user with roles and claims and returns the new id.
	CreateUser(ctx context.Context, u domain.User) (int64, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateMFASecret(ctx context.Context, id int64, secret *string) error

	// SetClaims replaces every claim of the user.
	SetClaims(ctx context.Context, id int64, claims map[domain.ClaimType]string) error
	SetRoles(ctx context.Context, id int64, roles []string) error
	DeleteUser(ctx context.Context, id int64) error

	IsEmpty(ctx context.Context) (bool, error)
}

type PersistentGrants interface {
	// CreateGrant fails with ErrAlreadyExists on a key collision.
	CreateGrant(ctx context.Context, g domain.PersistentGrant) error
	GetGrant(ctx context.Context, key string) (domain.PersistentGrant, error)

	// Exists reports an unexpired grant with the given data and type.
	Exists(ctx context.Context, data string, gt domain.GrantType, now time.Time) (bool, error)

	// Redeem atomically deletes and returns the grant with the key and type.
	Redeem(ctx context.Context, key string, gt domain.GrantType) (domain.PersistentGrant, error)

	// RedeemByData atomically deletes and returns the grant matching data.
	RedeemByData(ctx context.Context, data string, gt domain.GrantType) (domain.PersistentGrant, error)

	DeleteGrant(ctx context.Context, key string) error

	// DeleteByClientAndSubject returns the number of grants removed.
	DeleteByClientAndSubject(ctx context.Context, clientID string, subjectID int64) (int64, error)
	ListBySubject(ctx context.Context, subjectID int64) ([]domain.PersistentGrant, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type Devices interface {
	// CreateDevice fails with ErrAlreadyExists when the device or user code
	// is already taken.
	CreateDevice(ctx context.Context, d domain.Device) error
	GetByDeviceCode(ctx context.Context, fingerprint string) (domain.Device, error)
	GetByUserCode(ctx context.Context, userCode string) (domain.Device, error)
	TouchPolled(ctx context.Context, fingerprint string, at time.Time) error
	DeleteByUserCode(ctx context.Context, userCode string) error
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type BlacklistedTokens interface {
	// Add is idempotent for a fingerprint already present.
	Add(ctx context.Context, t domain.BlacklistedToken) error
	Contains(ctx context.Context, fingerprint string, now time.Time) (bool, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type APIResources interface {
	CreateResource(ctx context.Context, r domain.APIResource) error
	ListResources(ctx context.Context) ([]domain.APIResource, error)

	// FindByScopes returns the resources exposing any of the scopes.
	FindByScopes(ctx context.Context, scopes []string) ([]domain.APIResource, error)
	DeleteResource(ctx context.Context, name string) error
}

type FederatedIdentities interface {
	GetByProviderSubject(ctx context.Context, provider, subject string) (domain.FederatedIdentity, error)
	Link(ctx context.Context, fi domain.FederatedIdentity) error
	ListByUser(ctx context.Context, userID int64) ([]domain.FederatedIdentity, error)
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error
	GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error)

	// ListActiveSigningKeys returns the keys that may sign, newest first.
	ListActiveSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// ListAllSigningKeys returns every key that still verifies, newest first.
	ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// RetireSigningKey stops a key signing; it verifies until expiresAt.
	RetireSigningKey(ctx context.Context, kid string, retiredAt, expiresAt time.Time) error
	DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error)
}
