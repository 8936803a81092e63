// Package seed loads YAML documents describing API resources, clients and
// users and registers them through the services. Applying the same document
// twice is harmless: entries that already exist are skipped.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/service"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
	"gopkg.in/yaml.v3"
)

type Document struct {
	Resources []Resource `yaml:"api_resources"`
	Clients   []Client   `yaml:"clients"`
	Users     []User     `yaml:"users"`
}

type Resource struct {
	Name        string  `yaml:"name"`
	DisplayName string  `yaml:"display_name"`
	Scopes      []Scope `yaml:"scopes"`
}

type Scope struct {
	Name   string   `yaml:"name"`
	Claims []string `yaml:"claims"`
}

type Client struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Secret makes the client confidential. "generate" asks for a random
	// secret, which is reported once in the Result.
	Secret string `yaml:"secret"`

	RedirectURIs           []string `yaml:"redirect_uris"`
	PostLogoutRedirectURIs []string `yaml:"post_logout_redirect_uris"`
	Scopes                 []string `yaml:"scopes"`
	GrantTypes             []string `yaml:"grant_types"`
	ResponseTypes          []string `yaml:"response_types"`

	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	IDTokenTTL      time.Duration `yaml:"id_token_ttl"`
	AuthCodeTTL     time.Duration `yaml:"auth_code_ttl"`

	RefreshTokenUsage      string `yaml:"refresh_token_usage"`
	RefreshTokenExpiration string `yaml:"refresh_token_expiration"`
	RequirePKCE            bool   `yaml:"require_pkce"`
}

type User struct {
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Roles    []string          `yaml:"roles"`
	Claims   map[string]string `yaml:"claims"`
	TOTP     bool              `yaml:"totp"`
}

const generateSecret = "generate"

// Parse decodes one document. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("decode seed document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	doc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

var knownGrantTypes = []string{
	string(domain.GrantAuthorizationCode),
	string(domain.GrantRefreshToken),
	string(domain.GrantPassword),
	string(domain.GrantClientCredentials),
	string(domain.GrantDeviceCode),
}

// Validate checks what the store would otherwise reject half way through.
func (d *Document) Validate() error {
	var errs []error

	for i, r := range d.Resources {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("api_resources[%d]: name is required", i))
		}
		for _, s := range r.Scopes {
			if _, ok := domain.IdentityScopes[s.Name]; ok {
				errs = append(errs, fmt.Errorf("api_resources[%d]: scope %q is an identity scope", i, s.Name))
			}
		}
	}

	clientIDs := make(map[string]bool, len(d.Clients))
	for i, c := range d.Clients {
		if c.ID == "" {
			errs = append(errs, fmt.Errorf("clients[%d]: id is required", i))
		} else if clientIDs[c.ID] {
			errs = append(errs, fmt.Errorf("clients[%d]: duplicate id %q", i, c.ID))
		}
		clientIDs[c.ID] = true

		for _, gt := range c.GrantTypes {
			if !slices.Contains(knownGrantTypes, gt) {
				errs = append(errs, fmt.Errorf("clients[%d]: unknown grant type %q", i, gt))
			}
		}
		for _, rt := range c.ResponseTypes {
			if _, err := service.ParseResponseType(rt); err != nil {
				errs = append(errs, fmt.Errorf("clients[%d]: unknown response type %q", i, rt))
			}
		}
		switch domain.RefreshTokenUsage(c.RefreshTokenUsage) {
		case "", domain.RefreshTokenOneTimeOnly, domain.RefreshTokenReuse:
		default:
			errs = append(errs, fmt.Errorf("clients[%d]: unknown refresh_token_usage %q", i, c.RefreshTokenUsage))
		}
		switch domain.RefreshTokenExpiration(c.RefreshTokenExpiration) {
		case "", domain.RefreshTokenAbsolute, domain.RefreshTokenSliding:
		default:
			errs = append(errs, fmt.Errorf("clients[%d]: unknown refresh_token_expiration %q", i, c.RefreshTokenExpiration))
		}
	}

	for i, u := range d.Users {
		if u.Username == "" || u.Password == "" {
			errs = append(errs, fmt.Errorf("users[%d]: username and password are required", i))
		}
	}

	return errors.Join(errs...)
}

// Seeder applies documents. Users and Clients do the hashing and logging;
// resources go straight to the store.
type Seeder struct {
	Store   store.Store
	Clients *service.ClientService
	Users   *service.UserService
}

// Result reports what Apply created. Secrets and TOTP URLs are only ever
// shown here.
type Result struct {
	Resources []string
	Clients   []CreatedClient
	Users     []CreatedUser
	Skipped   int
}

type CreatedClient struct {
	ID     string
	Secret string // set for generated secrets
}

type CreatedUser struct {
	ID       int64
	Username string
	TOTPURL  string
}

// Apply registers everything in doc that does not exist yet.
func (s *Seeder) Apply(ctx context.Context, doc *Document) (*Result, error) {
	log := slogx.FromContext(ctx)
	res := &Result{}

	for _, r := range doc.Resources {
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			return tx.APIResources().CreateResource(ctx, r.domain())
		})
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			log.Debug("api resource exists, skipping", "name", r.Name)
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("api resource %q: %w", r.Name, err)
		default:
			res.Resources = append(res.Resources, r.Name)
		}
	}

	for _, c := range doc.Clients {
		req := service.CreateClientRequest{
			Client:       c.domain(),
			Confidential: c.Secret != "",
		}
		if c.Secret != generateSecret {
			req.Secret = c.Secret
		}

		created, secret, err := s.Clients.CreateClient(ctx, req)
		switch {
		case errors.Is(err, service.ErrClientExists):
			log.Debug("client exists, skipping", "client_id", c.ID)
			res.Skipped++
			continue
		case err != nil:
			return res, fmt.Errorf("client %q: %w", c.ID, err)
		}

		out := CreatedClient{ID: created.ID}
		if c.Secret == generateSecret {
			out.Secret = secret
		}
		res.Clients = append(res.Clients, out)
	}

	for _, u := range doc.Users {
		claims := make(map[domain.ClaimType]string, len(u.Claims))
		for k, v := range u.Claims {
			claims[domain.ClaimType(k)] = v
		}

		id, err := s.Users.Register(ctx, service.RegisterUserRequest{
			Username: u.Username,
			Password: u.Password,
			Roles:    u.Roles,
			Claims:   claims,
		})
		switch {
		case errors.Is(err, service.ErrUserExists):
			log.Debug("user exists, skipping", "username", u.Username)
			res.Skipped++
			continue
		case err != nil:
			return res, fmt.Errorf("user %q: %w", u.Username, err)
		}

		out := CreatedUser{ID: id, Username: u.Username}
		if u.TOTP {
			key, err := s.Users.EnableTOTP(ctx, id)
			if err != nil {
				return res, fmt.Errorf("user %q: %w", u.Username, err)
			}
			out.TOTPURL = key.URL()
		}
		res.Users = append(res.Users, out)
	}

	log.Info("seed applied",
		"resources", len(res.Resources),
		"clients", len(res.Clients),
		"users", len(res.Users),
		"skipped", res.Skipped,
	)
	return res, nil
}

func (r Resource) domain() domain.APIResource {
	out := domain.APIResource{Name: r.Name, DisplayName: r.DisplayName}
	for _, s := range r.Scopes {
		scope := domain.APIScope{Name: s.Name}
		for _, c := range s.Claims {
			scope.ClaimTypes = append(scope.ClaimTypes, domain.ClaimType(c))
		}
		out.Scopes = append(out.Scopes, scope)
	}
	return out
}

func (c Client) domain() domain.Client {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return domain.Client{
		ID:                     c.ID,
		Name:                   name,
		RedirectURIs:           c.RedirectURIs,
		PostLogoutRedirectURIs: c.PostLogoutRedirectURIs,
		Scopes:                 c.Scopes,
		GrantTypes:             c.GrantTypes,
		ResponseTypes:          c.ResponseTypes,
		AccessTokenTTL:         c.AccessTokenTTL,
		RefreshTokenTTL:        c.RefreshTokenTTL,
		IDTokenTTL:             c.IDTokenTTL,
		AuthCodeTTL:            c.AuthCodeTTL,
		RefreshTokenUsage:      domain.RefreshTokenUsage(c.RefreshTokenUsage),
		RefreshTokenExpiration: domain.RefreshTokenExpiration(c.RefreshTokenExpiration),
		RequirePKCE:            c.RequirePKCE,
	}
}
