package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/seed"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/service"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/redis"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/jwtx"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "create or upgrade the database schema",
	Action: func(c *cli.Context) error {
		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintln(c.App.Writer, "migrations applied")
		return nil
	},
}

var seedCommand = &cli.Command{
	Name:      "seed",
	Usage:     "register api resources, clients and users from a YAML file",
	ArgsUsage: "FILE",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return errors.New("seed: expected one seed file")
		}
		doc, err := seed.LoadFile(c.Args().First())
		if err != nil {
			return err
		}

		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()

		seeder := &seed.Seeder{
			Store:   db,
			Clients: &service.ClientService{Store: db},
			Users:   &service.UserService{Store: db, Issuer: c.String("issuer")},
		}
		res, err := seeder.Apply(c.Context, doc)
		if err != nil {
			return err
		}

		w := c.App.Writer
		for _, name := range res.Resources {
			fmt.Fprintf(w, "api resource %s created\n", name)
		}
		for _, cl := range res.Clients {
			if cl.Secret != "" {
				fmt.Fprintf(w, "client %s created, secret: %s\n", cl.ID, cl.Secret)
				continue
			}
			fmt.Fprintf(w, "client %s created\n", cl.ID)
		}
		for _, u := range res.Users {
			fmt.Fprintf(w, "user %s created (id %d)\n", u.Username, u.ID)
			if u.TOTPURL != "" {
				fmt.Fprintf(w, "  totp: %s\n", u.TOTPURL)
			}
		}
		if res.Skipped > 0 {
			fmt.Fprintf(w, "%d existing entries skipped\n", res.Skipped)
		}
		return nil
	},
}

var sweepCommand = &cli.Command{
	Name:  "sweep",
	Usage: "remove expired grants, devices, blacklist entries and signing keys once",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "sweep the Redis blacklist instead of the database one",
			EnvVars: []string{"REDIS_URL"},
		},
	},
	Action: func(c *cli.Context) error {
		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()

		hk := &service.HousekeepingService{Store: db, Logger: slog.Default()}
		if url := c.String("redis-url"); url != "" {
			bl, err := redis.NewBlacklist(c.Context, url)
			if err != nil {
				return err
			}
			defer bl.Close()
			hk.Blacklist = bl
		}

		res, err := hk.Sweep(c.Context)
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(res); encErr != nil {
			return encErr
		}
		return err
	},
}

var hashPasswordCommand = &cli.Command{
	Name:      "hash-password",
	Usage:     "print the stored form of a password or client secret",
	ArgsUsage: "[PASSWORD]",
	Description: "Reads the password from standard input when no argument is given.\n" +
		"The pepper file must be the one the server uses.",
	Action: func(c *cli.Context) error {
		password := c.Args().First()
		if password == "" {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return errors.New("hash-password: empty password")
		}

		hash, err := cryptox.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, hash)
		return nil
	},
}

var keygenCommand = &cli.Command{
	Name:  "keygen",
	Usage: "write a new master key file for persistent signing keys",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Usage: "file to write", Required: true},
		&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
	},
	Action: func(c *cli.Context) error {
		path := c.String("out")
		flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if c.Bool("force") {
			flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		}

		f, err := os.OpenFile(path, flags, 0o600)
		if err != nil {
			return fmt.Errorf("keygen: %w", err)
		}
		defer f.Close()

		key, err := cryptox.GenerateToken(32)
		if err != nil {
			return err
		}
		if _, err := f.WriteString(key); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "master key written to %s\n", path)
		return nil
	},
}

var keysCommand = &cli.Command{
	Name:  "keys",
	Usage: "list persisted signing keys that still verify tokens",
	Action: func(c *cli.Context) error {
		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()

		keys, err := (&service.KeyRotationService{Store: db}).ListSigningKeys(c.Context)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KID\tSTATUS\tCREATED\tEXPIRES")
		for _, k := range keys {
			status := "active"
			expires := "-"
			if !k.IsActive() {
				status = "retired"
				expires = k.ExpiresAt.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.Kid, status, k.CreatedAt.Format(time.RFC3339), expires)
		}
		return tw.Flush()
	},
}

var rotateKeysCommand = &cli.Command{
	Name:  "rotate-keys",
	Usage: "add a signing key, optionally retiring the current ones",
	Description: "Running servers pick the new key up on their next restart.\n" +
		"Retired keys keep verifying tokens for the grace period.",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "retire-existing", Usage: "retire every active key after adding the new one"},
		&cli.IntFlag{Name: "bits", Value: 4096, EnvVars: []string{"IDP_RSA_BITS"}},
		&cli.DurationFlag{Name: "grace", Value: jwtx.DefaultKeyGracePeriod, EnvVars: []string{"IDP_KEY_GRACE_PERIOD"}},
	},
	Action: func(c *cli.Context) error {
		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()

		svc, err := rotationService(c, db)
		if err != nil {
			return err
		}
		res, err := svc.RotateKey(c.Context, service.RotateKeyRequest{RetireExisting: c.Bool("retire-existing")})
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "new key %s, %d active\n", res.NewKid, res.ActiveKeys)
		for _, kid := range res.RetiredKids {
			fmt.Fprintf(c.App.Writer, "retired %s\n", kid)
		}
		return nil
	},
}

var retireKeyCommand = &cli.Command{
	Name:      "retire-key",
	Usage:     "stop a signing key from signing new tokens",
	ArgsUsage: "KID",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "grace", Value: jwtx.DefaultKeyGracePeriod, EnvVars: []string{"IDP_KEY_GRACE_PERIOD"}},
	},
	Action: func(c *cli.Context) error {
		kid := c.Args().First()
		if kid == "" {
			return errors.New("retire-key: expected a key id")
		}

		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()

		svc := &service.KeyRotationService{Store: db, GracePeriod: c.Duration("grace")}
		if err := svc.RetireKey(c.Context, kid); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "retired %s\n", kid)
		return nil
	},
}

// rotationService loads the persisted keys without topping them up, so
// rotating an empty database creates exactly one key.
func rotationService(c *cli.Context, db store.Store) (*service.KeyRotationService, error) {
	active, err := db.SigningKeys().ListActiveSigningKeys(c.Context)
	if err != nil {
		return nil, err
	}

	var km *jwtx.KeyManager
	if len(active) == 0 {
		km = &jwtx.KeyManager{KeySet: jwtx.NewKeySet()}
	} else {
		km, err = jwtx.NewPersistentKeyManager(c.Context, jwtx.PersistentKeyManagerOptions{
			Store:       store.NewKeyStoreAdapter(db),
			NumKeys:     len(active),
			GracePeriod: c.Duration("grace"),
		})
		if err != nil {
			return nil, err
		}
	}

	return &service.KeyRotationService{
		Store:       db,
		KeyManager:  km,
		RSABits:     c.Int("bits"),
		GracePeriod: c.Duration("grace"),
	}, nil
}
