// Command idpctl administers an identity provider database: migrations,
// seeding, sweeps and signing keys.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/app"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/bartab-idp/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-idp/pkg/slogx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "idpctl: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "idpctl",
		Usage:     "administer the BarTab identity provider",
		Version:   app.BuildVersion,
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite database file",
				Value:   "idp.db",
				EnvVars: []string{"IDP_DATABASE_FILE"},
			},
			&cli.StringFlag{
				Name:    "pepper",
				Usage:   "password pepper file",
				Value:   "pepper",
				EnvVars: []string{"IDP_PEPPER_FILE"},
			},
			&cli.StringFlag{
				Name:    "master-key",
				Usage:   "master key file sealing persisted signing keys",
				EnvVars: []string{"IDP_MASTER_KEY_PATH"},
			},
			&cli.StringFlag{
				Name:    "issuer",
				Usage:   "issuer shown in TOTP enrolment URLs",
				Value:   "bartab-idp",
				EnvVars: []string{"IDP_ISSUER"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			slogx.New(slogx.Config{
				Service: "idpctl",
				Version: app.BuildVersion,
				Level:   c.String("log-level"),
				Format:  "text",
				Output:  os.Stderr,
			})
			cryptox.SetPepperPath(c.String("pepper"))
			if p := c.String("master-key"); p != "" {
				cryptox.SetMasterKeyPath(p)
			}
			return nil
		},
		Commands: []*cli.Command{
			migrateCommand,
			seedCommand,
			sweepCommand,
			hashPasswordCommand,
			keygenCommand,
			keysCommand,
			rotateKeysCommand,
			retireKeyCommand,
		},
	}
}

// openStore opens the database named by --db and applies pending migrations.
func openStore(c *cli.Context) (*sqlite.Store, error) {
	db, err := app.OpenDatabase(c.String("db"))
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "file", c.String("db"))
	return db, nil
}
