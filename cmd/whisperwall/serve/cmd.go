package serve

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/datastore"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	ww "github.com/panyam/whisperwall"
	"github.com/panyam/whisperwall/internal/httpserver"
	fsstore "github.com/panyam/whisperwall/stores/fs"
	gaestore "github.com/panyam/whisperwall/stores/gae"
	gormstore "github.com/panyam/whisperwall/stores/gorm"
)

func Cmd() *cli.Command {
	bindAddr := ":3000"
	var storeDSN string
	var sessionSecret string
	var googleClientId, googleClientSecret, googleCallbackURL string

	return &cli.Command{
		Name:  "serve",
		Usage: "Start the whisperwall web application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address (or bare port) to listen on",
				Value:       bindAddr,
				EnvVars:     []string{"WHISPERWALL_ADDR", "PORT"},
				Destination: &bindAddr,
			},
			&cli.StringFlag{
				Name:        "store",
				Usage:       "User store DSN: sqlite://<path>, datastore://<project>[/<namespace>] or fs://<dir>",
				EnvVars:     []string{"WHISPERWALL_STORE"},
				Destination: &storeDSN,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "session-secret",
				Usage:       "Secret used to sign session auth tokens",
				EnvVars:     []string{"WHISPERWALL_SESSION_SECRET"},
				Destination: &sessionSecret,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "google-client-id",
				EnvVars:     []string{"WHISPERWALL_GOOGLE_CLIENT_ID"},
				Destination: &googleClientId,
			},
			&cli.StringFlag{
				Name:        "google-client-secret",
				EnvVars:     []string{"WHISPERWALL_GOOGLE_CLIENT_SECRET"},
				Destination: &googleClientSecret,
			},
			&cli.StringFlag{
				Name:        "google-callback-url",
				EnvVars:     []string{"WHISPERWALL_GOOGLE_CALLBACK_URL"},
				Destination: &googleCallbackURL,
			},
		},
		Action: func(ctx *cli.Context) error {
			// a missing or malformed store DSN aborts startup: the app must
			// never run against a degraded store
			store, err := openStore(ctx.Context, storeDSN)
			if err != nil {
				return fmt.Errorf("cannot open user store %q: %w", storeDSN, err)
			}

			app := ww.New(store, ww.Config{
				SessionSecret:      sessionSecret,
				GoogleClientID:     googleClientId,
				GoogleClientSecret: googleClientSecret,
				GoogleCallbackURL:  googleCallbackURL,
			}, log.Logger)

			if !strings.Contains(bindAddr, ":") {
				// a bare port (e.g. from PORT) means "any interface"
				bindAddr = ":" + bindAddr
			}
			return httpserver.Serve(ctx.Context, bindAddr, app.Handler())
		},
	}
}

func openStore(ctx context.Context, dsn string) (ww.UserStore, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite DSN needs a path")
		}
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, err
		}
		return gormstore.NewUserStore(db), nil

	case strings.HasPrefix(dsn, "datastore://"):
		rest := strings.TrimPrefix(dsn, "datastore://")
		project, namespace, _ := strings.Cut(rest, "/")
		if project == "" {
			return nil, fmt.Errorf("datastore DSN needs a project id")
		}
		client, err := datastore.NewClient(ctx, project)
		if err != nil {
			return nil, err
		}
		return gaestore.NewUserStore(client, namespace), nil

	case strings.HasPrefix(dsn, "fs://"):
		dir := strings.TrimPrefix(dsn, "fs://")
		if dir == "" {
			return nil, fmt.Errorf("fs DSN needs a directory")
		}
		return fsstore.NewFSUserStore(dir), nil
	}
	return nil, fmt.Errorf("unsupported store DSN scheme")
}
