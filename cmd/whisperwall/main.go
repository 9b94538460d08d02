package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/panyam/whisperwall/cmd/whisperwall/serve"
	"github.com/panyam/whisperwall/internal/logutil"
)

func main() {
	app := &cli.App{
		Name:  "whisperwall",
		Usage: "Anonymous secrets, posted by authenticated users",
		Commands: []*cli.Command{
			serve.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = logutil.WithLogger(ctx, log.Logger)
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
