package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to a YAML config file",
		Sources: cli.EnvVars("TIMEOFF_CONFIG"),
	}
	debugFlag = &cli.BoolFlag{
		Name:        "debug",
		Usage:       "verbose development logging",
		Sources:     cli.EnvVars("TIMEOFF_DEBUG"),
		HideDefault: true,
	}
	dsnFlag = &cli.StringFlag{
		Name:    "dsn",
		Usage:   "database DSN, overrides database.dsn",
		Sources: cli.EnvVars("TIMEOFF_DSN"),
	}
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "timeoff",
		Usage: "time-off requests, reviews and notifications",
		Flags: []cli.Flag{configFlag, debugFlag},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the REST API",
				Flags: []cli.Flag{
					dsnFlag,
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "listen address, overrides server.addr",
						Sources: cli.EnvVars("TIMEOFF_ADDR"),
					},
					&cli.StringFlag{
						Name:    "secret",
						Usage:   "token signing secret, overrides auth.secret",
						Sources: cli.EnvVars("TIMEOFF_SECRET"),
					},
				},
				Action: serveAction,
			},
			{
				Name:   "migrate",
				Usage:  "create missing tables",
				Flags:  []cli.Flag{dsnFlag},
				Action: migrateAction,
			},
			{
				Name:   "seed",
				Usage:  "create a demo organisation",
				Flags:  []cli.Flag{dsnFlag},
				Action: seedAction,
			},
			{
				Name:  "watch",
				Usage: "run the client stores against a server and print their state",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "user to sign in as",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "base-url",
						Usage:   "API base URL, overrides client.base_url",
						Sources: cli.EnvVars("TIMEOFF_BASE_URL"),
					},
					&cli.DurationFlag{
						Name:  "every",
						Usage: "how often to print",
						Value: 10 * time.Second,
					},
				},
				Action: watchAction,
			},
		},
	}
}

func migrateAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	db, err := rt.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	rt.Logger.Info("schema ready")
	return nil
}
