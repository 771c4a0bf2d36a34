package main

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-timeoff/internal/commands"
	"github.com/goliatone/go-timeoff/internal/httpapi"
	"github.com/goliatone/go-timeoff/internal/inbox"
	"github.com/goliatone/go-timeoff/internal/workflow"
	"github.com/goliatone/go-timeoff/pkg/activity"
	"github.com/goliatone/go-timeoff/pkg/auth"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/storage"
)

var errSecretRequired = errors.New("serve: auth.secret (or --secret) is required")

func serveAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.Config
	if addr := cmd.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if secret := cmd.String("secret"); secret != "" {
		cfg.Auth.Secret = secret
	}
	if cfg.Auth.Secret == "" {
		return errSecretRequired
	}

	db, err := rt.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	providers := storage.NewBunProviders(db)

	hooks := activity.Hooks{activity.LogHook{Logger: rt.Logger.With(logger.Field{Key: "component", Value: "activity"})}}
	inboxSvc, err := inbox.NewService(inbox.Dependencies{
		Repository: providers.Notifications,
		Logger:     rt.Logger,
		Activity:   hooks,
	})
	if err != nil {
		return err
	}
	wf, err := workflow.NewService(workflow.Dependencies{
		Users:       providers.Users,
		Requests:    providers.Requests,
		Notifier:    inboxSvc,
		Transaction: providers.Transaction,
		Logger:      rt.Logger,
		Activity:    hooks,
	})
	if err != nil {
		return err
	}
	catalog, err := commands.NewCatalog(commands.Dependencies{Workflow: wf, Inbox: inboxSvc, Logger: rt.Logger})
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	srv, err := httpapi.NewServer(httpapi.Dependencies{
		Users:    providers.Users,
		Workflow: wf,
		Inbox:    inboxSvc,
		Commands: catalog,
		Issuer:   issuer,
		Logger:   rt.Logger,
	}, httpapi.Options{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(cfg.Server.Addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
