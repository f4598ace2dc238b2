package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/kefi/internal/buildinfo"
	"github.com/dmitrijs2005/kefi/internal/client/cli"
	"github.com/dmitrijs2005/kefi/internal/client/client"
	"github.com/dmitrijs2005/kefi/internal/client/config"
	"github.com/dmitrijs2005/kefi/internal/client/password"
	"github.com/dmitrijs2005/kefi/internal/client/services"
	"github.com/dmitrijs2005/kefi/internal/client/session"
	"github.com/dmitrijs2005/kefi/internal/client/storage"
	"github.com/dmitrijs2005/kefi/internal/client/tokenstore"
	"github.com/dmitrijs2005/kefi/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	durable, err := storage.OpenDurable(ctx, cfg.StorePath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer durable.Close()

	store := tokenstore.New(durable, storage.NewMemoryArea())

	api, err := client.New(cfg.APIBaseURL, store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(logger.With("component", "api")),
	)
	if err != nil {
		log.Fatalf("%v", err)
	}

	policy, err := password.Named(cfg.PasswordPolicy)
	if err != nil {
		log.Fatalf("%v", err)
	}
	svc := services.NewAuthService(api, store, policy, logger)

	router := cli.NewRouter(os.Stdout)
	mgr := session.NewManager(svc, store, router, logger, session.Options{})
	defer mgr.Close()
	api.OnSessionExpired(mgr.SessionExpired)

	app := cli.NewApp(mgr, svc, router, os.Stdin, os.Stdout, logger)
	app.Run(ctx)
}
