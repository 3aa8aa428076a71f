package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/littlejohn/internal/cache"
	"github.com/dropDatabas3/littlejohn/internal/config"
	httpserver "github.com/dropDatabas3/littlejohn/internal/http"
	authctrl "github.com/dropDatabas3/littlejohn/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/littlejohn/internal/http/controllers/health"
	oidcctrl "github.com/dropDatabas3/littlejohn/internal/http/controllers/oidc"
	"github.com/dropDatabas3/littlejohn/internal/http/router"
	authsvc "github.com/dropDatabas3/littlejohn/internal/http/services/auth"
	oidcsvc "github.com/dropDatabas3/littlejohn/internal/http/services/oidc"
	"github.com/dropDatabas3/littlejohn/internal/keys"
	"github.com/dropDatabas3/littlejohn/internal/metrics"
	"github.com/dropDatabas3/littlejohn/internal/observability/logger"
	"github.com/dropDatabas3/littlejohn/internal/provider/discord"
	"github.com/dropDatabas3/littlejohn/internal/token"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "littlejohn:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env es opcional: en prod las vars vienen del entorno.
	_ = godotenv.Load()

	cfgPath := flag.String("config", os.Getenv("LITTLEJOHN_CONFIG"), "ruta al config YAML (opcional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "littlejohn",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	metrics.Register(prometheus.DefaultRegisterer)

	cacheClient, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer func() { _ = cacheClient.Close() }()

	provider := discord.New(cfg.Discord.ClientID, cfg.Discord.ClientSecret, cfg.Discord.APIBase)

	keyManager := keys.NewManager(cacheClient, cfg.KeyTTL())
	publisher := keys.NewPublisher(cacheClient)
	minter := token.NewMinter(cfg.TokenTTL())

	authorizeSvc := authsvc.NewAuthorizeService(provider, cfg.Discord.ClientID)
	issueSvc := authsvc.NewIssueService(authsvc.IssueDeps{
		Provider: provider,
		Keys:     keyManager,
		Minter:   minter,
		Audience: cfg.Discord.ClientID,
	})
	jwksSvc := oidcsvc.NewJWKSService(publisher)

	handler := router.New(router.Deps{
		Authorize: authctrl.NewAuthorizeController(authorizeSvc),
		Callback:  authctrl.NewCallbackController(issueSvc),
		JWKS:      oidcctrl.NewJWKSController(jwksSvc),
		Health:    healthctrl.NewController(cacheClient),
	})

	log.Info("starting littlejohn",
		logger.String("addr", cfg.Server.Addr),
		logger.String("env", cfg.App.Env),
		logger.String("cache", cfg.Cache.Kind),
	)
	return httpserver.Start(cfg.Server.Addr, handler)
}
