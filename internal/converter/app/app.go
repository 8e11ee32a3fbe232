package converterApp

import (
	"context"
	"log"
	"log/slog"
	"os"

	redisPack "github.com/redis/go-redis/v9"

	"github.com/SilverStorm2/currency-exchange-app/deploy/config"
	"github.com/SilverStorm2/currency-exchange-app/internal/converter/adapter/api_client/ecb"
	"github.com/SilverStorm2/currency-exchange-app/internal/converter/adapter/storage/memory"
	"github.com/SilverStorm2/currency-exchange-app/internal/converter/adapter/storage/postgres"
	"github.com/SilverStorm2/currency-exchange-app/internal/converter/adapter/storage/redis"
	"github.com/SilverStorm2/currency-exchange-app/internal/converter/ports/http/public"
	"github.com/SilverStorm2/currency-exchange-app/internal/converter/service"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

type ConverterApp struct {
	cfg     *config.Config
	session *service.Session
}

func NewConverterApp(cfg *config.Config) *ConverterApp {
	return &ConverterApp{cfg: cfg}
}

func (a *ConverterApp) Start(ctx context.Context) <-chan struct{} {
	a.initLogger()
	slog.Info("Logger initialized")

	slog.With("config", a.cfg).Info("starting converter")

	store := a.initStorage(ctx)
	slog.Info("Storage initialized", "backend", a.cfg.Storage.Backend)

	session := a.initSession(ctx, store)
	a.session = session
	slog.Info("Session initialized")

	// First cycle runs in the background: conversion falls back to the
	// built-in table until rates arrive.
	go func() {
		if err := session.Refresh(ctx); err != nil {
			slog.Warn("initial rate refresh failed", "error", err)
		}
	}()

	serverDone := public.StartServer(ctx, session, a.cfg)
	slog.Info("server started")

	go func() {
		<-ctx.Done()
		session.Close()
	}()

	return serverDone
}

func (a *ConverterApp) initLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func (a *ConverterApp) initStorage(ctx context.Context) service.Store {
	switch a.cfg.Storage.Backend {
	case "redis":
		options := &redisPack.Options{
			Addr:     a.cfg.Storage.RedisHost,
			Password: a.cfg.Storage.RedisPassword,
			DB:       a.cfg.Storage.RedisDB,
		}

		store, err := redis.InitStorage(ctx, options)
		if err != nil {
			log.Fatalln("Failed to initialize Redis storage", "error", err)
		}
		return store

	case "postgres":
		store, err := postgres.New(ctx, a.cfg)
		if err != nil {
			log.Fatalln("Failed to initialize PostgresSQL storage", "error", err)
		}
		return store

	default:
		return memory.NewStorage()
	}
}

func (a *ConverterApp) initSession(ctx context.Context, store service.Store) *service.Session {
	currencies := a.cfg.Currencies()
	if len(currencies) == 0 {
		currencies = entities.DefaultCurrencies
	}

	source := ecb.NewClient(a.cfg)
	cache := service.NewRateCache(store, a.cfg.Rates.CacheTTL, currencies)
	provider := service.NewRateProvider(source, cache, currencies)
	builder := service.NewSeriesBuilder(source)

	return service.NewSession(ctx, store, provider, builder, currencies, a.cfg.Rates.RangeDays)
}
