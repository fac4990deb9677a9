package main

import (
	"context"
	"fmt"
	"log"

	"casino-account-api/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	userRepo := core.NewPgUserRepository(db)

	var store core.PrincipalStore
	if cfg.PrincipalCacheBackend == "redis" {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		store = core.NewRedisPrincipalStore(redisClient)
	} else {
		store = core.NewMemoryPrincipalStore()
	}
	cache := core.NewPrincipalCache(userRepo, store)

	passwords, err := core.SchemeFromName(cfg.PasswordScheme)
	if err != nil {
		log.Fatalf("failed to configure password scheme: %v", err)
	}

	codec := core.NewTokenCodec(cfg)
	authService := core.NewAuthService(userRepo, passwords, codec, cache)

	if err := core.BootstrapAdmin(ctx, userRepo, passwords, cfg); err != nil {
		log.Fatalf("bootstrap admin failed: %v", err)
	}

	router := core.NewRouter(cfg, authService, userRepo, codec, cache)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
