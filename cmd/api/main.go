package main

import (
	"context"
	"fmt"
	"log"

	"kakeibo-prototype/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	if cfg.UsingDevSecret() {
		log.Printf("WARNING: JWT_SECRET is unset, using the insecure development secret")
	}

	db, err := core.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	catalog, err := core.LoadCategories(cfg.CategoryFile)
	if err != nil {
		log.Fatalf("failed to load categories: %v", err)
	}

	userRepo := core.NewPgUserRepository(db)
	expenseRepo := core.NewPgExpenseRepository(db)
	authService := core.NewRepositoryAuthService(userRepo, cfg.BcryptCost)
	tokens := core.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	throttle := core.NewLoginThrottle(redisClient, cfg.LoginFailMax, cfg.LoginFailWindow)

	router := core.NewRouter(cfg, authService, tokens, expenseRepo, catalog, throttle, db, redisClient)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
