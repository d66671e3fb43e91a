package main

import (
	"context"
	"fmt"
	"log"
	"time"
	"vhs_converter/internal/config"
	"vhs_converter/internal/database"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/migrations"
	"vhs_converter/internal/redis"
	"vhs_converter/internal/repository"
	"vhs_converter/internal/services"
)

// init-db creates the schema and seeds rates, the product catalogue and the
// first admin without starting the server.
func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	userService := services.NewUserService(repository.NewUserRepository(db), redisClient,
		time.Duration(cfg.SessionTimeout)*time.Second)
	if err := migrations.RunMigrations(ctx, db, userService, migrations.Seed{
		AdminEmail:    cfg.AdminSeedEmail,
		AdminPassword: cfg.AdminSeedPassword,
	}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	fmt.Println("Database initialization completed successfully!")
}
