package main

import (
	"context"
	"fmt"
	"os"

	"github.com/maingberg-rgb/finansi/internal/config"
	"github.com/maingberg-rgb/finansi/internal/database"
	"github.com/maingberg-rgb/finansi/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Seed error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbConfig, err := database.NewConfig(cfg)
	if err != nil {
		return err
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	logger.Get().Info("Seeding default categories")
	if err := database.Seed(context.Background(), dbManager.DB()); err != nil {
		return err
	}
	logger.Get().Info("Seeding complete")
	return nil
}
