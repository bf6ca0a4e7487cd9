package main

import (
	"context"
	"log"
	"os"

	"github.com/optiplus/storefront/internal/config"
	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/logging"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	files, err := database.Migrate(context.Background(), db, "migrations", direction)
	for _, name := range files {
		logger.Info("ran migration", zap.String("file", name))
	}
	if err != nil {
		logger.Fatal("migrate", zap.String("direction", direction), zap.Error(err))
	}

	logger.Info("migrations complete", zap.Int("count", len(files)), zap.String("direction", direction))
}
