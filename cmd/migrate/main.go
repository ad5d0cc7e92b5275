package main

import (
	"flag"
	"log"

	"putik-service/config"
	"putik-service/internal/store"
	"putik-service/internal/util"

	"go.uber.org/zap"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up, down or version")
	flag.Parse()

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.NewStore(cfg.Database.URL, store.Options{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrator, err := store.NewMigrator(db, logger)
	if err != nil {
		logger.Fatal("Failed to prepare migrations", zap.Error(err))
	}

	switch *direction {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = migrator.Version()
		if err == nil {
			logger.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
	default:
		logger.Fatal("Unknown direction", zap.String("direction", *direction))
	}
	if err != nil {
		logger.Fatal("Migration failed", zap.String("direction", *direction), zap.Error(err))
	}
}
