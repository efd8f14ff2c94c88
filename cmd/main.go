package main

import (
	"context"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookstore/internal/config"
	"bookstore/internal/logger"
	"bookstore/internal/models"
	"bookstore/internal/repositories"
	"bookstore/internal/services"
	"bookstore/internal/session"
)

// Bootstraps the persistence core: connects, migrates the schema, seeds the
// fixed enumerations, and exits. Serving collaborators (HTTP or otherwise) is
// wired elsewhere on top of services.StoreService.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer appLog.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		appLog.Fatal("connect database", "error", err)
	}

	sessions, err := session.NewManager(db, session.Config{
		PoolSize:          cfg.PoolSize,
		MaxOverflow:       cfg.MaxOverflow,
		AcquireTimeout:    cfg.AcquireTimeout,
		UnitOfWorkTimeout: cfg.UnitOfWorkTimeout,
	}, appLog)
	if err != nil {
		appLog.Fatal("configure session manager", "error", err)
	}

	appLog.Info("migrating schema")
	if err := db.AutoMigrate(models.All()...); err != nil {
		appLog.Fatal("migrate schema", "error", err)
	}

	repos := repositories.NewRegistry(db)
	store := services.NewStoreService(sessions, repos, appLog)

	if err := store.SeedDefaults(context.Background()); err != nil {
		appLog.Fatal("seed defaults", "error", err)
	}

	appLog.Info("bookstore schema ready",
		"pool_size", cfg.PoolSize, "max_overflow", cfg.MaxOverflow)
}
