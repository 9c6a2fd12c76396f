// Package main seeds the database with demo spares, technicians and opening
// stock. Running it twice tops the pools up again.
package main

import (
	"context"
	"fmt"
	"os"

	"spareflow/internal/app"
	"spareflow/internal/config"
	"spareflow/internal/core/entity"
	"spareflow/internal/domain/auth"
	"spareflow/internal/domain/catalog"
	"spareflow/internal/domain/inventory"
	"spareflow/internal/infrastructure/storage/postgres"
	"spareflow/internal/infrastructure/storage/postgres/catalog_repo"
	"spareflow/pkg/logger"
)

var demoSpares = []catalog.Spare{
	{ID: 10, Code: "FLT-10", Description: "Water filter cartridge"},
	{ID: 11, Code: "PMP-11", Description: "Drain pump"},
	{ID: 12, Code: "PCB-12", Description: "Control board"},
	{ID: 13, Code: "MTR-13", Description: "Drum motor"},
}

var demoTechnicians = []catalog.Technician{
	{ID: 7, Name: "Ravi Kumar", ServiceCenterID: 3},
	{ID: 8, Name: "Anil Mehta", ServiceCenterID: 3},
	{ID: 9, Name: "Sunita Rao", ServiceCenterID: 4},
}

type openingStock struct {
	spareID  int64
	location entity.Location
	qty      entity.Split
}

var demoStock = []openingStock{
	{10, entity.ServiceCenter(3), entity.Split{Good: 40}},
	{11, entity.ServiceCenter(3), entity.Split{Good: 12, Defective: 2}},
	{12, entity.ServiceCenter(3), entity.Split{Good: 6}},
	{13, entity.ServiceCenter(4), entity.Split{Good: 4}},
	{10, entity.Technician(7), entity.Split{Good: 5, Defective: 1}},
	{11, entity.Technician(7), entity.Split{Good: 1, Defective: 1}},
	{12, entity.Technician(9), entity.Split{Good: 2}},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	if cfg.InMemory() {
		log.Fatal("seeding needs DATABASE_URL; the in-memory store lives inside the server process")
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.URL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	txm := postgres.NewTxManager(pool, postgres.DefaultTxOptions())
	codec, err := postgres.NewChangesCodec(postgres.DefaultCompressThreshold)
	if err != nil {
		log.Fatalw("failed to create journal codec", "error", err)
	}
	services := app.NewServices(app.PostgresStorage(txm, codec), app.Options{})
	catalogs := catalog_repo.NewRepo(txm)

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, s := range demoSpares {
			if err := catalogs.UpsertSpare(ctx, s); err != nil {
				return fmt.Errorf("spare %d: %w", s.ID, err)
			}
		}
		for _, t := range demoTechnicians {
			if err := catalogs.UpsertTechnician(ctx, t); err != nil {
				return fmt.Errorf("technician %d: %w", t.ID, err)
			}
		}
		for _, st := range demoStock {
			if err := services.Inventory.Adjust(ctx, inventory.AdjustInput{
				SpareID:  st.spareID,
				Location: st.location,
				Quantity: st.qty,
				Reason:   "demo opening stock",
			}); err != nil {
				return fmt.Errorf("pool %d@%s: %w", st.spareID, st.location, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}
	log.Infow("demo data seeded",
		"spares", len(demoSpares),
		"technicians", len(demoTechnicians),
		"pools", len(demoStock),
	)

	if cfg.Auth.Enabled() {
		tokens := auth.NewTokenService(auth.DefaultConfig(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer))
		for _, subject := range []string{"7", "sc-3-manager"} {
			token, expiresAt, err := tokens.Issue(subject)
			if err != nil {
				log.Fatalw("failed to issue demo token", "subject", subject, "error", err)
			}
			fmt.Printf("%s\t%s\t%s\n", subject, expiresAt.Format("2006-01-02T15:04:05Z07:00"), token)
		}
	}
}
