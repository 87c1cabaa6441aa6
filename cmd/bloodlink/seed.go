package main

import (
	"context"
	"fmt"

	"bloodlink/internal/db"
	"bloodlink/internal/seed"
	"bloodlink/internal/store"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo donors",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := newLogger(cfg)
		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("Connected to database")

		n, err := seed.SeedDonors(ctx, store.NewDonorRepository(pool))
		if err != nil {
			return fmt.Errorf("failed to seed donors: %w", err)
		}

		logger.WithField("donors", n).Info("Donors seeded successfully")

		return nil
	},
}
