package main

import (
	"fmt"

	"bloodlink/internal/compat"
	"bloodlink/internal/db"
	"bloodlink/internal/matching"
	"bloodlink/internal/store"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var debugCommand = &cli.Command{
	Name:  "debug",
	Usage: "Inspect donors, requests and matches without sending notifications",
	Subcommands: []*cli.Command{
		{
			Name:   "donors",
			Usage:  "Summarize the donor pool by blood type",
			Action: withPool(debugDonors),
		},
		{
			Name:  "requests",
			Usage: "Dump one request, or the most recent ones",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "id", Usage: "Request ID"},
				&cli.Uint64Flag{Name: "limit", Usage: "Number of recent requests", Value: 5},
			},
			Action: withPool(debugRequests),
		},
		{
			Name:  "match",
			Usage: "Run matching for a stored request and print the ranked donors",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "id", Usage: "Request ID", Required: true},
			},
			Action: withPool(debugMatch),
		},
		{
			Name:  "nanoid",
			Usage: "Generate NanoIDs for use in seed files",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "count",
					Aliases: []string{"c"},
					Usage:   "Number of IDs to generate",
					Value:   1,
				},
			},
			Action: func(c *cli.Context) error {
				for range c.Int("count") {
					fmt.Println(utils.NanoID())
				}
				return nil
			},
		},
	},
}

type debugEnv struct {
	config *types.Config
	pool   *pgxpool.Pool
}

func withPool(action func(c *cli.Context, env *debugEnv) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		pool, err := db.Connect(c.Context, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		return action(c, &debugEnv{config: cfg, pool: pool})
	}
}

func debugDonors(c *cli.Context, env *debugEnv) error {
	counts, err := store.NewDonorRepository(env.pool).CountByBloodType(c.Context)
	if err != nil {
		return err
	}

	pp.Println(counts)
	return nil
}

func debugRequests(c *cli.Context, env *debugEnv) error {
	repo := store.NewRequestRepository(env.pool)

	if id := c.String("id"); id != "" {
		request, err := repo.Request(c.Context, id)
		if err != nil {
			return err
		}
		pp.Println(request)
		return nil
	}

	requests, err := repo.List(c.Context, types.RequestFilter{Limit: c.Uint64("limit")})
	if err != nil {
		return err
	}

	pp.Println(requests)
	return nil
}

type debugMatchRow struct {
	DonorID   string
	Name      string
	BloodType types.BloodType
	Distance  string
	LimitKm   float64
}

func debugMatch(c *cli.Context, env *debugEnv) error {
	request, err := store.NewRequestRepository(env.pool).Request(c.Context, c.String("id"))
	if err != nil {
		return err
	}

	logger := newLogger(env.config)
	matcher := matching.NewMatcher(logger, store.NewDonorRepository(env.pool), compat.Standard(), env.config.DefaultDistanceLimitKm)

	matches, err := matcher.FindMatches(c.Context, request)
	if err != nil {
		return err
	}

	rows := make([]debugMatchRow, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, debugMatchRow{
			DonorID:   m.Donor.ID,
			Name:      m.Donor.Name,
			BloodType: m.Donor.BloodType,
			Distance:  m.Distance.String(),
			LimitKm:   m.Donor.DistanceLimitKm(env.config.DefaultDistanceLimitKm),
		})
	}

	pp.Println(rows)
	return nil
}
