package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/spf13/cobra"

	"webpay-checkout/internal/domain/model"
	"webpay-checkout/internal/domain/ports/repository"
	pg "webpay-checkout/internal/infra/db/postgres"
)

// Fixed ids keep seeding idempotent: every Save below is an upsert.
var (
	seedUser  = model.User{ID: 1, Username: "demo", Email: "demo@example.com"}
	seedPlans = []model.Plan{
		{ID: 1, Name: "Mensual", Price: 4990, DurationDays: 30},
		{ID: 2, Name: "Trimestral", Price: 12990, DurationDays: 90},
		{ID: 3, Name: "Anual", Price: 45990, DurationDays: 365},
	}
	seedProducts = []model.Product{
		{ID: 1, Name: "Taza", Price: 1000, Stock: 5},
		{ID: 2, Name: "Polera", Price: 8990, Stock: 20},
		{ID: 3, Name: "Stickers", Price: 500, Stock: 100},
	}
)

func newSeedCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a demo user, plans, products and a filled cart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()

			users := pg.NewUserRepo(pool)
			plans := pg.NewPlanRepo(pool)
			products := pg.NewInventoryRepo(pool)
			carts := pg.NewCartRepo(pool)

			err = pg.NewTxManager(pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
				u := seedUser
				if err := users.Save(ctx, tx, &u); err != nil {
					return fmt.Errorf("seed user: %w", err)
				}
				for _, p := range seedPlans {
					if err := plans.Save(ctx, tx, &p); err != nil {
						return fmt.Errorf("seed plan %q: %w", p.Name, err)
					}
				}
				for _, p := range seedProducts {
					if err := products.Save(ctx, tx, &p); err != nil {
						return fmt.Errorf("seed product %q: %w", p.Name, err)
					}
				}
				cart, err := carts.GetOrCreate(ctx, tx, u.ID)
				if err != nil {
					return fmt.Errorf("seed cart: %w", err)
				}
				if err := carts.SetLine(ctx, tx, cart.ID, 1, 3); err != nil {
					return err
				}
				return carts.SetLine(ctx, tx, cart.ID, 3, 2)
			})
			if err != nil {
				return err
			}
			logger.Info().
				Int("plans", len(seedPlans)).
				Int("products", len(seedProducts)).
				Int64("user_id", seedUser.ID).
				Msg("seeding complete")
			return nil
		},
	}
}
