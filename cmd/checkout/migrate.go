package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pg "webpay-checkout/internal/infra/db/postgres"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			ctx := cmd.Context()
			switch action {
			case "up":
				err = pg.Migrate(ctx, cfg.Database.URL, logger)
			case "down":
				err = pg.MigrateDown(ctx, cfg.Database.URL, logger)
			case "status":
				err = pg.MigrationStatus(ctx, cfg.Database.URL, logger)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
			if err != nil {
				return err
			}
			logger.Info().Str("action", action).Msg("migrate done")
			return nil
		},
	}
}
