package main

import (
	"github.com/spf13/cobra"

	pg "webpay-checkout/internal/infra/db/postgres"
	"webpay-checkout/internal/usecase"
)

func newReconcileCmd(flags *rootFlags) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one incident sweep and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if batch <= 0 {
				batch = cfg.Reconciler.Batch
			}

			pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()

			gateway, err := newGateway(cfg, logger)
			if err != nil {
				return err
			}
			uc := usecase.NewIncidentUseCase(
				pg.NewIncidentRepo(pool),
				pg.NewOrderRepo(pool),
				pg.NewSubscriptionRepo(pool),
				gateway,
				newNotifier(cfg, logger),
				logger,
			)
			st, err := uc.Sweep(ctx, batch)
			if err != nil {
				return err
			}
			logger.Info().
				Int("escalated", st.Escalated).
				Int("resolved", st.Resolved).
				Int("notified", st.Notified).
				Int("failed", st.Failed).
				Msg("reconcile done")
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "max incidents to process (default reconciler.batch)")
	return cmd
}
