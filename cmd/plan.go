package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show or change the subscription plan",
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print plan limits and current usage",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		withLedger(func(_ context.Context, s *services, l *plan.Ledger) {
			printSnapshot(os.Stdout, l.Snapshot())
		})
	},
}

var planUpgradeCmd = &cobra.Command{
	Use:       "upgrade <tier>",
	Short:     "Switch to another plan (hire0, hire+ or hire%); usage is kept",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(plan.TierFree), string(plan.TierPlus), string(plan.TierPro)},
	Run: func(_ *cobra.Command, args []string) {
		withLedger(func(ctx context.Context, s *services, l *plan.Ledger) {
			tier, err := plan.ParseTier(args[0])
			if err != nil {
				s.logger.Fatal("upgrading plan", zap.Error(err))
			}
			if err := l.UpgradePlan(ctx, tier); err != nil {
				s.logger.Fatal("upgrading plan", zap.Error(err))
			}
			printSnapshot(os.Stdout, l.Snapshot())
		})
	},
}

var planResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Zero the usage counters and start a new week",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		withLedger(func(ctx context.Context, s *services, l *plan.Ledger) {
			if err := l.ResetUsage(ctx); err != nil {
				s.logger.Fatal("resetting usage", zap.Error(err))
			}
			printSnapshot(os.Stdout, l.Snapshot())
		})
	},
}

func init() {
	planCmd.AddCommand(planShowCmd, planUpgradeCmd, planResetCmd)
	rootCmd.AddCommand(planCmd)
}

func withLedger(fn func(ctx context.Context, s *services, l *plan.Ledger)) {
	ctx := context.Background()
	s := mustSetup(ctx, false)
	defer s.Close()

	l, err := s.book.Ledger(ctx, s.config.Plan.User)
	if err != nil {
		s.logger.Fatal("loading plan", zap.Error(err))
	}
	fn(ctx, s, l)
}
