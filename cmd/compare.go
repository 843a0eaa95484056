package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/candidates"
	"github.com/spigell/hirelytics/internal/comparison"
	"github.com/spigell/hirelytics/internal/plan"
	"github.com/spigell/hirelytics/internal/utils"
)

const (
	PromptYes  = "Yes"
	PromptNo   = "No"
	PromptDone = "Done"
)

var errAborted = errors.New("aborted by user")

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank candidates of a project",
	Run: func(cmd *cobra.Command, _ []string) {
		compare(cmd)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringP("project", "p", "", "project id (directory under projects-dir)")
	compareCmd.Flags().StringP("candidates", "c", "", "comma separated candidate ids; asks interactively when empty")
	compareCmd.Flags().String("provider", "", "provider override: openai, cohere, jina or gemini")
	compareCmd.Flags().String("model", "", "model override")
	compareCmd.Flags().Float64("temperature", -1, "temperature override within [0,1]")
	compareCmd.Flags().Int("max-tokens", 0, "token budget override")
	compareCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	compareCmd.Flags().Bool("dry-run", false, "use the offline synthetic scorer instead of a provider")

	compareCmd.MarkFlagRequired("project")
}

func compare(cmd *cobra.Command) {
	ctx := context.Background()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	s := mustSetup(ctx, dryRun)
	defer s.Close()
	logger := s.logger

	project, _ := cmd.Flags().GetString("project")
	user := s.config.Plan.User

	cfg, err := overrideConfig(cmd, s.defaults)
	if err != nil {
		logger.Fatal("invalid flags", zap.Error(err))
	}
	if dryRun {
		cfg.Provider = ai.ProviderSynthetic
	}

	ids := utils.SplitList(cmd.Flag("candidates").Value.String())
	if len(ids) == 0 {
		all, err := s.source.GetCandidates(ctx, project)
		if err != nil {
			logger.Fatal("listing candidates", zap.Error(err))
		}
		if ids, err = pickCandidates(all); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	ledger, err := s.book.Ledger(ctx, user)
	if err != nil {
		logger.Fatal("loading plan", zap.Error(err))
	}
	snap := ledger.Snapshot()
	logger.Info("starting the comparison",
		zap.String("project", project),
		zap.Strings("candidates", ids),
		zap.String("provider", string(cfg.Provider)),
		zap.String("plan", string(snap.Plan)),
		zap.Int("comparisons_this_week", snap.EffectiveWeek),
		zap.Int("weekly_limit", snap.Limits.WeeklyComparisons),
	)

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		if err := confirm(fmt.Sprintf("Compare %d candidates with %s?", len(ids), cfg.Provider)); err != nil {
			logger.Info("exiting", zap.String("reason", err.Error()))
			return
		}
	}

	res, err := s.orch.Run(ctx, comparison.Request{
		UserID:       user,
		ProjectID:    project,
		CandidateIDs: ids,
		Config:       cfg,
	})
	if err != nil {
		logger.Fatal("comparison failed", zap.String("kind", comparison.Kind(err)), zap.Error(err))
	}

	printResult(os.Stdout, res)
}

func overrideConfig(cmd *cobra.Command, cfg ai.Config) (ai.Config, error) {
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		provider, err := ai.ParseProvider(p)
		if err != nil {
			return cfg, err
		}
		if provider != cfg.Provider {
			cfg.Model = ""
		}
		cfg.Provider = provider
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		cfg.Model = m
	}
	if cmd.Flags().Changed("temperature") {
		cfg.Temperature, _ = cmd.Flags().GetFloat64("temperature")
	}
	if cmd.Flags().Changed("max-tokens") {
		cfg.MaxTokens, _ = cmd.Flags().GetInt("max-tokens")
	}
	return cfg, nil
}

// pickCandidates asks for candidates one by one until Done is chosen.
func pickCandidates(all []candidates.Candidate) ([]string, error) {
	if len(all) == 0 {
		return nil, errors.New("project has no candidates")
	}

	var picked []string
	remaining := all
	for len(remaining) > 0 {
		items := make([]string, 0, len(remaining)+1)
		for _, c := range remaining {
			items = append(items, fmt.Sprintf("%s %s", c.ID, c.Name))
		}
		if len(picked) >= comparison.MinCandidates {
			items = append(items, PromptDone)
		}

		sel := promptui.Select{
			Label: fmt.Sprintf("Choose a candidate (%d selected)", len(picked)),
			Items: items,
		}
		idx, choice, err := sel.Run()
		if err != nil {
			return nil, err
		}
		if choice == PromptDone {
			break
		}

		picked = append(picked, remaining[idx].ID)
		remaining = append(remaining[:idx:idx], remaining[idx+1:]...)
	}
	return picked, nil
}

func confirm(label string) error {
	sel := promptui.Select{Label: label, Items: []string{PromptYes, PromptNo}}
	_, action, err := sel.Run()
	if err != nil {
		return err
	}
	if action != PromptYes {
		return errAborted
	}
	return nil
}

var skillColumns = []string{"technical", "communication", "leadership", "creativity"}

func printResult(w io.Writer, res *comparison.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"Rank", "Candidate", "Score"}, append(skillColumns, "Cultural fit")...))

	for _, r := range res.Rankings {
		row := []string{strconv.Itoa(r.Rank), r.Name, strconv.Itoa(r.Score)}
		for _, k := range skillColumns {
			row = append(row, optional(r.Skills, k))
		}
		fit := "-"
		if r.CulturalFit != nil {
			fit = strconv.Itoa(*r.CulturalFit)
		}
		table.Append(append(row, fit))
	}
	table.Render()

	fmt.Fprintln(w)
	for _, insight := range res.Insights {
		fmt.Fprintf(w, "- %s\n", insight)
	}
	fmt.Fprintf(w, "\n%s / %s / %s / run %s\n",
		res.Metadata.Provider, res.Metadata.Model,
		res.Metadata.AnalysisDate.Format("2006-01-02T15:04:05Z07:00"), res.Metadata.RunID)
}

func optional(m map[string]int, key string) string {
	if v, ok := m[key]; ok {
		return strconv.Itoa(v)
	}
	return "-"
}

func printSnapshot(w io.Writer, snap plan.Snapshot) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Plan", "Candidates", "This week", "Today", "Can compare"})
	table.Append([]string{
		string(snap.Plan),
		strconv.Itoa(snap.Limits.CandidateLimit),
		fmt.Sprintf("%d/%d", snap.EffectiveWeek, snap.Limits.WeeklyComparisons),
		fmt.Sprintf("%d/%d", snap.EffectiveToday, snap.Limits.DailyComparisons),
		strconv.FormatBool(snap.CanRun),
	})
	table.Render()
}
