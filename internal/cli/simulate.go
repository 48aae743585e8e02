package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/internal/simulate"
)

type simulateOutput struct {
	Seed               uint64   `json:"seed"`
	Generated          int      `json:"generated"`
	Accepted           int      `json:"accepted"`
	Duplicate          int      `json:"duplicate"`
	Failed             int      `json:"failed"`
	Processed          int64    `json:"processed"`
	RankingsRetrieved  int      `json:"rankings_retrieved"`
	LeaderboardEntries int      `json:"leaderboard_entries"`
	TargetChecked      bool     `json:"target_checked"`
	Mismatches         []string `json:"mismatches"`
	DurationMs         int64    `json:"duration_ms"`
}

func newSimulateCmd(g *globalFlags) *cobra.Command {
	var (
		cfg        simulate.Config
		variant    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Load-test a standings server and verify what it serves",
		Long: "Generate athletes, submit their results concurrently, wait for the server to apply them, " +
			"then check rankings, the leaderboard and one target against the local engine.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := scoring.ParseVariant(variant)
			if err != nil {
				return err
			}
			engine, err := g.engine()
			if err != nil {
				return err
			}
			cfg.Variant = v
			cfg.Engine = engine

			report, runErr := simulate.Run(cmd.Context(), &cfg)
			if report == nil {
				return runErr
			}
			if jsonOutput {
				out := simulateOutput{
					Seed:               report.Seed,
					Generated:          report.Generated,
					Accepted:           report.Accepted,
					Duplicate:          report.Duplicate,
					Failed:             report.Failed,
					Processed:          report.Processed,
					RankingsRetrieved:  report.RankingsRetrieved,
					LeaderboardEntries: report.LeaderboardEntries,
					TargetChecked:      report.TargetChecked,
					Mismatches:         report.Mismatches,
					DurationMs:         report.Duration.Milliseconds(),
				}
				if err := renderJSON(cmd, out); err != nil {
					return errors.Join(runErr, err)
				}
				return runErr
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "seed:        %d\n", report.Seed)
			fmt.Fprintf(w, "submitted:   %d accepted, %d duplicate, %d failed\n", report.Accepted, report.Duplicate, report.Failed)
			fmt.Fprintf(w, "processed:   %d\n", report.Processed)
			fmt.Fprintf(w, "rankings:    %d\n", report.RankingsRetrieved)
			fmt.Fprintf(w, "leaderboard: %d\n", report.LeaderboardEntries)
			fmt.Fprintf(w, "target:      %t\n", report.TargetChecked)
			for _, m := range report.Mismatches {
				fmt.Fprintf(w, "mismatch:    %s\n", m)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&cfg.BaseURL, "url", simulate.DefaultBaseURL, "Base URL of the standings server")
	cmd.Flags().IntVar(&cfg.Athletes, "athletes", simulate.DefaultAthletes, "Number of athletes to generate")
	cmd.Flags().IntVar(&cfg.Duplicates, "duplicates", 0, "Results to resubmit with the same id")
	cmd.Flags().StringVar(&variant, "variant", "senior", "Variant: senior, youth, age or masters")
	cmd.Flags().IntVar(&cfg.Workers, "workers", simulate.DefaultWorkers, "Concurrent requests")
	cmd.Flags().IntVar(&cfg.TopN, "top", simulate.DefaultTopN, "Leaderboard entries to fetch")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", simulate.DefaultTimeout, "HTTP request timeout")
	cmd.Flags().DurationVar(&cfg.WaitTimeout, "wait", simulate.DefaultWaitTimeout, "How long to wait for results to be processed")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 0, "Generator seed (0 picks one)")
	cmd.Flags().StringVar(&cfg.OutputFile, "output", "", "Write the generated results to this JSON file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
