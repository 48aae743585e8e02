package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/gamx/internal/domain/scoring"
)

type targetOutput struct {
	Variant string  `json:"variant"`
	Beat    float64 `json:"beat"`
	scoring.Solution
}

func newTargetCmd(g *globalFlags) *cobra.Command {
	var (
		athlete athleteFlags
		score   float64
	)

	cmd := &cobra.Command{
		Use:   "target",
		Short: "Find the smallest total that beats a score",
		Long: "Search integer totals for the smallest one whose score, at two decimals, is strictly " +
			"greater than --score. Fails when no total up to --upper-bound is enough.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gender, variant, err := athlete.parse()
			if err != nil {
				return err
			}
			engine, err := g.engine()
			if err != nil {
				return err
			}
			sol, err := engine.Solve(scoring.TargetRequest{
				Gender:   gender,
				Variant:  variant,
				BodyMass: athlete.mass,
				Score:    score,
				Age:      athlete.age,
			})
			if err != nil {
				return fmt.Errorf("target search failed: %w", err)
			}

			if athlete.json {
				return renderJSON(cmd, targetOutput{Variant: variant.String(), Beat: score, Solution: sol})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s needs %d kg to beat %.2f (scores %.2f, estimate %.2f kg)\n",
				athlete.describe(gender, variant), sol.Total, score, sol.Score, sol.Estimate)
			return nil
		},
	}

	athlete.register(cmd)
	cmd.Flags().Float64VarP(&score, "score", "s", 0, "Score to beat")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}
