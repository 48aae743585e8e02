package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/gamx/internal/domain/scoring"
)

type scoreOutput struct {
	Variant  string  `json:"variant"`
	Gender   string  `json:"gender"`
	BodyMass float64 `json:"body_mass"`
	Total    float64 `json:"total"`
	Age      int     `json:"age,omitempty"`
	Score    float64 `json:"score"`
	Raw      float64 `json:"raw"`
}

func newScoreCmd(g *globalFlags) *cobra.Command {
	var (
		athlete athleteFlags
		total   float64
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a total",
		Long:  "Place a total on the fitted distribution for the athlete and print the GAMX score at two decimals.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gender, variant, err := athlete.parse()
			if err != nil {
				return err
			}
			engine, err := g.engine()
			if err != nil {
				return err
			}
			raw, err := engine.Compute(scoring.Request{
				Gender:   gender,
				Variant:  variant,
				BodyMass: athlete.mass,
				Total:    total,
				Age:      athlete.age,
			})
			if err != nil {
				return fmt.Errorf("scoring failed: %w", err)
			}

			if athlete.json {
				out := scoreOutput{
					Variant:  variant.String(),
					Gender:   gender.String(),
					BodyMass: athlete.mass,
					Total:    total,
					Score:    scoring.Round2(raw),
					Raw:      raw,
				}
				if variant.AgeDependent() {
					out.Age = athlete.age
				}
				return renderJSON(cmd, out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s, total %g kg: %.2f\n", athlete.describe(gender, variant), total, raw)
			return nil
		},
	}

	athlete.register(cmd)
	cmd.Flags().Float64VarP(&total, "total", "t", 0, "Competition total in kg")
	_ = cmd.MarkFlagRequired("total")
	return cmd
}
