package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type paramsOutput struct {
	Variant  string  `json:"variant"`
	Gender   string  `json:"gender"`
	BodyMass float64 `json:"body_mass"`
	Age      int     `json:"age,omitempty"`
	Mu       float64 `json:"mu"`
	Sigma    float64 `json:"sigma"`
	Nu       float64 `json:"nu"`
}

func newParamsCmd(g *globalFlags) *cobra.Command {
	var athlete athleteFlags

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Print the resolved distribution parameters",
		Long:  "Print mu, sigma and nu after body-mass interpolation (and age selection) for an athlete.",
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
			p, err := engine.Params(gender, variant, athlete.mass, athlete.age)
			if err != nil {
				return fmt.Errorf("resolving parameters: %w", err)
			}

			if athlete.json {
				out := paramsOutput{
					Variant:  variant.String(),
					Gender:   gender.String(),
					BodyMass: athlete.mass,
					Mu:       p.Mu,
					Sigma:    p.Sigma,
					Nu:       p.Nu,
				}
				if variant.AgeDependent() {
					out.Age = athlete.age
				}
				return renderJSON(cmd, out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: mu=%.6f sigma=%.6f nu=%.6f\n",
				athlete.describe(gender, variant), p.Mu, p.Sigma, p.Nu)
			return nil
		},
	}

	athlete.register(cmd)
	return cmd
}
