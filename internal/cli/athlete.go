package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/gamx/internal/domain/scoring"
)

// athleteFlags are the flags that select a distribution.
type athleteFlags struct {
	gender  string
	mass    float64
	age     int
	variant string
	json    bool
}

func (a *athleteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&a.gender, "gender", "g", "", "Gender: M or F")
	cmd.Flags().Float64VarP(&a.mass, "mass", "m", 0, "Body mass in kg")
	cmd.Flags().IntVar(&a.age, "age", 0, "Age in years (age and masters variants)")
	cmd.Flags().StringVar(&a.variant, "variant", "senior", "Variant: senior, youth, age or masters")
	cmd.Flags().BoolVar(&a.json, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("gender")
	_ = cmd.MarkFlagRequired("mass")
}

func (a *athleteFlags) parse() (scoring.Gender, scoring.Variant, error) {
	g, err := scoring.ParseGender(a.gender)
	if err != nil {
		return 0, 0, err
	}
	v, err := scoring.ParseVariant(a.variant)
	if err != nil {
		return 0, 0, err
	}
	if v.AgeDependent() && a.age <= 0 {
		return 0, 0, fmt.Errorf("--age is required for the %s variant", v)
	}
	return g, v, nil
}

func (a *athleteFlags) describe(g scoring.Gender, v scoring.Variant) string {
	s := fmt.Sprintf("%s %s %g kg", v, g, a.mass)
	if v.AgeDependent() {
		s += fmt.Sprintf(" age %d", a.age)
	}
	return s
}

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
