package scoring

import (
	"fmt"
	"strings"
)

// Gender selects the per-gender parameter table.
type Gender uint8

// Supported genders.
const (
	GenderMale Gender = iota + 1
	GenderFemale
)

// ParseGender accepts M/F (and male/female), case-insensitive.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return GenderMale, nil
	case "f", "female":
		return GenderFemale, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGender, s)
}

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "M"
	case GenderFemale:
		return "F"
	}
	return "unknown"
}

// fileKey is the gender suffix used by bundled table file names.
func (g Gender) fileKey() string {
	return strings.ToLower(g.String())
}

// Variant selects a parameter table family.
type Variant uint8

// Supported variants.
const (
	VariantSenior Variant = iota + 1
	VariantYouth
	VariantAgeAdjusted
	VariantMasters
)

// Variants lists every supported variant in a stable order.
var Variants = []Variant{VariantSenior, VariantYouth, VariantAgeAdjusted, VariantMasters}

// Age bounds of the age-dependent variants.
const (
	AgeAdjustedMinAge = 13
	AgeAdjustedMaxAge = 40
	MastersMinAge     = 30
	MastersMaxAge     = 95
)

// ParseVariant accepts the canonical names returned by String plus the short
// forms used on score sheets. An empty string selects VariantSenior.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "senior", "gamx":
		return VariantSenior, nil
	case "youth", "gamx-u":
		return VariantYouth, nil
	case "age", "age-adjusted", "gamx-a":
		return VariantAgeAdjusted, nil
	case "masters", "gamx-m":
		return VariantMasters, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

func (v Variant) String() string {
	switch v {
	case VariantSenior:
		return "senior"
	case VariantYouth:
		return "youth"
	case VariantAgeAdjusted:
		return "age"
	case VariantMasters:
		return "masters"
	}
	return "unknown"
}

// AgeDependent reports whether the variant's tables are keyed by age.
func (v Variant) AgeDependent() bool {
	return v == VariantAgeAdjusted || v == VariantMasters
}

// AgeBounds returns the supported age range of an age-dependent variant.
func (v Variant) AgeBounds() (lo, hi int, ok bool) {
	switch v {
	case VariantAgeAdjusted:
		return AgeAdjustedMinAge, AgeAdjustedMaxAge, true
	case VariantMasters:
		return MastersMinAge, MastersMaxAge, true
	}
	return 0, 0, false
}

// ClampAge pins age to the variant's supported range. Ages are returned
// unchanged for mass-only variants.
func (v Variant) ClampAge(age int) int {
	lo, hi, ok := v.AgeBounds()
	if !ok {
		return age
	}
	return min(max(age, lo), hi)
}

// Valid reports whether v is a supported variant.
func (v Variant) Valid() bool {
	return v >= VariantSenior && v <= VariantMasters
}

// Valid reports whether g is a supported gender.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}
