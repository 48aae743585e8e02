package scoring

import "errors"

// Sentinel kinds for scoring errors. The sentinel-value entry points
// (ComputeScore, KgTarget, NormalQuantile) report the same conditions through
// InvalidScore, InvalidTarget and NaN.
var (
	ErrInvalidInput      = errors.New("invalid scoring input")
	ErrUndefined         = errors.New("score undefined for input")
	ErrTargetUnreachable = errors.New("target not reachable within search bound")
	ErrUnknownGender     = errors.New("unknown gender")
	ErrUnknownVariant    = errors.New("unknown variant")
	ErrTableNotFound     = errors.New("parameter table not found")
	ErrInvalidTable      = errors.New("invalid parameter table")
)
