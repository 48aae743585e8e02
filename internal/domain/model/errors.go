package model

import "errors"

// ErrInvalidResult marks a lift result missing required fields.
var ErrInvalidResult = errors.New("invalid lift result")
