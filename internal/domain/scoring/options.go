package scoring

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTables replaces the bundled parameter tables.
func WithTables(ts *Tables) Option {
	return func(e *Engine) {
		if ts != nil {
			e.tables = ts
		}
	}
}

// WithTargetUpperBound sets the largest total the target solver will try.
// Non-positive values are ignored.
func WithTargetUpperBound(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.upperBound = n
		}
	}
}
