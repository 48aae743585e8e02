package repository

import "time"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithLabel names the store in metrics. Standings set it to the variant.
func WithLabel(label string) Option {
	return func(s *TreapStore) {
		if label != "" {
			s.label = label
		}
	}
}
