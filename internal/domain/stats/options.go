package stats

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMinSampleSize sets the threshold below which summaries are
// flagged low-confidence.
func WithMinSampleSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.minSampleSize = n
		}
	}
}

// WithPrecision sets the number of decimal places in rounded outputs.
func WithPrecision(digits int) Option {
	return func(a *Aggregator) {
		if digits >= 0 {
			a.precision = digits
		}
	}
}
