package batch

// config holds buffer settings shared across entity kinds.
type config struct {
	threshold int
}

// Option applies a configuration option to a Buffer.
type Option func(*config)

// WithThreshold sets the flush size threshold.
func WithThreshold(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.threshold = n
		}
	}
}
