// Package webhook posts bot events to an HTTP endpoint.
package webhook

// Config holds webhook delivery settings.
type Config struct {
	URL       string
	Secret    string
	QueueSize int
}

// IsEnabled returns true if a webhook URL is configured.
func (c Config) IsEnabled() bool {
	return c.URL != ""
}
