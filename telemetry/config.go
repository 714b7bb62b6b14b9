package telemetry

import (
	"fmt"
	"net/url"
)

type Config struct {
	// PushgatewayURL of a Prometheus Pushgateway. Run metrics are only pushed if it is set.
	PushgatewayURL string `koanf:"pushgatewayUrl"`
	Job            string `koanf:"job"`
	Namespace      string `koanf:"namespace"`
}

func (c *Config) SetDefaults() {
	c.Job = "kafka_lag_reporter"
	c.Namespace = "kafka_lag_reporter"
}

func (c *Config) Validate() error {
	if c.PushgatewayURL == "" {
		return nil
	}

	u, err := url.Parse(c.PushgatewayURL)
	if err != nil {
		return fmt.Errorf("failed to parse pushgateway url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("pushgateway url must use http or https, got '%v'", c.PushgatewayURL)
	}
	if c.Job == "" {
		return fmt.Errorf("a job name is required to push metrics")
	}

	return nil
}
