package reporter

import (
	"fmt"
)

type Config struct {
	// AllowedTopics are regex strings of topic names whose lag shall be published
	AllowedTopics []string `koanf:"allowedTopics"`

	// IgnoredTopics are regex strings of topic names that shall be skipped when publishing. Ignored topics take
	// precedence over allowed topics.
	IgnoredTopics []string `koanf:"ignoredTopics"`
}

func (c *Config) SetDefaults() {
	c.AllowedTopics = []string{"/.*/"}
}

func (c *Config) Validate() error {
	// Check if all topic strings are valid regex or literals
	for _, topic := range c.AllowedTopics {
		_, err := compileRegex(topic)
		if err != nil {
			return fmt.Errorf("allowed topic string '%v' is not valid regex", topic)
		}
	}

	for _, topic := range c.IgnoredTopics {
		_, err := compileRegex(topic)
		if err != nil {
			return fmt.Errorf("ignored topic string '%v' is not valid regex", topic)
		}
	}

	return nil
}
