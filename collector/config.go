package collector

import (
	"fmt"
)

const (
	// ScrapeModeTool runs kafka-consumer-groups.sh and parses its describe output
	ScrapeModeTool = "tool"
	// ScrapeModeAdminAPI asks the Kafka cluster directly for committed and log end offsets
	ScrapeModeAdminAPI = "adminApi"

	// ConsumerGroupsBinary is the inspection tool's location relative to the Kafka installation directory
	ConsumerGroupsBinary = "bin/kafka-consumer-groups.sh"
)

type Config struct {
	// ScrapeMode specifies whether lag is collected by the inspection tool that ships with Kafka or by talking to the
	// cluster using the Admin API.
	ScrapeMode string `koanf:"scrapeMode"`

	// KafkaDir is the Kafka installation directory which contains bin/kafka-consumer-groups.sh
	KafkaDir string `koanf:"kafkaDir"`

	// Group is the consumer group to describe
	Group string `koanf:"group"`

	// BootstrapServer is used with the new consumer protocol. Zookeeper takes precedence if both are set.
	BootstrapServer string `koanf:"bootstrapServer"`
	Zookeeper       string `koanf:"zookeeper"`
}

func (c *Config) SetDefaults() {
	c.ScrapeMode = ScrapeModeTool
	c.KafkaDir = "/opt/kafka/"
}

func (c *Config) Validate() error {
	if c.Group == "" {
		return fmt.Errorf("no consumer group specified")
	}

	switch c.ScrapeMode {
	case ScrapeModeTool:
		if c.KafkaDir == "" {
			return fmt.Errorf("kafka directory must be set when scrape mode is '%v'", ScrapeModeTool)
		}
		if c.Zookeeper == "" && c.BootstrapServer == "" {
			return fmt.Errorf("requires either a zookeeper or a bootstrap server address")
		}
	case ScrapeModeAdminAPI:
		if c.Zookeeper != "" {
			return fmt.Errorf("zookeeper can not be used with scrape mode '%v', use a bootstrap server instead",
				ScrapeModeAdminAPI)
		}
	default:
		return fmt.Errorf("invalid scrape mode '%v' specified. Valid modes are '%v' or '%v'",
			c.ScrapeMode,
			ScrapeModeTool,
			ScrapeModeAdminAPI)
	}

	return nil
}
