package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cloudhut/kafka-lag-reporter/collector"
	"github.com/cloudhut/kafka-lag-reporter/influx"
	"github.com/cloudhut/kafka-lag-reporter/kafka"
	"github.com/cloudhut/kafka-lag-reporter/logging"
	"github.com/cloudhut/kafka-lag-reporter/reporter"
	"github.com/cloudhut/kafka-lag-reporter/telemetry"
)

type Config struct {
	Collector collector.Config `koanf:"collector"`
	Kafka     kafka.Config     `koanf:"kafka"`
	Influx    influx.Config    `koanf:"influx"`
	Reporter  reporter.Config  `koanf:"reporter"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Logger    logging.Config   `koanf:"logger"`
}

func (c *Config) SetDefaults() {
	c.Collector.SetDefaults()
	c.Kafka.SetDefaults()
	c.Influx.SetDefaults()
	c.Reporter.SetDefaults()
	c.Telemetry.SetDefaults()
	c.Logger.SetDefaults()
}

func (c *Config) Validate() error {
	err := c.Collector.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate collector config: %w", err)
	}

	// The Kafka client is only created when lag is collected via the Admin API
	if c.Collector.ScrapeMode == collector.ScrapeModeAdminAPI {
		err = c.Kafka.Validate()
		if err != nil {
			return fmt.Errorf("failed to validate kafka config: %w", err)
		}
	}

	err = c.Influx.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate influx config: %w", err)
	}

	err = c.Reporter.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate reporter config: %w", err)
	}

	err = c.Telemetry.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate telemetry config: %w", err)
	}

	err = c.Logger.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate logger config: %w", err)
	}

	return nil
}

// flagKeys maps command line flags to their config keys
var flagKeys = map[string]string{
	"kafka-dir":        "collector.kafkaDir",
	"group":            "collector.group",
	"bootstrap-server": "collector.bootstrapServer",
	"zookeeper":        "collector.zookeeper",
	"scrape-mode":      "collector.scrapeMode",
	"idb_host":         "influx.host",
	"idb_port":         "influx.port",
	"idb_user":         "influx.username",
	"idb_pass":         "influx.password",
	"idb_db":           "influx.database",
	"log-level":        "logger.level",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("kafka-lag-reporter", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.String("kafka-dir", "/opt/kafka/", "Kafka installation directory containing bin/kafka-consumer-groups.sh")
	fs.String("group", "", "Consumer group to describe")
	fs.String("bootstrap-server", "", "Kafka bootstrap server address (new consumer protocol)")
	fs.String("zookeeper", "", "Zookeeper address (old consumer protocol), takes precedence over --bootstrap-server")
	fs.String("idb_host", "", "InfluxDB host")
	fs.Int("idb_port", 0, "InfluxDB port")
	fs.String("idb_user", "", "InfluxDB username")
	fs.String("idb_pass", "", "InfluxDB password")
	fs.String("idb_db", "", "InfluxDB database")
	fs.String("scrape-mode", collector.ScrapeModeTool, "How lag is collected: 'tool' or 'adminApi'")
	fs.String("log-level", "info", "Log level")
	fs.String("config", "", "Path to a YAML config file, overrides the env variable CONFIG_FILEPATH")

	return fs
}

// flagOverrides returns the config values of all flags that have been set explicitly
func flagOverrides(fs *pflag.FlagSet) map[string]interface{} {
	overrides := make(map[string]interface{})
	fs.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		overrides[key] = f.Value.String()
	})
	return overrides
}

func newConfig(logger *zap.Logger, args []string) (Config, error) {
	fs := newFlagSet()
	err := fs.Parse(args)
	if err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	var cfg Config
	cfg.SetDefaults()

	// 1. Check if a config filepath is set via flags or env. If there is one we'll try to load the file using a YAML Parser
	envKey := "CONFIG_FILEPATH"
	configFilepath, _ := fs.GetString("config")
	if configFilepath == "" {
		configFilepath = os.Getenv(envKey)
	}
	if configFilepath == "" {
		logger.Debug("neither --config nor the env variable '" + envKey + "' is set, therefore no YAML config will be loaded")
	} else {
		err := k.Load(file.Provider(configFilepath), yaml.Parser())
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	// We could unmarshal the loaded koanf input after loading all providers, however we want to unmarshal the YAML
	// config with `ErrorUnused` set to true, but unmarshal environment variables with `ErrorUnused` set to false (default).
	// Rationale: Orchestrators like Kubernetes inject unrelated environment variables, which we still want to allow.
	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag:       "",
		FlatPaths: false,
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(",")),
			Metadata:         nil,
			Result:           &cfg,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		},
	})
	if err != nil {
		return Config{}, err
	}

	// 2. Environment variables, e.g. INFLUX_HOST => influx.host. Only variables that name a config key are loaded.
	// Comma separated values are split into slices by the decode hook once they are unmarshalled into a slice field.
	keys, err := configKeys()
	if err != nil {
		return Config{}, err
	}
	err = k.Load(env.ProviderWithValue("", ".", func(s string, v string) (string, interface{}) {
		key, exists := keys[strings.ReplaceAll(strings.ToLower(s), "_", ".")]
		if !exists {
			return "", nil
		}
		// Kubernetes injects <SERVICE>_PORT=tcp://ip:port for every service, a service named "influx" would
		// otherwise override influx.port.
		if serviceLinkValue.MatchString(v) {
			logger.Debug("ignoring service link env variable", zap.String("env", s))
			return "", nil
		}
		return key, v
	}), nil)
	if err != nil {
		return Config{}, err
	}

	// 3. Explicitly set command line flags
	err = k.Load(confmap.Provider(flagOverrides(fs), "."), nil)
	if err != nil {
		return Config{}, err
	}

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.applyBrokerFallback()

	err = cfg.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("failed to validate config: %w", err)
	}

	return cfg, nil
}

var serviceLinkValue = regexp.MustCompile(`^(tcp|udp|sctp)://`)

// configKeys returns all config keys, indexed by their lower-cased form
func configKeys() (map[string]string, error) {
	var cfg Config
	cfg.SetDefaults()

	k := koanf.New(".")
	err := k.Load(structs.Provider(cfg, "koanf"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list config keys: %w", err)
	}

	keys := make(map[string]string)
	for _, key := range k.Keys() {
		keys[strings.ToLower(key)] = key
	}
	return keys, nil
}

// applyBrokerFallback uses the bootstrap server as seed brokers if the Admin API mode has no brokers configured
func (c *Config) applyBrokerFallback() {
	if c.Collector.ScrapeMode != collector.ScrapeModeAdminAPI || len(c.Kafka.Brokers) > 0 {
		return
	}

	for _, broker := range strings.Split(c.Collector.BootstrapServer, ",") {
		broker = strings.TrimSpace(broker)
		if broker != "" {
			c.Kafka.Brokers = append(c.Kafka.Brokers, broker)
		}
	}
}
