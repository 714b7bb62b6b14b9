package influx

import (
	"fmt"
	"net"
	"strconv"
)

type Config struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`

	// RetentionPolicy to write into, the database default is used if empty
	RetentionPolicy string `koanf:"retentionPolicy"`
	// Precision of the written timestamps: ns, us, ms, s, m or h
	Precision string `koanf:"precision"`

	UseTLS                bool `koanf:"useTls"`
	InsecureSkipTLSVerify bool `koanf:"insecureSkipTlsVerify"`
}

func (c *Config) SetDefaults() {
	c.Precision = "ns"
}

func (c *Config) Validate() error {
	if c.Host == "" || c.Port == 0 || c.Username == "" || c.Password == "" || c.Database == "" {
		return fmt.Errorf("all influxdb parameters must be provided: host, port, username, password and database")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("influxdb port %d is out of range", c.Port)
	}

	switch c.Precision {
	case "ns", "us", "ms", "s", "m", "h":
	default:
		return fmt.Errorf("invalid write precision '%v'", c.Precision)
	}

	return nil
}

// Addr returns the HTTP address of the InfluxDB write API
func (c *Config) Addr() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
