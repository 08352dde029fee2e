package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// DBHANDLE_MONGO_ADDRESS maps to mongo.address.
const EnvPrefix = "DBHANDLE_"

// listKeys are comma separated when read from the environment
var listKeys = map[string]bool{
	"mongo.collections": true,
}

// Config is the complete runtime configuration
type Config struct {
	Mongo   Mongo   `koanf:"mongo"`
	Log     Log     `koanf:"log"`
	Metrics Metrics `koanf:"metrics"`
}

// Mongo describes the database connection
type Mongo struct {
	Address     string   `koanf:"address"`
	Database    string   `koanf:"database"`
	Collections []string `koanf:"collections"`
	Timeout     Timeout  `koanf:"timeout"`
}

// Timeout bounds connect and close; zero disables the bound
type Timeout struct {
	Connect time.Duration `koanf:"connect"`
	Close   time.Duration `koanf:"close"`
}

// Log configures the logger
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Metrics configures the Prometheus endpoint
type Metrics struct {
	Listen string `koanf:"listen"`
}

// Default returns the configuration used when no source overrides a key.
// There is deliberately no default address.
func Default() Config {
	return Config{
		Mongo: Mongo{
			Collections: []string{"users"},
			Timeout: Timeout{
				Connect: 10 * time.Second,
				Close:   10 * time.Second,
			},
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path (if not empty), then environment
// variables, then overrides, each layer taking priority over the previous
// one, on top of Default.
func Load(path string, overrides map[string]any) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return Config{}, fmt.Errorf("set %s: %w", key, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// envValue maps DBHANDLE_MONGO_ADDRESS to mongo.address and splits list keys
func envValue(name, value string) (string, any) {
	key := strings.TrimPrefix(name, EnvPrefix)
	key = strings.ReplaceAll(strings.ToLower(key), "_", ".")

	if !listKeys[key] {
		return key, value
	}

	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// Validate checks that the configuration can open a connection
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Mongo.Address) == "" {
		errs = append(errs, errors.New("mongo.address is required"))
	}
	if strings.TrimSpace(c.Mongo.Database) == "" {
		errs = append(errs, errors.New("mongo.database is required"))
	}
	for i, name := range c.Mongo.Collections {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("mongo.collections[%d] is empty", i))
		}
	}
	if c.Mongo.Timeout.Connect < 0 {
		errs = append(errs, errors.New("mongo.timeout.connect must not be negative"))
	}
	if c.Mongo.Timeout.Close < 0 {
		errs = append(errs, errors.New("mongo.timeout.close must not be negative"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}

	return errors.Join(errs...)
}
