package cliparse

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Preset names
const (
	Development = "development"
	Testing     = "testing"
	Production  = "production"
)

// DevSecretKey signs sessions outside production. Production refuses it.
const DevSecretKey = "tskr-development-secret"

var ErrUnknownPreset = errors.New("unknown config preset")

// Preset is a named base configuration plus a hook that runs once the
// configuration is fully resolved
type Preset struct {
	Config  Config
	InitApp func(Config) error
}

var base = Config{
	Port:            8080,
	DatabaseType:    "sqlite",
	SecretKey:       DevSecretKey,
	InstancePath:    "instance",
	CoreServiceHost: "localhost",
	CoreServicePort: 18861,
	BcryptCost:      10,
	SessionTTL:      24 * time.Hour,
}

var presets = map[string]Preset{
	Development: {
		Config: with(base, func(c *Config) {
			c.DatabaseURL = "tskr-dev.db"
			c.Debug = true
			c.AllowRegistration = true
			c.AllowedOrigins = []string{"http://localhost:5173"}
		}),
	},
	Testing: {
		Config: with(base, func(c *Config) {
			c.DatabaseURL = ":memory:"
			c.BcryptCost = 4
			c.Debug = true
			c.AllowRegistration = true
			c.SecretKey = "tskr-testing-secret"
		}),
	},
	Production: {
		Config: with(base, func(c *Config) {
			c.DatabaseType = "postgres"
			c.DatabaseURL = ""
			c.SecretKey = ""
			c.BcryptCost = 12
			c.SessionTTL = 8 * time.Hour
		}),
		InitApp: func(c Config) error {
			if c.SecretKey == DevSecretKey {
				return errors.New("production config must not use the development secret key")
			}
			if len(c.SecretKey) < 16 {
				return errors.New("production SECRET_KEY must be at least 16 characters")
			}
			return nil
		},
	},
}

func with(c Config, f func(*Config)) Config {
	f(&c)
	return c
}

// Lookup returns the preset registered under name
func Lookup(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w %q (known: %v)", ErrUnknownPreset, name, Names())
	}
	return p, nil
}

// Names lists the registered preset names in sorted order
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
