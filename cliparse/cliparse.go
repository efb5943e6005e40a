package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Name              string        `yaml:"-" validate:"required"`
	Port              int           `yaml:"port" validate:"min=1,max=65535"`
	DatabaseURL       string        `yaml:"database_url" validate:"required"`
	DatabaseType      string        `yaml:"database_type" validate:"oneof=sqlite postgres"`
	SecretKey         string        `yaml:"secret_key" validate:"required"`
	InstancePath      string        `yaml:"instance_path"`
	CoreServiceHost   string        `yaml:"core_service_host" validate:"required"`
	CoreServicePort   int           `yaml:"core_service_port" validate:"min=1,max=65535"`
	WorkerID          int           `yaml:"worker_id" validate:"min=0"`
	BcryptCost        int           `yaml:"bcrypt_cost" validate:"min=4,max=31"`
	SessionTTL        time.Duration `yaml:"session_ttl" validate:"min=0"`
	Debug             bool          `yaml:"debug"`
	AllowRegistration bool          `yaml:"allow_registration"`
	Timezone          string        `yaml:"timezone"`
	AllowedOrigins    []string      `yaml:"allowed_origins" validate:"dive,url"`
	Jobs              []JobConfig   `yaml:"jobs" validate:"dive"`
}

// JobConfig declares a job that is (re)installed whenever the scheduler is
// initialised by the process that owns it.
type JobConfig struct {
	ID      string         `yaml:"id" validate:"required"`
	Name    string         `yaml:"name"`
	Task    string         `yaml:"task" validate:"required"`
	Trigger string         `yaml:"trigger" validate:"required,oneof=interval cron date"`
	Seconds int            `yaml:"seconds"`
	Cron    string         `yaml:"cron"`
	RunAt   time.Time      `yaml:"run_at"`
	Args    map[string]any `yaml:"args"`
}

// CoreServiceAddr is the host:port of the scheduler core service
func (c Config) CoreServiceAddr() string {
	return c.CoreServiceHost + ":" + strconv.Itoa(c.CoreServicePort)
}

// Validate checks field constraints
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid %s config: %w", c.Name, err)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// ParseFlags resolves the configuration: preset, then YAML file, then
// environment, then CLI flags
func ParseFlags(args []string) (Config, error) {
	var (
		name, file, envFile             string
		port, corePort, workerID        int
		dbURL, dbType, secret, instance string
		coreHost, origins               string
	)

	fs := flag.NewFlagSet("tskr", flag.ContinueOnError)

	fs.StringVar(&name, "n", "", "Config preset (development, testing, production)")
	fs.StringVar(&file, "c", "", "Path to YAML config file")
	fs.StringVar(&envFile, "env-file", ".env", "Path to dotenv file")

	// Network config (can be CLI args or env)
	fs.IntVar(&port, "p", 0, "Server port")
	fs.StringVar(&dbURL, "d", "", "Database URL")
	fs.StringVar(&dbType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&instance, "instance", "", "Instance directory (logging.cfg lives here)")
	fs.StringVar(&coreHost, "core-host", "", "Scheduler core service host")
	fs.IntVar(&corePort, "core-port", 0, "Scheduler core service port")
	fs.IntVar(&workerID, "worker-id", 0, "Prefork worker id (0 = standalone)")
	fs.StringVar(&origins, "cors-origins", "", "Comma-separated origins allowed to send credentialed requests")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&secret, "secret-key", "", "Session signing secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	if name == "" {
		name = os.Getenv("TSKR_CONFIG")
	}
	if name == "" {
		name = Development
	}
	preset, err := Lookup(name)
	if err != nil {
		return Config{}, err
	}
	cfg := preset.Config
	cfg.Name = name

	if file != "" {
		if err := loadFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}

	// Fall back to environment variables
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	// CLI overrides env
	if port != 0 {
		cfg.Port = port
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if dbType != "" {
		cfg.DatabaseType = dbType
	}
	if secret != "" {
		cfg.SecretKey = secret
	}
	if instance != "" {
		cfg.InstancePath = instance
	}
	if coreHost != "" {
		cfg.CoreServiceHost = coreHost
	}
	if corePort != 0 {
		cfg.CoreServicePort = corePort
	}
	if workerID != 0 {
		cfg.WorkerID = workerID
	}
	if origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if preset.InitApp != nil {
		if err := preset.InitApp(cfg); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return errors.New("invalid PORT env variable")
		}
		cfg.Port = port
	}
	if v := os.Getenv("CORE_SERVICE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid CORE_SERVICE_PORT env variable")
		}
		cfg.CoreServicePort = port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("DATABASE_TYPE"); v != "" {
		cfg.DatabaseType = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("TSKR_INSTANCE_PATH"); v != "" {
		cfg.InstancePath = v
	}
	if v := os.Getenv("CORE_SERVICE_HOST"); v != "" {
		cfg.CoreServiceHost = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
