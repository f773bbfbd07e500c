package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/anand-fs/plantrack/internal/constants"
)

const Production = "production"

type DatabaseOptions struct {
	Driver   string `env:"DB_DRIVER" envDefault:"mysql"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"3306"`
	User     string `env:"DB_USER" envDefault:"plantrack"`
	Password string `env:"DB_PASSWORD" envDefault:"plantrack"`
	Name     string `env:"DB_NAME" envDefault:"plantrack"`
}

// DSN builds the driver specific connection string.
func (d DatabaseOptions) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
			d.Host, d.Port, d.User, d.Name, d.Password,
		)
	case "sqlite":
		return d.Name
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	}
}

type RedisOptions struct {
	Host string `env:"REDIS_HOST" envDefault:"localhost"`
	Port string `env:"REDIS_PORT" envDefault:"6379"`
}

func (r RedisOptions) Addr() string {
	return r.Host + ":" + r.Port
}

type AuthOptions struct {
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"default-secret-key-change-me"`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"default-jwt-secret-change-me"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

type LogOptions struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type MetricsOptions struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

type Config struct {
	AppEnv             string   `env:"APP_ENV" envDefault:"development"`
	HTTPAddr           string   `env:"HTTP_ADDR" envDefault:":8080"`
	GinMode            string   `env:"GIN_MODE" envDefault:"debug"`
	OpenAIAPIKey       string   `env:"OPENAI_API_KEY"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:4200"`

	// RequireInProgressBeforeComplete forbids ACTIVE -> COMPLETED.
	RequireInProgressBeforeComplete bool `env:"LIFECYCLE_REQUIRE_IN_PROGRESS" envDefault:"false"`

	Database DatabaseOptions
	Redis    RedisOptions
	Auth     AuthOptions
	Log      LogOptions
	Metrics  MetricsOptions
}

// Load reads .env files when present and parses the environment.
func Load() (*Config, error) {
	if err := loadEnvFiles(".env", ".env.local"); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Validate checks option combinations env tags cannot express.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be one of mysql, postgres, sqlite, got %q", c.Database.Driver)
	}
	if c.Auth.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.JWTTTL)
	}
	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < constants.MinSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters in production", constants.MinSecretLength)
		}
		if len(c.Auth.SessionSecret) < constants.MinSecretLength {
			return fmt.Errorf("SESSION_SECRET must be at least %d characters in production", constants.MinSecretLength)
		}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("METRICS_PATH must start with '/', got %q", c.Metrics.Path)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == Production
}
