package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT" envDefault:"8080"`

	// ClientURL is the frontend origin. The federated callback redirects
	// the browser back here.
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:3000"`

	DatabaseFile string `env:"DATABASE_FILE" envDefault:"daybook.db"`

	// RedisAddr switches the one-time code store from the sqlite table to
	// Redis when set. Needed once more than one instance runs.
	RedisAddr string `env:"REDIS_ADDR"`

	SessionSecret string        `env:"SESSION_SECRET,required"`
	Issuer        string        `env:"ISSUER" envDefault:"daybook"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	CodeTTL       time.Duration `env:"EMAIL_CODE_TTL" envDefault:"2m"`
	StateTTL      time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	PepperFile string `env:"PEPPER_FILE" envDefault:"pepper"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	// Postmark credentials. Leave unset to log mail instead of sending,
	// which keeps local development serviceable.
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	EmailFrom            string `env:"EMAIL_FROM" envDefault:"no-reply@daybook.local"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// LoadConfig reads configuration from the environment, preloading a .env
// file when one exists.
func LoadConfig() (Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
