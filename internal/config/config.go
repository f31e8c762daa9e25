package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the service reads from the environment.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	AppName  string `env:"APP_NAME" envDefault:"BotoApp"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev   bool   `env:"LOG_DEV" envDefault:"false"`

	DBDriver         string        `env:"DB_DRIVER" envDefault:"postgres"`
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string        `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string        `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"botoapp"`
	SQLitePath       string        `env:"SQLITE_PATH" envDefault:"botoapp.db"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"60s"`

	JWTSecret            string        `env:"JWT_SECRET" envDefault:"dev"`
	AccessTokenLifetime  time.Duration `env:"ACCESS_TOKEN_LIFETIME" envDefault:"5m"`
	RefreshTokenLifetime time.Duration `env:"REFRESH_TOKEN_LIFETIME" envDefault:"24h"`

	// Lifespans are expressed in minutes.
	OTPExpireTime   int `env:"OTP_EXPIRE_TIME" envDefault:"10"`
	TokenLifespan   int `env:"TOKEN_LIFESPAN" envDefault:"10"`
	MaxLoginAttempt int `env:"MAX_LOGIN_ATTEMPT" envDefault:"5"`

	OTPRateLimit  int           `env:"OTP_RATE_LIMIT" envDefault:"5"`
	OTPRateWindow time.Duration `env:"OTP_RATE_WINDOW" envDefault:"15m"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SkipRedis bool   `env:"SKIP_REDIS" envDefault:"false"`

	TwilioAccountSID  string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `env:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber string `env:"TWILIO_PHONE_NUMBER"`

	SMTPHost string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	S3Bucket   string `env:"AWS_STORAGE_BUCKET_NAME"`
	S3Region   string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Endpoint string `env:"AWS_S3_ENDPOINT_URL"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	PageSize           int      `env:"PAGE_SIZE" envDefault:"20"`
	MaxPageSize        int      `env:"MAX_PAGE_SIZE" envDefault:"100"`

	// Peers allowed to set X-Forwarded-For / X-Real-IP. Empty trusts nobody.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	CleanupSchedule string `env:"CLEANUP_SCHEDULE" envDefault:"@every 15m"`
}

var loadDotEnv = func() { _ = godotenv.Load() }

// Load reads an optional .env file, then parses and validates the environment.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}
	if c.OTPExpireTime <= 0 {
		errs = append(errs, errors.New("OTP_EXPIRE_TIME must be positive"))
	}
	if c.TokenLifespan <= 0 {
		errs = append(errs, errors.New("TOKEN_LIFESPAN must be positive"))
	}
	if c.MaxLoginAttempt <= 0 {
		errs = append(errs, errors.New("MAX_LOGIN_ATTEMPT must be positive"))
	}
	if c.AccessTokenLifetime <= 0 || c.RefreshTokenLifetime <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.PageSize <= 0 || c.MaxPageSize < c.PageSize {
		errs = append(errs, errors.New("PAGE_SIZE must be positive and not exceed MAX_PAGE_SIZE"))
	}
	if c.OTPRateLimit <= 0 || c.OTPRateWindow <= 0 {
		errs = append(errs, errors.New("OTP rate limit and window must be positive"))
	}
	return errors.Join(errs...)
}

// OTPLifespan is how long a registration code stays valid.
func (c *Config) OTPLifespan() time.Duration {
	return time.Duration(c.OTPExpireTime) * time.Minute
}

// ResetTokenLifespan is how long a password reset code stays valid.
func (c *Config) ResetTokenLifespan() time.Duration {
	return time.Duration(c.TokenLifespan) * time.Minute
}

// PostgresDSN assembles the DSN from the POSTGRES_* settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.PostgresDSN()
}
