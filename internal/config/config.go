package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        string `env:"PORT,default=8080"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	OTPSalt     string `env:"OTP_SALT,required"`
	DevMode     bool   `env:"DEV_MODE,default=false"`
	OTPDevMode  bool   `env:"OTP_DEV_MODE,default=false"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// WriteTimeout bounds a whole request, outbound mail and OAuth calls included.
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,default=10s"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,default=60m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL,default=24h"`
	CookieSecure    bool          `env:"COOKIE_SECURE,default=true"`
	CookieDomain    string        `env:"COOKIE_DOMAIN"`

	MailFrom     string        `env:"MAIL_FROM,default=no-reply@localhost"`
	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT,default=587"`
	SMTPUser     string        `env:"SMTP_USER"`
	SMTPPassword string        `env:"SMTP_PASS"`
	MailTimeout  time.Duration `env:"MAIL_TIMEOUT,default=5s"`

	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string        `env:"GOOGLE_REDIRECT_URI"`
	OAuthTimeout       time.Duration `env:"OAUTH_TIMEOUT,default=5s"`
	FrontendURL        string        `env:"FRONTEND_URL,default=http://localhost:3000"`

	AllowedOrigins        []string      `env:"CORS_ALLOWED_ORIGINS"`
	AuthRequestsPerMinute int           `env:"AUTH_RATE_LIMIT_PER_MINUTE,default=30"`
	OTPIssueLimit         int           `env:"OTP_ISSUE_LIMIT,default=3"`
	OTPIssueWindow        time.Duration `env:"OTP_ISSUE_WINDOW,default=10m"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !c.CookieSecure && !c.DevMode {
		return errors.New("COOKIE_SECURE=false is only allowed with DEV_MODE=true")
	}
	if c.OTPDevMode && !c.DevMode {
		return errors.New("OTP_DEV_MODE=true is only allowed with DEV_MODE=true")
	}
	if c.SMTPHost == "" && !c.DevMode {
		return errors.New("SMTP_HOST is required unless DEV_MODE=true")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.MailTimeout >= c.WriteTimeout {
		return errors.New("MAIL_TIMEOUT must be shorter than HTTP_WRITE_TIMEOUT")
	}
	if c.OAuthTimeout >= c.WriteTimeout {
		return errors.New("OAUTH_TIMEOUT must be shorter than HTTP_WRITE_TIMEOUT")
	}
	if c.OTPIssueLimit <= 0 || c.OTPIssueWindow <= 0 {
		return errors.New("OTP_ISSUE_LIMIT and OTP_ISSUE_WINDOW must be positive")
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}
