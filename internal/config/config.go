// Package config loads the service configuration through viper.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config is the full service configuration. It is built once at startup and
// passed explicitly to the components that need it.
type Config struct {
	Env      string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	RabbitMQ RabbitMQConfig
	Mail     MailConfig
	Auth     AuthConfig
	Admin    AdminConfig
}

type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// RabbitMQConfig enables queued email delivery when URL is set.
type RabbitMQConfig struct {
	URL   string
	Queue string
}

type MailConfig struct {
	Backend      string // "log" or "smtp"
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	Subject      string
	BodyTemplate string
}

// AuthConfig drives the signup and token flows and the shared field rules.
type AuthConfig struct {
	UsernameMaxLength   int
	EmailMaxLength      int
	UsernamePattern     *regexp.Regexp
	ReservedUsernames   []string
	CodeLength          int
	CodeAlphabet        string
	CodeHashCost        int
	RotateCodeOnSuccess bool
}

// AdminConfig names a superuser created on startup. Both fields must be set.
type AdminConfig struct {
	Username string
	Email    string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvLocal)
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "yamdb.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "confirmation_emails")
	v.SetDefault("MAIL_BACKEND", "log")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 25)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "noreply@yamdb.local")
	v.SetDefault("MAIL_SUBJECT", "Confirmation code")
	v.SetDefault("MAIL_BODY_TEMPLATE", "Hello {{.Username}}, your confirmation code is {{.Code}}")
	v.SetDefault("USERNAME_MAX_LENGTH", 150)
	v.SetDefault("EMAIL_MAX_LENGTH", 254)
	v.SetDefault("USERNAME_PATTERN", `^[\w.@+-]+$`)
	v.SetDefault("RESERVED_USERNAMES", []string{"me"})
	v.SetDefault("CONFIRMATION_CODE_LENGTH", 12)
	v.SetDefault("CONFIRMATION_CODE_ALPHABET", "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")
	v.SetDefault("CONFIRMATION_CODE_HASH_COST", bcrypt.DefaultCost)
	v.SetDefault("ROTATE_CODE_ON_SUCCESS", true)
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
}

// Load reads the optional CONFIG_FILE and the environment into a Config.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	pattern, err := regexp.Compile(v.GetString("USERNAME_PATTERN"))
	if err != nil {
		return nil, fmt.Errorf("invalid USERNAME_PATTERN: %w", err)
	}

	cfg := &Config{
		Env:  v.GetString("APP_ENV"),
		Port: v.GetString("APP_PORT"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   v.GetString("RABBITMQ_URL"),
			Queue: v.GetString("RABBITMQ_QUEUE"),
		},
		Mail: MailConfig{
			Backend:      strings.ToLower(v.GetString("MAIL_BACKEND")),
			Host:         v.GetString("SMTP_HOST"),
			Port:         v.GetInt("SMTP_PORT"),
			Username:     v.GetString("SMTP_USERNAME"),
			Password:     v.GetString("SMTP_PASSWORD"),
			From:         v.GetString("MAIL_FROM"),
			Subject:      v.GetString("MAIL_SUBJECT"),
			BodyTemplate: v.GetString("MAIL_BODY_TEMPLATE"),
		},
		Auth: AuthConfig{
			UsernameMaxLength:   v.GetInt("USERNAME_MAX_LENGTH"),
			EmailMaxLength:      v.GetInt("EMAIL_MAX_LENGTH"),
			UsernamePattern:     pattern,
			ReservedUsernames:   splitList(v.GetStringSlice("RESERVED_USERNAMES")),
			CodeLength:          v.GetInt("CONFIRMATION_CODE_LENGTH"),
			CodeAlphabet:        v.GetString("CONFIRMATION_CODE_ALPHABET"),
			CodeHashCost:        v.GetInt("CONFIRMATION_CODE_HASH_COST"),
			RotateCodeOnSuccess: v.GetBool("ROTATE_CODE_ON_SUCCESS"),
		},
		Admin: AdminConfig{
			Username: v.GetString("ADMIN_USERNAME"),
			Email:    v.GetString("ADMIN_EMAIL"),
		},
	}

	if cfg.Env == EnvLocal && cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "local-development-secret"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case c.JWT.Secret == "":
		return errors.New("JWT_SECRET is required")
	case c.JWT.TTL <= 0:
		return errors.New("JWT_TTL must be positive")
	case c.Database.Driver != "postgres" && c.Database.Driver != "sqlite":
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	case c.Mail.Backend != "log" && c.Mail.Backend != "smtp":
		return fmt.Errorf("unsupported MAIL_BACKEND %q", c.Mail.Backend)
	}
	return c.Auth.Validate()
}

// Validate checks the auth settings on their own, so tests can build an
// AuthConfig without the rest of the service configuration.
func (a AuthConfig) Validate() error {
	switch {
	case a.CodeLength <= 0:
		return errors.New("CONFIRMATION_CODE_LENGTH must be positive")
	case len(a.CodeAlphabet) == 0:
		return errors.New("CONFIRMATION_CODE_ALPHABET must not be empty")
	case !utf8.ValidString(a.CodeAlphabet):
		return errors.New("CONFIRMATION_CODE_ALPHABET must be valid UTF-8")
	case a.CodeLength*maxRuneLen(a.CodeAlphabet) > maxCodeBytes:
		return fmt.Errorf("CONFIRMATION_CODE_LENGTH %d exceeds %d bytes with this CONFIRMATION_CODE_ALPHABET",
			a.CodeLength, maxCodeBytes)
	case a.UsernamePattern == nil:
		return errors.New("USERNAME_PATTERN is required")
	case a.UsernameMaxLength <= 0 || a.EmailMaxLength <= 0:
		return errors.New("USERNAME_MAX_LENGTH and EMAIL_MAX_LENGTH must be positive")
	case a.CodeHashCost < bcrypt.MinCost || a.CodeHashCost > bcrypt.MaxCost:
		return fmt.Errorf("CONFIRMATION_CODE_HASH_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// maxCodeBytes is the longest input bcrypt hashes.
const maxCodeBytes = 72

func maxRuneLen(alphabet string) int {
	longest := 0
	for _, r := range alphabet {
		longest = max(longest, utf8.RuneLen(r))
	}
	return longest
}

// DefaultAuth returns the auth settings used when nothing is overridden.
func DefaultAuth() AuthConfig {
	return AuthConfig{
		UsernameMaxLength:   150,
		EmailMaxLength:      254,
		UsernamePattern:     regexp.MustCompile(`^[\w.@+-]+$`),
		ReservedUsernames:   []string{"me"},
		CodeLength:          12,
		CodeAlphabet:        "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789",
		CodeHashCost:        bcrypt.DefaultCost,
		RotateCodeOnSuccess: true,
	}
}

// splitList accepts both real lists and comma separated env values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
