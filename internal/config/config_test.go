package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"yamdb/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, config.EnvLocal, cfg.Env)
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.NotEmpty(t, cfg.JWT.Secret, "local env falls back to a development secret")
	assert.Equal(t, []string{"me"}, cfg.Auth.ReservedUsernames)
	assert.Equal(t, 12, cfg.Auth.CodeLength)
	assert.True(t, cfg.Auth.RotateCodeOnSuccess)
	assert.True(t, cfg.Auth.UsernamePattern.MatchString("alice.b+c@d-e_f"))
	assert.False(t, cfg.Auth.UsernamePattern.MatchString("alice!"))
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("RESERVED_USERNAMES", "me, self,admin")
	v.Set("CONFIRMATION_CODE_LENGTH", 6)
	v.Set("CONFIRMATION_CODE_ALPHABET", "0123456789")
	v.Set("JWT_TTL", "15m")
	v.Set("ROTATE_CODE_ON_SUCCESS", false)

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"me", "self", "admin"}, cfg.Auth.ReservedUsernames)
	assert.Equal(t, 6, cfg.Auth.CodeLength)
	assert.Equal(t, "0123456789", cfg.Auth.CodeAlphabet)
	assert.Equal(t, 15*time.Minute, cfg.JWT.TTL)
	assert.False(t, cfg.Auth.RotateCodeOnSuccess)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yamdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app_port: \":9090\"\nusername_max_length: 30\n"), 0o600))

	v := viper.New()
	v.Set("CONFIG_FILE", path)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, 30, cfg.Auth.UsernameMaxLength)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
		msg  string
	}{
		{"bad pattern", map[string]any{"USERNAME_PATTERN": "(["}, "USERNAME_PATTERN"},
		{"zero code length", map[string]any{"CONFIRMATION_CODE_LENGTH": 0}, "CONFIRMATION_CODE_LENGTH"},
		{"code longer than bcrypt input", map[string]any{"CONFIRMATION_CODE_LENGTH": 73}, "CONFIRMATION_CODE_LENGTH"},
		{"multi-byte code longer than bcrypt input", map[string]any{
			"CONFIRMATION_CODE_LENGTH":   40,
			"CONFIRMATION_CODE_ALPHABET": "абвгдежзий",
		}, "CONFIRMATION_CODE_LENGTH"},
		{"empty alphabet", map[string]any{"CONFIRMATION_CODE_ALPHABET": ""}, "CONFIRMATION_CODE_ALPHABET"},
		{"unknown driver", map[string]any{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"unknown mail backend", map[string]any{"MAIL_BACKEND": "carrier-pigeon"}, "MAIL_BACKEND"},
		{"prod without secret", map[string]any{"APP_ENV": config.EnvProd}, "JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for key, val := range tt.set {
				v.Set(key, val)
			}
			_, err := config.Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDefaultAuth_IsValid(t *testing.T) {
	assert.NoError(t, config.DefaultAuth().Validate())
}

func TestAuthConfig_CodeBytes(t *testing.T) {
	cfg := config.DefaultAuth()
	cfg.CodeAlphabet = "абвгдежзий"

	cfg.CodeLength = 36
	assert.NoError(t, cfg.Validate(), "36 two-byte runes fill bcrypt's 72 bytes exactly")

	cfg.CodeLength = 37
	assert.Error(t, cfg.Validate())

	cfg.CodeLength = 40
	assert.Error(t, cfg.Validate())

	cfg.CodeAlphabet = "0123456789"
	cfg.CodeLength = 72
	assert.NoError(t, cfg.Validate())
}
