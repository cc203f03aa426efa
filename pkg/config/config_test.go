package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// chdirTemp moves into an empty directory so no config.yaml or .env is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TABLETOP_JWT_SECRET", "s3cret")
	t.Setenv("TABLETOP_DB_HOST", "db.internal")
	t.Setenv("TABLETOP_ROOM_BCRYPT_COST", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, bcrypt.MinCost, cfg.Room.BcryptCost)
	assert.Equal(t, 10*time.Minute, cfg.Room.PasswordAttemptWindow)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TABLETOP_JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TABLETOP_JWT_SECRET", "s3cret")
	t.Setenv("TABLETOP_DB_DRIVER", "sqlite")

	_, err := Load()
	assert.ErrorContains(t, err, "db.driver")
}
