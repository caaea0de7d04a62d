package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BACKEND", "")
	t.Setenv("APP_ID", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DefaultAppID, cfg.App.ID)
	require.Equal(t, BackendMemory, cfg.Backend.Kind)
	require.True(t, cfg.App.SeedOnStart)
	require.Equal(t, "", cfg.RedisAddr())
}

func TestLoadConfig_Mongo(t *testing.T) {
	t.Setenv("BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "recital_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("INITIAL_AUTH_TOKEN", "bearer-xyz")
	t.Setenv("APP_ID", "recital-2024")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "recital_test", cfg.MongoDB.Database)
	require.Equal(t, "localhost:6379", cfg.RedisAddr())
	require.Equal(t, "bearer-xyz", cfg.App.InitialAuthToken)
	require.Equal(t, "recital-2024", cfg.App.ID)
}

func TestLoadConfig_MongoRequiresURI(t *testing.T) {
	t.Setenv("BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_UnknownBackend(t *testing.T) {
	t.Setenv("BACKEND", "cassandra")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "unknown backend")
}

func TestKeycloakIssuer(t *testing.T) {
	cfg := &Config{}
	require.Equal(t, "", cfg.KeycloakIssuer())
	cfg.Keycloak.URL = "http://kc:8080/"
	require.Equal(t, "http://kc:8080/", cfg.KeycloakIssuer())
	cfg.Keycloak.Realm = "recital"
	require.Equal(t, "http://kc:8080/realms/recital", cfg.KeycloakIssuer())
}

func TestLoadConfig_TokenTTLAndEnvironment(t *testing.T) {
	t.Setenv("BACKEND", "")
	t.Setenv("JWT_TOKEN_TTL", "60")
	t.Setenv("SERVER_ENVIRONMENT", "Production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, time.Hour, cfg.JWT.TokenTTL)
	require.True(t, cfg.IsProduction())

	cfg.Server.Environment = "development"
	require.False(t, cfg.IsProduction())
}
