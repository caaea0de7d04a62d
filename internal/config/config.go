package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/recitalsite/recital/backend/go-services/internal/store"
)

// DefaultAppID namespaces collections when APP_ID is unset.
const DefaultAppID = store.DefaultAppID

// Backend kinds.
const (
	BackendMemory    = "memory"
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
)

// Config holds application configuration. It is built once at startup and
// passed to every component that needs it.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Backend   BackendConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Firebase  FirebaseConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	MinIO     MinIOConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
	ReadTimeout time.Duration
}

// AppConfig carries the deployment namespace and the environment-provided
// credentials consumed by identity bootstrap.
type AppConfig struct {
	ID               string
	InitialAuthToken string
	SessionToken     string
	AuthorID         string
	SeedOnStart      bool
}

type BackendConfig struct {
	Kind string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// FirebaseConfig holds the backend connection configuration blob and an
// optional service-account credentials file.
type FirebaseConfig struct {
	ConfigJSON      string
	CredentialsFile string
	ProjectID       string
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

type JWTConfig struct {
	Secret string
	// TokenTTL bounds visitor tokens and persisted identity sessions.
	TokenTTL      time.Duration
	AllowInsecure bool
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	URLTTL    time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type LogConfig struct {
	Level    string
	Encoding string
}

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("APP_ID", DefaultAppID)
	v.SetDefault("SEED_ON_START", true)
	v.SetDefault("BACKEND", BackendMemory)
	v.SetDefault("MONGODB_DATABASE", "recital")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("JWT_TOKEN_TTL", 10080)
	v.SetDefault("MINIO_BUCKET", "recital")
	v.SetDefault("MINIO_URL_TTL", 1440)
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "console")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment: v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout: 30 * time.Second,
		},
		App: AppConfig{
			ID:               strings.TrimSpace(v.GetString("APP_ID")),
			InitialAuthToken: os.Getenv("INITIAL_AUTH_TOKEN"),
			SessionToken:     os.Getenv("SESSION_TOKEN"),
			AuthorID:         v.GetString("AUTHOR_ID"),
			SeedOnStart:      v.GetBool("SEED_ON_START"),
		},
		Backend: BackendConfig{
			Kind: strings.ToLower(strings.TrimSpace(v.GetString("BACKEND"))),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Firebase: FirebaseConfig{
			ConfigJSON:      os.Getenv("FIREBASE_CONFIG"),
			CredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
			ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
		},
		Keycloak: KeycloakConfig{
			URL:      v.GetString("KEYCLOAK_URL"),
			Realm:    v.GetString("KEYCLOAK_REALM"),
			ClientID: v.GetString("KEYCLOAK_CLIENT_ID"),
		},
		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			TokenTTL:      time.Duration(v.GetInt("JWT_TOKEN_TTL")) * time.Minute,
			AllowInsecure: strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			URLTTL:    time.Duration(v.GetInt("MINIO_URL_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Log: LogConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
		},
	}

	if cfg.App.ID == "" {
		cfg.App.ID = DefaultAppID
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend-specific requirements.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendMemory:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("environment variable MONGODB_URI is required for backend %q", BackendMongo)
		}
	case BackendFirestore:
		if c.Firebase.ConfigJSON == "" && c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_CONFIG or FIREBASE_PROJECT_ID is required for backend %q", BackendFirestore)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend.Kind)
	}
	return nil
}

// RedisAddr returns host:port, or "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}

// KeycloakIssuer returns the realm issuer URL, falling back to the bare URL
// for deployments that already include the realm path.
func (c *Config) KeycloakIssuer() string {
	if c.Keycloak.URL == "" {
		return ""
	}
	if c.Keycloak.Realm == "" {
		return c.Keycloak.URL
	}
	return strings.TrimRight(c.Keycloak.URL, "/") + "/realms/" + c.Keycloak.Realm
}

// IsProduction reports whether SERVER_ENVIRONMENT names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}
