package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Catalogue CatalogueConfig
	Auth      AuthConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type StorageConfig struct {
	Type       string
	Key        string
	LocalPath  string
	SQLiteDSN  string
	BadgerPath string
}

// DatabaseConfig is only read when Storage.Type is "couchdb".
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type CatalogueConfig struct {
	Path         string
	URL          string
	Watch        bool
	FetchTimeout time.Duration
}

// AuthConfig leaves the API open when PassphraseHash is empty.
type AuthConfig struct {
	PassphraseHash string
	JWTSecret      string
	JWTExpiration  time.Duration
}

func (a AuthConfig) Enabled() bool {
	return a.PassphraseHash != ""
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxClients      int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Apply configures the standard logrus logger. An unknown level falls back
// to info.
func (l LoggingConfig) Apply() {
	if strings.EqualFold(l.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		logrus.WithField("level", l.Level).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

type MetricsConfig struct {
	Enabled bool
}

const (
	StorageMemory     = "memory"
	StorageFilesystem = "filesystem"
	StorageSQLite     = "sqlite"
	StorageBadger     = "badger"
	StorageCouchDB    = "couchdb"

	DefaultStorageKey = "boulderApp_boulders"
)

func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := getEnvAsDuration("JWT_EXPIRATION", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := getEnvAsDuration("CATALOGUE_FETCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	pongWait, err := getEnvAsDuration("WS_PONG_WAIT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	storageType := strings.ToLower(getEnv("STORAGE_TYPE", StorageFilesystem))
	switch storageType {
	case StorageMemory, StorageFilesystem, StorageSQLite, StorageBadger, StorageCouchDB:
	default:
		return nil, fmt.Errorf("invalid STORAGE_TYPE %q", storageType)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Storage: StorageConfig{
			Type:       storageType,
			Key:        getEnv("STORAGE_KEY", DefaultStorageKey),
			LocalPath:  getEnv("LOCAL_STORAGE_PATH", "./data"),
			SQLiteDSN:  getEnv("SQLITE_DSN", "boulders.db"),
			BadgerPath: getEnv("BADGER_PATH", "./data/badger"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("COUCHDB_HOST", "localhost"),
			Port:     getEnv("COUCHDB_PORT", "5984"),
			User:     getEnv("COUCHDB_USER", "admin"),
			Password: getEnv("COUCHDB_PASSWORD", "password"),
			Name:     getEnv("COUCHDB_NAME", "boulders"),
		},
		Catalogue: CatalogueConfig{
			Path:         getEnv("CATALOGUE_PATH", ""),
			URL:          getEnv("CATALOGUE_URL", ""),
			Watch:        getEnvAsBool("CATALOGUE_WATCH", false),
			FetchTimeout: fetchTimeout,
		},
		Auth: AuthConfig{
			PassphraseHash: getEnv("EDITOR_PASSPHRASE_HASH", ""),
			JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			JWTExpiration:  jwtExp,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 1048576)),
			WriteWait:       10 * time.Second,
			PongWait:        pongWait,
			PingPeriod:      pongWait * 9 / 10,
			MaxClients:      getEnvAsInt("WS_MAX_CLIENTS", 32),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
