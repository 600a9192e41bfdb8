package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	TMDB      TMDBConfig      `koanf:"tmdb"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Mongo     MongoConfig     `koanf:"mongo"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Minio     MinioConfig     `koanf:"minio"`
	Auth      AuthConfig      `koanf:"auth"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port        string   `koanf:"port"`
	CORSOrigins []string `koanf:"cors_origins"`
}

type TMDBConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	MaxConns int    `koanf:"max_conns"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
}

// MongoConfig is optional; an empty URI disables recommendation history.
type MongoConfig struct {
	URI string `koanf:"uri"`
	DB  string `koanf:"db"`
}

type ArtifactsConfig struct {
	Source         string `koanf:"source"` // file | minio
	Dir            string `koanf:"dir"`
	MoviesFile     string `koanf:"movies_file"`
	SimilarityFile string `koanf:"similarity_file"`
}

type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type AuthConfig struct {
	PasswordScheme  string        `koanf:"password_scheme"` // bcrypt | sha256
	RateLimit       int           `koanf:"rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ConfigError reports a missing or invalid setting. It is fatal at startup.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// ConfigPathEnvVar names an optional YAML file layered between defaults and env.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		TMDB: TMDBConfig{
			BaseURL: "https://api.themoviedb.org",
			Timeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Name:     "movie_recommendation",
			MaxConns: 10,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Mongo: MongoConfig{DB: "movie_recommendation"},
		Artifacts: ArtifactsConfig{
			Source:         "file",
			Dir:            "data",
			MoviesFile:     "movie_list.csv",
			SimilarityFile: "similarity.json",
		},
		Minio: MinioConfig{
			Endpoint: "minio:9000",
			Bucket:   "movie-artifacts",
		},
		Auth: AuthConfig{
			PasswordScheme:  "bcrypt",
			RateLimit:       20,
			RateLimitWindow: time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// envKeys maps environment variable names onto koanf paths.
var envKeys = map[string]string{
	"PORT":                   "server.port",
	"CORS_ORIGINS":           "server.cors_origins",
	"TMDB_API_KEY":           "tmdb.api_key",
	"TMDB_BASE_URL":          "tmdb.base_url",
	"TMDB_TIMEOUT":           "tmdb.timeout",
	"DB_HOST":                "database.host",
	"DB_PORT":                "database.port",
	"DB_USER":                "database.user",
	"DB_PASSWORD":            "database.password",
	"DB_NAME":                "database.name",
	"DB_MAX_CONNS":           "database.max_conns",
	"REDIS_ADDR":             "redis.addr",
	"REDIS_PASSWORD":         "redis.password",
	"MONGO_URI":              "mongo.uri",
	"MONGO_DB":               "mongo.db",
	"ARTIFACTS_SOURCE":       "artifacts.source",
	"ARTIFACTS_DIR":          "artifacts.dir",
	"MOVIES_FILE":            "artifacts.movies_file",
	"SIMILARITY_FILE":        "artifacts.similarity_file",
	"MINIO_ENDPOINT":         "minio.endpoint",
	"MINIO_ACCESS_KEY":       "minio.access_key",
	"MINIO_SECRET_KEY":       "minio.secret_key",
	"MINIO_BUCKET":           "minio.bucket",
	"MINIO_USE_SSL":          "minio.use_ssl",
	"PASSWORD_SCHEME":        "auth.password_scheme",
	"AUTH_RATE_LIMIT":        "auth.rate_limit",
	"AUTH_RATE_LIMIT_WINDOW": "auth.rate_limit_window",
	"LOG_LEVEL":              "log.level",
	"LOG_FORMAT":             "log.format",
}

func envTransform(key string) string {
	return envKeys[key]
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads .env (if present), then layers defaults, an optional YAML
// file and the environment. It does not validate.
func Read() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if v, ok := k.Get("server.cors_origins").(string); ok {
		if err := k.Set("server.cors_origins", splitList(v)); err != nil {
			return nil, fmt.Errorf("parse cors origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	for _, p := range []string{os.Getenv(ConfigPathEnvVar), "config.yaml", "config.yml"} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks required settings. A missing TMDB key halts startup.
func (c *Config) Validate() error {
	if c.TMDB.APIKey == "" {
		return &ConfigError{Key: "TMDB_API_KEY", Reason: "TMDB API key not found; add it to your .env file"}
	}
	switch c.Artifacts.Source {
	case "file", "minio":
	default:
		return &ConfigError{Key: "ARTIFACTS_SOURCE", Reason: fmt.Sprintf("unknown source %q (want file|minio)", c.Artifacts.Source)}
	}
	switch c.Auth.PasswordScheme {
	case "bcrypt", "sha256":
	default:
		return &ConfigError{Key: "PASSWORD_SCHEME", Reason: fmt.Sprintf("unknown scheme %q (want bcrypt|sha256)", c.Auth.PasswordScheme)}
	}
	if c.Database.Name == "" {
		return &ConfigError{Key: "DB_NAME", Reason: "must not be empty"}
	}
	return nil
}

// DSN returns the Postgres connection string for the application database.
func (d DatabaseConfig) DSN() string {
	return d.dsn(d.Name)
}

// AdminDSN points at the maintenance database, used to create Name itself.
func (d DatabaseConfig) AdminDSN() string {
	return d.dsn("postgres")
}

func (d DatabaseConfig) dsn(db string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + db,
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	if d.MaxConns > 0 {
		q.Set("pool_max_conns", strconv.Itoa(d.MaxConns))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
