package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by store.driver.
const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreBadger   = "badger"
	StoreMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	DynamoDB DynamoDBConfig
	DB       DBConfig
	Badger   BadgerConfig
	S3       S3Config
	List     ListConfig
	Log      LogConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	// BasePath mounts the API a second time under a prefix, e.g. an API
	// Gateway stage name.
	BasePath string `mapstructure:"base_path"`
}

// StoreConfig selects the metadata store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// DynamoDBConfig holds DynamoDB table settings.
type DynamoDBConfig struct {
	Region    string `mapstructure:"region"`
	Table     string `mapstructure:"table"`
	UserIndex string `mapstructure:"user_index"`
	Endpoint  string `mapstructure:"endpoint"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// BadgerConfig holds embedded store settings.
type BadgerConfig struct {
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

// S3Config holds AWS S3 settings. Expiries are in seconds.
type S3Config struct {
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	UploadExpiry   int64  `mapstructure:"upload_expiry"`
	DownloadExpiry int64  `mapstructure:"download_expiry"`
}

// UploadTTL returns the presigned PUT lifetime.
func (s *S3Config) UploadTTL() time.Duration {
	return time.Duration(s.UploadExpiry) * time.Second
}

// DownloadTTL returns the presigned GET lifetime.
func (s *S3Config) DownloadTTL() time.Duration {
	return time.Duration(s.DownloadExpiry) * time.Second
}

// ListConfig holds pagination bounds for List.
type ListConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the IMGMETA_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IMGMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.base_path", "")

	v.SetDefault("store.driver", StoreDynamoDB)

	// DynamoDB defaults
	v.SetDefault("dynamodb.region", "us-east-1")
	v.SetDefault("dynamodb.table", "images")
	v.SetDefault("dynamodb.user_index", "UserIndex")
	v.SetDefault("dynamodb.endpoint", "")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "imgmeta")
	v.SetDefault("db.password", "imgmeta_secret")
	v.SetDefault("db.name", "imgmeta")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	v.SetDefault("badger.dir", "data/badger")
	v.SetDefault("badger.in_memory", false)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "imgmeta-images")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.upload_expiry", 900)
	v.SetDefault("s3.download_expiry", 300)

	v.SetDefault("list.default_limit", 10)
	v.SetDefault("list.max_limit", 100)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":          "IMGMETA_SERVER_PORT",
		"server.read_timeout":  "IMGMETA_SERVER_READ_TIMEOUT",
		"server.write_timeout": "IMGMETA_SERVER_WRITE_TIMEOUT",
		"server.environment":   "IMGMETA_SERVER_ENVIRONMENT",
		"server.base_path":     "IMGMETA_SERVER_BASE_PATH",
		"store.driver":         "IMGMETA_STORE_DRIVER",
		"dynamodb.region":      "IMGMETA_DYNAMODB_REGION",
		"dynamodb.table":       "IMGMETA_DYNAMODB_TABLE",
		"dynamodb.user_index":  "IMGMETA_DYNAMODB_USER_INDEX",
		"dynamodb.endpoint":    "IMGMETA_DYNAMODB_ENDPOINT",
		"db.host":              "IMGMETA_DB_HOST",
		"db.port":              "IMGMETA_DB_PORT",
		"db.user":              "IMGMETA_DB_USER",
		"db.password":          "IMGMETA_DB_PASSWORD",
		"db.name":              "IMGMETA_DB_NAME",
		"db.sslmode":           "IMGMETA_DB_SSLMODE",
		"db.max_open":          "IMGMETA_DB_MAX_OPEN",
		"db.max_idle":          "IMGMETA_DB_MAX_IDLE",
		"badger.dir":           "IMGMETA_BADGER_DIR",
		"badger.in_memory":     "IMGMETA_BADGER_IN_MEMORY",
		"s3.region":            "IMGMETA_S3_REGION",
		"s3.bucket":            "IMGMETA_S3_BUCKET",
		"s3.endpoint":          "IMGMETA_S3_ENDPOINT",
		"s3.access_key":        "IMGMETA_S3_ACCESS_KEY",
		"s3.secret_key":        "IMGMETA_S3_SECRET_KEY",
		"s3.upload_expiry":     "IMGMETA_S3_UPLOAD_EXPIRY",
		"s3.download_expiry":   "IMGMETA_S3_DOWNLOAD_EXPIRY",
		"list.default_limit":   "IMGMETA_LIST_DEFAULT_LIMIT",
		"list.max_limit":       "IMGMETA_LIST_MAX_LIMIT",
		"log.level":            "IMGMETA_LOG_LEVEL",
		"log.format":           "IMGMETA_LOG_FORMAT",
		"cors.allowed_origins": "IMGMETA_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	// The deployed Lambda stack names its resources with these variables.
	if table := os.Getenv("TABLE_NAME"); table != "" && os.Getenv("IMGMETA_DYNAMODB_TABLE") == "" {
		v.Set("dynamodb.table", table)
	}
	if bucket := os.Getenv("IMAGE_BUCKET"); bucket != "" && os.Getenv("IMGMETA_S3_BUCKET") == "" {
		v.Set("s3.bucket", bucket)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if IMGMETA_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("IMGMETA_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		BasePath:     strings.TrimRight(v.GetString("server.base_path"), "/"),
	}
	cfg.Store = StoreConfig{
		Driver: strings.ToLower(v.GetString("store.driver")),
	}
	cfg.DynamoDB = DynamoDBConfig{
		Region:    v.GetString("dynamodb.region"),
		Table:     v.GetString("dynamodb.table"),
		UserIndex: v.GetString("dynamodb.user_index"),
		Endpoint:  v.GetString("dynamodb.endpoint"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Badger = BadgerConfig{
		Dir:      v.GetString("badger.dir"),
		InMemory: v.GetBool("badger.in_memory"),
	}
	cfg.S3 = S3Config{
		Region:         v.GetString("s3.region"),
		Bucket:         v.GetString("s3.bucket"),
		Endpoint:       v.GetString("s3.endpoint"),
		AccessKey:      v.GetString("s3.access_key"),
		SecretKey:      v.GetString("s3.secret_key"),
		UploadExpiry:   v.GetInt64("s3.upload_expiry"),
		DownloadExpiry: v.GetInt64("s3.download_expiry"),
	}
	cfg.List = ListConfig{
		DefaultLimit: v.GetInt("list.default_limit"),
		MaxLimit:     v.GetInt("list.max_limit"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDynamoDB, StorePostgres, StoreBadger, StoreMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.S3.UploadExpiry <= 0 || c.S3.DownloadExpiry <= 0 {
		return fmt.Errorf("config: s3 presign expiries must be positive")
	}
	if c.List.DefaultLimit <= 0 || c.List.MaxLimit < c.List.DefaultLimit {
		return fmt.Errorf("config: list limits must satisfy 0 < default_limit <= max_limit")
	}
	return nil
}
