package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigFile is read when present; every value also has a default.
const DefaultConfigFile = "configs/config.yaml"

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		// Timezone calendar dates are interpreted in, e.g. "Asia/Shanghai".
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"server"`

	Database struct {
		Driver     string `mapstructure:"driver"` // postgres | sqlite
		Host       string `mapstructure:"host"`
		Port       int    `mapstructure:"port"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		Name       string `mapstructure:"name"`
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"database"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Storage struct {
		Driver    string `mapstructure:"driver"` // s3 | fs | memory
		Bucket    string `mapstructure:"bucket"`
		FSRoot    string `mapstructure:"fs_root"`
		PublicURL string `mapstructure:"public_url"`
		S3        struct {
			Endpoint        string `mapstructure:"endpoint"`
			Region          string `mapstructure:"region"`
			AccessKeyID     string `mapstructure:"access_key_id"`
			SecretAccessKey string `mapstructure:"secret_access_key"`
			PathStyle       bool   `mapstructure:"path_style"`
		} `mapstructure:"s3"`
	} `mapstructure:"storage"`

	Assistant struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"assistant"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // json | console
	} `mapstructure:"log"`

	source string
}

// Source names where settings came from: the file path or "defaults".
func (c *Config) Source() string {
	return c.source
}

// DSN builds the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("server.timezone", "Local")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "mushroomlog")
	v.SetDefault("database.sqlite_path", "data/mushroomlog.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.expiration_hours", 24*7)
	v.SetDefault("jwt.issuer", "mushroomlog")

	v.SetDefault("storage.driver", "fs")
	v.SetDefault("storage.bucket", "grow_images")
	v.SetDefault("storage.fs_root", "data/images")
	v.SetDefault("storage.public_url", "/images")
	v.SetDefault("storage.s3.region", "auto")

	v.SetDefault("assistant.model", "gemini-3-flash-preview")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads .env, the optional YAML file at path and environment overrides.
// Environment keys mirror the YAML path with "_" for ".", e.g. DATABASE_DRIVER.
func Load(path string) (*Config, error) {
	// .env is optional in production
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path == "" {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	fileUsed := true
	if err := v.ReadInConfig(); err != nil {
		fileUsed = false
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// AutomaticEnv only resolves keys viper already knows; the secrets below
	// have no default so they are bound explicitly.
	for key, dst := range map[string]*string{
		"jwt.secret":                   &cfg.JWT.Secret,
		"database.password":            &cfg.Database.Password,
		"redis.password":               &cfg.Redis.Password,
		"assistant.api_key":            &cfg.Assistant.APIKey,
		"storage.s3.endpoint":          &cfg.Storage.S3.Endpoint,
		"storage.s3.access_key_id":     &cfg.Storage.S3.AccessKeyID,
		"storage.s3.secret_access_key": &cfg.Storage.S3.SecretAccessKey,
	} {
		_ = v.BindEnv(key)
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}

	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET not set in environment or config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !fileUsed {
		cfg.source = "defaults"
	} else {
		cfg.source = path
	}
	return &cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "s3", "fs", "memory":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	return nil
}
