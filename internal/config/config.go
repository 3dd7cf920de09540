package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix               = "WEDDING"
	defaultHTTPAddress      = "0.0.0.0:8000"
	defaultDatabasePath     = "wedding.db"
	defaultLogLevel         = "info"
	defaultPhotosDir        = "data/photos"
	defaultPhotosMaxBytes   = 15 << 20
	defaultPhotosRateLimit  = 30
	defaultPhotosRateWindow = time.Hour
)

var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:5174",
	"https://caterina.edoardogabrielli.com",
}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress      string
	DatabasePath     string
	LogLevel         string
	AdminPassword    string
	AllowedOrigins   []string
	PhotosDir        string
	PhotosMaxBytes   int64
	PhotosRateLimit  int
	PhotosRateWindow time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("cors.allowed_origins", defaultAllowedOrigins)
	configViper.SetDefault("photos.dir", defaultPhotosDir)
	configViper.SetDefault("photos.max_bytes", defaultPhotosMaxBytes)
	configViper.SetDefault("photos.rate_limit", defaultPhotosRateLimit)
	configViper.SetDefault("photos.rate_window", defaultPhotosRateWindow)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:      configViper.GetString("http.address"),
		DatabasePath:     configViper.GetString("database.path"),
		LogLevel:         configViper.GetString("log.level"),
		AdminPassword:    configViper.GetString("admin.password"),
		AllowedOrigins:   splitOrigins(configViper.GetStringSlice("cors.allowed_origins")),
		PhotosDir:        configViper.GetString("photos.dir"),
		PhotosMaxBytes:   configViper.GetInt64("photos.max_bytes"),
		PhotosRateLimit:  configViper.GetInt("photos.rate_limit"),
		PhotosRateWindow: configViper.GetDuration("photos.rate_window"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// LoadStorage parses only the keys needed to open the database, for commands
// that do not serve HTTP.
func LoadStorage(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		DatabasePath: configViper.GetString("database.path"),
		LogLevel:     configViper.GetString("log.level"),
	}
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return AppConfig{}, fmt.Errorf("database.path is required")
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AdminPassword) == "" {
		return fmt.Errorf("admin.password is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.PhotosDir) == "" {
		return fmt.Errorf("photos.dir is required")
	}
	if c.PhotosMaxBytes <= 0 {
		return fmt.Errorf("photos.max_bytes must be positive")
	}
	if c.PhotosRateLimit <= 0 {
		return fmt.Errorf("photos.rate_limit must be positive")
	}
	if c.PhotosRateWindow <= 0 {
		return fmt.Errorf("photos.rate_window must be positive")
	}
	return nil
}

// splitOrigins accepts both list values and a comma separated env string.
func splitOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}
