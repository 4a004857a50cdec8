package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Scraper  ScraperConfig  `yaml:"scraper" mapstructure:"scraper"`
	Status   StatusConfig   `yaml:"status" mapstructure:"status"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the tile database backend.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BoundaryConfig points at the region boundary file.
type BoundaryConfig struct {
	// Path is a shapefile (.shp) or GeoJSON (.geojson/.json) file.
	Path string `yaml:"path" mapstructure:"path"`
}

// ScraperConfig configures tile fetching.
type ScraperConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Extension string `yaml:"extension" mapstructure:"extension"`
	Zoom      int    `yaml:"zoom" mapstructure:"zoom"`
	TileCount int    `yaml:"tile_count" mapstructure:"tile_count"`
	PaceMs    int    `yaml:"pace_ms" mapstructure:"pace_ms"`
}

// Pace returns the delay between consecutive fetches.
func (c ScraperConfig) Pace() time.Duration {
	return time.Duration(c.PaceMs) * time.Millisecond
}

// StatusConfig sets the zoom window for freshness reports.
type StatusConfig struct {
	MinZoom int `yaml:"min_zoom" mapstructure:"min_zoom"`
	MaxZoom int `yaml:"max_zoom" mapstructure:"max_zoom"`
}

// ServerConfig configures the tile server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
	// StaticDir, when set, is served at the site root.
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"`
	// ContentType is sent with tile responses.
	ContentType string `yaml:"content_type" mapstructure:"content_type"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TILEMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "tiles.db")
	v.SetDefault("boundary.path", "austria.shp")
	v.SetDefault("scraper.endpoint", "https://kataster.bev.gv.at/tiles/kataster")
	v.SetDefault("scraper.extension", "pbf")
	v.SetDefault("scraper.zoom", 16)
	v.SetDefault("scraper.tile_count", 5000)
	v.SetDefault("scraper.pace_ms", 100)
	v.SetDefault("status.min_zoom", 14)
	v.SetDefault("status.max_zoom", 16)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.content_type", "application/x-protobuf")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a given command actually needs. Mode is one
// of "scrape", "serve", or "status".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "scrape":
		if c.Boundary.Path == "" {
			problems = append(problems, "boundary.path is required")
		}
		if c.Scraper.Endpoint == "" {
			problems = append(problems, "scraper.endpoint is required")
		}
		if c.Scraper.Zoom < 0 || c.Scraper.Zoom > 30 {
			problems = append(problems, "scraper.zoom must be between 0 and 30")
		}
		if c.Scraper.PaceMs < 0 {
			problems = append(problems, "scraper.pace_ms must be >= 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Boundary.Path == "" {
			problems = append(problems, "boundary.path is required")
		}
	case "status":
		if c.Boundary.Path == "" {
			problems = append(problems, "boundary.path is required")
		}
		if c.Status.MinZoom > c.Status.MaxZoom {
			problems = append(problems, "status.min_zoom must be <= status.max_zoom")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
