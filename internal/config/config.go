package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Output   OutputConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Status   StatusConfig
	Logging  LoggingConfig
}

type OutputConfig struct {
	Dir       string
	Aggregate bool
}

type ScraperConfig struct {
	MaxCategories   int
	MaxPages        int
	OnePage         bool
	Fast            bool
	Discover        bool
	MaxRetries      int
	NextPageTimeout time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	UserAgent      string
	RemoteURL      string
	ProxyServer    string
}

type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

type StatusConfig struct {
	Addr string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Output: OutputConfig{
			Dir:       getEnvOrDefault("OUTPUT_DIR", "out"),
			Aggregate: getBoolOrDefault("OUTPUT_AGGREGATE", false),
		},
		Scraper: ScraperConfig{
			MaxCategories:   getIntOrDefault("SCRAPER_MAX_CATEGORIES", 0),
			MaxPages:        getIntOrDefault("SCRAPER_MAX_PAGES", 0),
			OnePage:         getBoolOrDefault("SCRAPER_ONE_PAGE", true),
			Fast:            getBoolOrDefault("SCRAPER_FAST", false),
			Discover:        getBoolOrDefault("SCRAPER_DISCOVER", false),
			MaxRetries:      getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			NextPageTimeout: getDurationOrDefault("SCRAPER_NEXT_PAGE_TIMEOUT", 15*time.Second),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "es-CO,es;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/Bogota"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "es-CO"),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			RemoteURL:      getEnvOrDefault("BROWSER_REMOTE_URL", ""),
			ProxyServer:    proxyFromEnv(),
		},
		Database: DatabaseConfig{
			URL:      getEnvOrDefault("DATABASE_URL", ""),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 4)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:scraped_products"),
			MaxLen:   int64(getIntOrDefault("REDIS_STREAM_MAXLEN", 100000)),
		},
		Status: StatusConfig{
			Addr: getEnvOrDefault("STATUS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Output.Dir == "" {
		return fmt.Errorf("OUTPUT_DIR cannot be empty")
	}

	if c.Scraper.MaxCategories < 0 {
		return fmt.Errorf("max categories cannot be negative")
	}

	if c.Scraper.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}

	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Scraper.NextPageTimeout <= 0 {
		return fmt.Errorf("SCRAPER_NEXT_PAGE_TIMEOUT must be positive")
	}

	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("BROWSER_TIMEOUT must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// proxyFromEnv honours the conventional proxy variables, HTTPS first.
func proxyFromEnv() string {
	for _, key := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
