package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Site      SiteConfig
	Ingest    IngestConfig
	Browser   BrowserConfig
	Delays    DelayConfig
	Discovery DiscoveryConfig
	Files     FileConfig
	Redis     RedisConfig
	Ops       OpsConfig
	Logging   LoggingConfig
}

type SiteConfig struct {
	BaseURL        string
	BestsellersURL string
}

type IngestConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type BrowserConfig struct {
	Headless       bool
	NavTimeout     time.Duration
	SelectorWait   time.Duration
	ViewportWidth  int
	ViewportHeight int
	MaxRetries     int
	UserAgents     []string
}

type DelayConfig struct {
	SettleMin       time.Duration
	SettleMax       time.Duration
	DepartmentMin   time.Duration
	DepartmentMax   time.Duration
	CategoryMin     time.Duration
	CategoryMax     time.Duration
	BotChallengeMin time.Duration
	BotChallengeMax time.Duration
	BackoffBase     time.Duration
}

type DiscoveryConfig struct {
	MaxDepartments      int
	MaxCategoriesPerDpt int
}

type FileConfig struct {
	CategoriesPath string
	StatePath      string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OpsConfig struct {
	Addr string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Site: SiteConfig{
			BaseURL:        getEnv("AMAZON_BASE_URL", "https://www.amazon.com"),
			BestsellersURL: getEnv("AMAZON_BESTSELLERS_URL", "https://www.amazon.com/gp/bestsellers"),
		},
		Ingest: IngestConfig{
			BaseURL: getEnv("INGEST_BASE_URL", ""),
			Token:   getEnv("INGEST_API_TOKEN", ""),
			Timeout: getEnvDuration("INGEST_TIMEOUT", 30*time.Second),
		},
		Browser: BrowserConfig{
			Headless:       getEnvBool("BROWSER_HEADLESS", true),
			NavTimeout:     getEnvDuration("BROWSER_NAV_TIMEOUT", 60*time.Second),
			SelectorWait:   getEnvDuration("BROWSER_SELECTOR_WAIT", 30*time.Second),
			ViewportWidth:  getEnvInt("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getEnvInt("BROWSER_VIEWPORT_HEIGHT", 1080),
			MaxRetries:     getEnvInt("BROWSER_MAX_RETRIES", 3),
			UserAgents:     getEnvSlice("SCRAPER_USER_AGENTS", defaultUserAgents()),
		},
		Delays: DelayConfig{
			SettleMin:       getEnvDuration("DELAY_SETTLE_MIN", 2*time.Second),
			SettleMax:       getEnvDuration("DELAY_SETTLE_MAX", 4*time.Second),
			DepartmentMin:   getEnvDuration("DELAY_DEPARTMENT_MIN", 5*time.Second),
			DepartmentMax:   getEnvDuration("DELAY_DEPARTMENT_MAX", 10*time.Second),
			CategoryMin:     getEnvDuration("DELAY_CATEGORY_MIN", 8*time.Second),
			CategoryMax:     getEnvDuration("DELAY_CATEGORY_MAX", 15*time.Second),
			BotChallengeMin: getEnvDuration("DELAY_BOT_CHALLENGE_MIN", 30*time.Second),
			BotChallengeMax: getEnvDuration("DELAY_BOT_CHALLENGE_MAX", 60*time.Second),
			BackoffBase:     getEnvDuration("DELAY_BACKOFF_BASE", 10*time.Second),
		},
		Discovery: DiscoveryConfig{
			MaxDepartments:      getEnvInt("DISCOVERY_MAX_DEPARTMENTS", 0),
			MaxCategoriesPerDpt: getEnvInt("DISCOVERY_MAX_CATEGORIES_PER_DEPT", 0),
		},
		Files: FileConfig{
			CategoriesPath: getEnv("CATEGORIES_FILE", "data/categories.json"),
			StatePath:      getEnv("STATE_FILE", "data/scraper-state.json"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Ops: OpsConfig{
			Addr: getEnv("OPS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Ingest.BaseURL == "" {
		return fmt.Errorf("INGEST_BASE_URL is required")
	}

	if c.Ingest.Token == "" {
		return fmt.Errorf("INGEST_API_TOKEN is required")
	}

	if len(c.Browser.UserAgents) < 5 {
		return fmt.Errorf("at least 5 user agents are required, got %d", len(c.Browser.UserAgents))
	}

	if c.Browser.MaxRetries < 1 {
		return fmt.Errorf("BROWSER_MAX_RETRIES must be at least 1")
	}

	pairs := []struct {
		name     string
		min, max time.Duration
	}{
		{"settle", c.Delays.SettleMin, c.Delays.SettleMax},
		{"department", c.Delays.DepartmentMin, c.Delays.DepartmentMax},
		{"category", c.Delays.CategoryMin, c.Delays.CategoryMax},
		{"bot challenge", c.Delays.BotChallengeMin, c.Delays.BotChallengeMax},
	}
	for _, p := range pairs {
		if p.min > p.max {
			return fmt.Errorf("%s delay minimum cannot exceed maximum", p.name)
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	}
}
