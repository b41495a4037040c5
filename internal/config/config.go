package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig holds settings for the local cache database.
// Driver selects SQLite (default, file at Path) or PostgreSQL (Host/Port/...).
type DatabaseConfig struct {
	Driver             string `yaml:"driver"`
	Path               string `yaml:"path"`
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Name               string `yaml:"name"`
	SSLMode            string `yaml:"sslmode"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	Debug              bool   `yaml:"debug"`
}

// GitHubConfig holds settings for the remote search API.
type GitHubConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	PerPage    int    `yaml:"per_page"`
	Sort       string `yaml:"sort"`
	Order      string `yaml:"order"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SearchConfig tunes the search repository.
type SearchConfig struct {
	Criterion        string `yaml:"criterion"`
	PrefetchDistance int    `yaml:"prefetch_distance"`
	IOConcurrency    int    `yaml:"io_concurrency"`
}

// AppConfig is the centralized configuration struct for the application.
type AppConfig struct {
	Port     string         `yaml:"port"`
	Timezone string         `yaml:"timezone"`
	Database DatabaseConfig `yaml:"database"`
	GitHub   GitHubConfig   `yaml:"github"`
	Search   SearchConfig   `yaml:"search"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *AppConfig {
	return &AppConfig{
		Port:     "8080",
		Timezone: "UTC",
		Database: DatabaseConfig{
			Driver:             DriverSQLite,
			Path:               "reposearch.db",
			Port:               "5432",
			SSLMode:            "disable",
			MaxOpenConns:       10,
			MaxIdleConns:       5,
			ConnMaxLifetimeSec: 300,
		},
		GitHub: GitHubConfig{
			PerPage: 50,
			Sort:    "stars",
			Order:   "desc",
		},
		Search: SearchConfig{
			Criterion:     "stars",
			IOConcurrency: 64,
		},
	}
}

// Load reads configuration from environment variables on top of Defaults.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	cfg := Defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML file over Defaults, then applies environment variables,
// which take precedence over the file.
func LoadFile(path string) (*AppConfig, error) {
	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *AppConfig) {
	c.Port = getEnv("PORT", c.Port)
	c.Timezone = getEnv("APP_TIMEZONE", c.Timezone)

	d := &c.Database
	d.Driver = getEnv("DB_DRIVER", d.Driver)
	d.Path = getEnv("DB_PATH", d.Path)
	d.Host = getEnv("DB_HOST", d.Host)
	d.Port = getEnv("DB_PORT", d.Port)
	d.User = getEnv("DB_USER", d.User)
	d.Password = getEnv("DB_PASSWORD", d.Password)
	d.Name = getEnv("DB_NAME", d.Name)
	d.SSLMode = getEnv("DB_SSLMODE", d.SSLMode)
	d.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", d.MaxOpenConns)
	d.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", d.MaxIdleConns)
	d.ConnMaxLifetimeSec = getEnvInt("DB_CONN_MAX_LIFETIME_SEC", d.ConnMaxLifetimeSec)
	d.Debug = getEnvBool("DB_DEBUG", d.Debug)

	g := &c.GitHub
	g.BaseURL = getEnv("GITHUB_API_URL", g.BaseURL)
	g.Token = getEnv("GITHUB_TOKEN", g.Token)
	g.PerPage = getEnvInt("GITHUB_PER_PAGE", g.PerPage)
	g.Sort = getEnv("GITHUB_SEARCH_SORT", g.Sort)
	g.Order = getEnv("GITHUB_SEARCH_ORDER", g.Order)
	g.TimeoutSec = getEnvInt("GITHUB_TIMEOUT_SEC", g.TimeoutSec)

	s := &c.Search
	s.Criterion = getEnv("SEARCH_CRITERION", s.Criterion)
	s.PrefetchDistance = getEnvInt("SEARCH_PREFETCH_DISTANCE", s.PrefetchDistance)
	s.IOConcurrency = getEnvInt("SEARCH_IO_CONCURRENCY", s.IOConcurrency)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
