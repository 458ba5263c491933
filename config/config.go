package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-detmir/models"
)

// Config holds scraper configuration.
type Config struct {
	CatalogURL       string
	APIURL           string
	Category         string
	PageSize         int
	MaxAttempts      int
	RetryDelay       time.Duration
	PageDelay        time.Duration
	Timeout          time.Duration
	Cities           []models.City
	OutputFile       string
	OutputFormat     string // csv, json, dual, or sqlite
	UserAgent        string
	AcceptLanguage   string
	RequestedWith    string
	Cookies          string // static "name=value; ..." cookies; empty means headless browser
	BrowserTimeout   time.Duration
	ChromePath       string
	CloudflareBypass bool
	DuplicateWindow  int
	MetricsAddr      string
	Verbose          bool
}

// DefaultConfig returns the settings of a regular scheduled run.
func DefaultConfig() *Config {
	return &Config{
		CatalogURL:       "https://www.detmir.ru/catalog/index/name/lego/",
		APIURL:           "https://api.detmir.ru/v2/products",
		Category:         "lego",
		PageSize:         30,
		MaxAttempts:      10,
		RetryDelay:       10 * time.Second,
		PageDelay:        10 * time.Second,
		Timeout:          30 * time.Second,
		Cities:           models.Cities(),
		OutputFile:       "./data.csv",
		OutputFormat:     "csv",
		UserAgent:        "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/103.0.0.0 Mobile Safari/537.36",
		AcceptLanguage:   "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
		RequestedWith:    "detmir-ui",
		BrowserTimeout:   60 * time.Second,
		CloudflareBypass: false,
		DuplicateWindow:  10000,
		Verbose:          false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateURL("catalog URL", c.CatalogURL); err != nil {
		return err
	}
	if err := validateURL("API URL", c.APIURL); err != nil {
		return err
	}
	if c.Category == "" {
		return fmt.Errorf("category cannot be empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.BrowserTimeout <= 0 {
		return fmt.Errorf("browser timeout must be positive")
	}
	if len(c.Cities) == 0 {
		return fmt.Errorf("at least one city is required")
	}
	for _, city := range c.Cities {
		if !city.Valid() {
			return fmt.Errorf("unknown city %s", city)
		}
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "dual", "sqlite":
	default:
		return fmt.Errorf("output format must be csv, json, dual, or sqlite")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DuplicateWindow <= 0 {
		return fmt.Errorf("duplicate window must be positive")
	}
	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
