package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-detmir/models"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given files (".env" when none are
// given). Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key as a time.Duration ("10s", "500ms").
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ParseCities parses a comma separated list such as "RU_MOW,RU-SPE".
func ParseCities(raw string) ([]models.City, error) {
	var cities []models.City
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		city, err := models.ParseCity(part)
		if err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("no cities in %q", raw)
	}
	return cities, nil
}

// ApplyEnv overrides cfg with SCRAPER_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("SCRAPER_CATALOG_URL"); ok {
		c.CatalogURL = v
	}
	if v, ok := EnvString("SCRAPER_API_URL"); ok {
		c.APIURL = v
	}
	if v, ok := EnvString("SCRAPER_OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString("SCRAPER_FORMAT"); ok {
		c.OutputFormat = strings.ToLower(v)
	}
	if v, ok := EnvString("SCRAPER_USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := EnvString("SCRAPER_COOKIES"); ok {
		c.Cookies = v
	}
	if v, ok := EnvString("SCRAPER_CHROME_PATH"); ok {
		c.ChromePath = v
	}
	if v, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok := EnvString("SCRAPER_CITIES"); ok {
		cities, err := ParseCities(v)
		if err != nil {
			return fmt.Errorf("SCRAPER_CITIES: %w", err)
		}
		c.Cities = cities
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SCRAPER_MAX_ATTEMPTS", &c.MaxAttempts},
		{"SCRAPER_DUPLICATE_WINDOW", &c.DuplicateWindow},
	}
	for _, e := range ints {
		v, ok, err := EnvInt(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SCRAPER_RETRY_DELAY", &c.RetryDelay},
		{"SCRAPER_PAGE_DELAY", &c.PageDelay},
		{"SCRAPER_TIMEOUT", &c.Timeout},
		{"SCRAPER_BROWSER_TIMEOUT", &c.BrowserTimeout},
	}
	for _, e := range durations {
		v, ok, err := EnvDuration(e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	if v, ok, err := EnvBool("SCRAPER_CLOUDFLARE_BYPASS"); err != nil {
		return err
	} else if ok {
		c.CloudflareBypass = v
	}
	return nil
}
