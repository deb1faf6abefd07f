package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds crawler configuration.
type Config struct {
	PageURL          string // page URL template, must contain one %d for the id
	StartID          int    // explicit start id; 0 means resume from the store
	Count            int    // how many ids to attempt when not unbounded
	Unbounded        bool   // walk ids until the miss threshold trips
	Concurrency      int
	MissThreshold    int
	Timeout          time.Duration
	MaxAttempts      int
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	Delay            time.Duration // politeness delay between requests
	RandomDelay      time.Duration // jitter added to the politeness delay
	OutputFile       string
	OutputFormat     string // csv, json, or dual
	LogFile          string
	UserAgent        string
	MetricsAddr      string
	Verbose          bool
	RespectRobotsTxt bool
}

// DefaultConfig returns the defaults the original dataset was collected with.
func DefaultConfig() *Config {
	return &Config{
		PageURL:          "https://howlongtobeat.com/game/%d",
		StartID:          0,
		Count:            1000,
		Unbounded:        false,
		Concurrency:      8,
		MissThreshold:    400,
		Timeout:          30 * time.Second,
		MaxAttempts:      5,
		RetryBackoff:     600 * time.Millisecond,
		RetryBackoffMax:  30 * time.Second,
		Delay:            250 * time.Millisecond,
		RandomDelay:      350 * time.Millisecond,
		OutputFile:       "hltb_dataset.csv",
		OutputFormat:     "csv",
		LogFile:          "hltb.log",
		UserAgent:        "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		MetricsAddr:      "",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// QueueDepth is the bounded queue capacity between producer and consumer.
func (c *Config) QueueDepth() int {
	return c.Concurrency * 8
}

// URLFor builds the page URL for an identifier.
func (c *Config) URLFor(id int) string {
	return fmt.Sprintf(c.PageURL, id)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.PageURL == "" {
		return fmt.Errorf("page URL cannot be empty")
	}
	if strings.Count(c.PageURL, "%d") != 1 {
		return fmt.Errorf("page URL must contain exactly one %%d placeholder")
	}
	parsed, err := url.Parse(c.URLFor(1))
	if err != nil {
		return fmt.Errorf("invalid page URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("page URL must include a host")
	}
	if c.StartID < 0 {
		return fmt.Errorf("start id cannot be negative")
	}
	if !c.Unbounded && c.Count <= 0 {
		return fmt.Errorf("count must be positive in bounded mode")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Unbounded && c.MissThreshold <= 0 {
		return fmt.Errorf("miss threshold must be positive in unbounded mode")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.LogFile == "" {
		return fmt.Errorf("log file cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}

// EnvString reads a string environment override.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment override.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}
