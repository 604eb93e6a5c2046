package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Store/selector configuration file
	StoresFile string

	// Output directory for history and snapshots
	DataDir string

	// Fetcher configuration
	RequestTimeout time.Duration
	MaxRetries     int
	Concurrency    int
	StoreBlockTime time.Duration

	// Memcache configuration (optional; in-memory cache when empty)
	MemcacheAddr string

	// Redis configuration (optional; publishing disabled when addr empty)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	timeoutSec, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "15"))
	maxRetries, _ := strconv.Atoi(getEnv("MAX_RETRIES", "2"))
	concurrency, _ := strconv.Atoi(getEnv("FETCH_CONCURRENCY", "4"))
	blockSec, _ := strconv.Atoi(getEnv("STORE_BLOCK_SECONDS", "300"))

	return Config{
		StoresFile:           getEnv("WEBSITE_CONFIGS", "website_configs.json"),
		DataDir:              getEnv("DATA_DIR", "data"),
		RequestTimeout:       time.Duration(timeoutSec) * time.Second,
		MaxRetries:           maxRetries,
		Concurrency:          concurrency,
		StoreBlockTime:       time.Duration(blockSec) * time.Second,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "prices"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		Environment:          getEnv("PRICEWATCH_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c Config) Validate() error {
	if c.StoresFile == "" {
		return fmt.Errorf("stores file path must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("fetch concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return fmt.Errorf("redis stream count must be at least 1, got %d", c.RedisStreamCount)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
