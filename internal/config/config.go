// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven configuration
type Config struct {
	// BaseURL is the CMS backend root, e.g. https://cms.example.edu
	BaseURL string
	// Token is the bearer credential forwarded on every upload; its
	// acquisition and storage are outside this module
	Token   string
	Logging LoggingConfig
	Stub    StubConfig
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// StubConfig holds settings for the development stub server
type StubConfig struct {
	Port            int
	Token           string
	AllowedOrigins  []string
	MaxRequestBytes int64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	cfg.BaseURL = strings.TrimRight(os.Getenv("CMS_BASE_URL"), "/")
	cfg.Token = os.Getenv("CMS_TOKEN")

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	stubPortStr := os.Getenv("STUB_PORT")
	if stubPortStr == "" {
		stubPortStr = "8085" // default port
	}
	stubPort, err := strconv.Atoi(stubPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STUB_PORT: %w", err)
	}
	cfg.Stub.Port = stubPort

	cfg.Stub.Token = os.Getenv("STUB_TOKEN") // optional, enables bearer auth

	origins := os.Getenv("STUB_CORS_ALLOWED_ORIGINS")
	if origins == "" {
		// Default to allow all origins (development tool)
		cfg.Stub.AllowedOrigins = []string{"*"}
	} else {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.Stub.AllowedOrigins = append(cfg.Stub.AllowedOrigins, origin)
			}
		}
		if len(cfg.Stub.AllowedOrigins) == 0 {
			cfg.Stub.AllowedOrigins = []string{"*"}
		}
	}

	maxReqStr := os.Getenv("STUB_MAX_REQUEST_SIZE")
	if maxReqStr == "" {
		maxReqStr = strconv.FormatInt(210<<20, 10) // headroom over the 200MB aggregate cap
	}
	maxReq, err := strconv.ParseInt(maxReqStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STUB_MAX_REQUEST_SIZE: %w", err)
	}
	cfg.Stub.MaxRequestBytes = maxReq

	return cfg, nil
}
