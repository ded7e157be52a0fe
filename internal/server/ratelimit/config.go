package ratelimit

import (
	"net/http"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration // Buckets unused for this long are dropped
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns an enabled configuration with the default endpoint tiers
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(10, time.Hour, 2),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific tiers. Verification runs
// clone and analyze repositories and call the LLM, so they get the strict tier.
func DefaultEndpointConfigs(verifyLimit int, verifyWindow time.Duration, verifyBurst int) []EndpointConfig {
	return []EndpointConfig{
		{Path: "/verify-skills/", Method: http.MethodPost, Limit: verifyLimit, Window: verifyWindow, Burst: verifyBurst},
		{Path: "/verification/", Method: http.MethodGet, Limit: 120, Window: time.Minute, Burst: 20},
	}
}

// ParseIPList parses a comma-separated list of IP addresses into a set.
func ParseIPList(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, item := range list {
		for _, ip := range strings.Split(item, ",") {
			if ip = strings.TrimSpace(ip); ip != "" {
				result[ip] = true
			}
		}
	}
	return result
}
