// Package config builds the service configuration from the process
// environment in exactly one place. Components receive explicit values
// from this struct and never read the environment themselves, which
// keeps them testable in isolation.
package config

import "os"

// Config holds everything the service needs at startup.
type Config struct {
	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	RedisAddr string
	Port      string

	// OpenRouterKey authorizes the external AI search/analysis API. An
	// empty key leaves the HTTP API up; content operations fail with a
	// configuration error instead.
	OpenRouterKey string

	// SearchModel plus SearchFallbacks are tried in order by the router.
	SearchModel     string
	SearchFallbacks []string
}

// FromEnv reads the environment once and fills defaults.
func FromEnv() Config {
	return Config{
		DBHost:        envOrDefault("DB_HOST", "localhost"),
		DBPort:        envOrDefault("DB_PORT", "5432"),
		DBName:        envOrDefault("DB_NAME", "geobit_db"),
		DBUser:        envOrDefault("DB_USER", "geobit_user"),
		DBPass:        envOrDefault("DB_PASS", "geobit"),
		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		Port:          envOrDefault("PORT", "8080"),
		OpenRouterKey: os.Getenv("OPENROUTER_API_KEY"),
		SearchModel:   envOrDefault("SEARCH_MODEL", "perplexity/sonar"),
		SearchFallbacks: []string{
			"perplexity/sonar-pro",
			"openai/gpt-4o-mini:online",
		},
	}
}

func envOrDefault(key, d string) string {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	return v
}
