package testsupport

import (
	"os"
	"strconv"
	"testing"

	"teamy/internal/adapters/config"
)

// LoadPostgresConfigFromEnv reads connection settings for Postgres integration tests.
// The test is skipped when the required variables are missing.
func LoadPostgresConfigFromEnv(t *testing.T) config.PostgresConfig {
	t.Helper()
	skipIfMissing(t, "POSTGRES_HOST", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB")

	return config.PostgresConfig{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     intValue("POSTGRES_PORT", 5432),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Database: os.Getenv("POSTGRES_DB"),
		SSLMode:  valueWithDefault("POSTGRES_SSL_MODE", "disable"),
		MaxConns: 10,
	}
}

// LoadRedisConfigFromEnv reads connection settings for Redis integration tests.
// Every test run gets its own key prefix.
func LoadRedisConfigFromEnv(t *testing.T) config.RedisConfig {
	t.Helper()
	skipIfMissing(t, "REDIS_HOST")

	return config.RedisConfig{
		Host:      os.Getenv("REDIS_HOST"),
		Port:      intValue("REDIS_PORT", 6379),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        intValue("REDIS_DB", 0),
		KeyPrefix: UniqueName("teamy_test"),
	}
}

func skipIfMissing(t *testing.T, keys ...string) {
	t.Helper()

	missing := make([]string, 0)
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		t.Skipf("integration environment missing, set %v to run", missing)
	}
}

func valueWithDefault(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func intValue(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}

	return fallback
}
