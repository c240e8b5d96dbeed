package config

import (
	"os"
	"strconv"
)

// ApplyEnv overrides settings from NEWSHOUND_* environment variables.
// Unparseable values are ignored.
func (c *Config) ApplyEnv() {
	c.Browser.Sessions = getEnvInt("NEWSHOUND_SESSIONS", c.Browser.Sessions)
	c.Browser.Headless = getEnvBool("NEWSHOUND_HEADLESS", c.Browser.Headless)
	c.Browser.ChromePath = getEnv("NEWSHOUND_CHROME_PATH", c.Browser.ChromePath)
	c.Browser.UserAgent = getEnv("NEWSHOUND_USER_AGENT", c.Browser.UserAgent)

	c.Search.Workers = getEnvInt("NEWSHOUND_SEARCH_WORKERS", c.Search.Workers)
	c.Search.AwaitTimeout = getEnvDuration("NEWSHOUND_AWAIT_TIMEOUT", c.Search.AwaitTimeout)

	c.Content.Workers = getEnvInt("NEWSHOUND_CONTENT_WORKERS", c.Content.Workers)
	c.Content.Budget = getEnvDuration("NEWSHOUND_CONTENT_BUDGET", c.Content.Budget)
	c.Content.RequestTimeout = getEnvDuration("NEWSHOUND_REQUEST_TIMEOUT", c.Content.RequestTimeout)

	c.Output.Stubs = getEnv("NEWSHOUND_STUBS_FILE", c.Output.Stubs)
	c.Output.Content = getEnv("NEWSHOUND_CONTENT_FILE", c.Output.Content)
	c.Output.Health = getEnv("NEWSHOUND_HEALTH_DSN", c.Output.Health)

	c.Log.Level = getEnv("NEWSHOUND_LOG_LEVEL", c.Log.Level)
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := parseDuration(value); err == nil {
			return Duration(duration)
		}
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool parses a bool from environment variable or returns default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
