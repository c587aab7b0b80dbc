package config

import (
	"os"
	"strconv"
	"time"
)

// MongoConfig returns the connection URI and database name.
func MongoConfig() (string, string) {
	uri := GetEnv("MONGO_URI", "mongodb://localhost:27017")
	database := GetEnv("MONGO_DB", "reminderapp")
	return uri, database
}

// RedisConfig returns host, port, password
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "redis")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

// JWTSecret returns the signing key for access tokens.
func JWTSecret() string {
	return GetEnv("JWT_SECRET", "")
}

// PushURL returns the push delivery endpoint (Expo by default).
func PushURL() string {
	return GetEnv("PUSH_URL", "https://exp.host/--/api/v2/push/send")
}

// SweepInterval returns how often the expiry sweeper scans for overdue
// reminders.
func SweepInterval() time.Duration {
	return GetDurationEnv("SWEEP_INTERVAL", 60*time.Second)
}

// PollInterval returns how often the agent refreshes the reminder list
// while focused.
func PollInterval() time.Duration {
	return GetDurationEnv("POLL_INTERVAL", 2*time.Second)
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetDurationEnv reads an environment variable as a number of seconds,
// falling back to defaultValue when unset or unparsable.
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
