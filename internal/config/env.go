// Package config provides centralized configuration management.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted by SCANCHAT_STORE.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// ScanEnv holds all scanchat environment variables.
type ScanEnv struct {
	// APIURL is the scan backend base URL (SCANCHAT_API_URL)
	APIURL string

	// Token is the bearer token for authenticated calls (SCANCHAT_TOKEN)
	Token string

	// Store selects the local store backend (SCANCHAT_STORE)
	Store string

	// RedisURL is used when Store is redis (SCANCHAT_REDIS_URL)
	RedisURL string

	// HTTPTimeout bounds each backend request (SCANCHAT_HTTP_TIMEOUT, seconds)
	HTTPTimeout time.Duration

	// LogLevel is the minimum log level (SCANCHAT_LOG_LEVEL)
	LogLevel string

	// Debug mirrors logs to stderr (SCANCHAT_DEBUG)
	Debug bool
}

var (
	env     *ScanEnv
	envOnce sync.Once
)

// Env returns the singleton environment configuration.
// The .env file under the scanchat home is read first; real environment
// variables always win over it.
func Env() *ScanEnv {
	envOnce.Do(func() {
		_ = godotenv.Load(GetPaths().EnvFile)

		env = &ScanEnv{
			APIURL:      strings.TrimRight(getEnvDefault("SCANCHAT_API_URL", "http://localhost:8000"), "/"),
			Token:       os.Getenv("SCANCHAT_TOKEN"),
			Store:       strings.ToLower(getEnvDefault("SCANCHAT_STORE", StoreSQLite)),
			RedisURL:    getEnvDefault("SCANCHAT_REDIS_URL", "redis://localhost:6379/0"),
			HTTPTimeout: time.Duration(getEnvInt("SCANCHAT_HTTP_TIMEOUT", 120)) * time.Second,
			LogLevel:    getEnvDefault("SCANCHAT_LOG_LEVEL", "info"),
			Debug:       isTruthy(os.Getenv("SCANCHAT_DEBUG")),
		}
	})
	return env
}

// ResetEnv resets the cached environment (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Paths holds standard scanchat directory paths.
type Paths struct {
	// Home is the scanchat home directory (~/.scanchat)
	Home string

	// Data holds the local session database (~/.scanchat/data)
	Data string

	// Logs holds rotated log files (~/.scanchat/logs)
	Logs string

	// EnvFile is the .env file path (~/.scanchat/.env)
	EnvFile string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
// SCANCHAT_HOME overrides the home directory.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		scanHome := os.Getenv("SCANCHAT_HOME")
		if scanHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				home = "."
			}
			scanHome = filepath.Join(home, ".scanchat")
		}

		paths = &Paths{
			Home:    scanHome,
			Data:    filepath.Join(scanHome, "data"),
			Logs:    filepath.Join(scanHome, "logs"),
			EnvFile: filepath.Join(scanHome, ".env"),
		}
	})
	return paths
}

// ResetPaths clears the cached paths (for testing).
func ResetPaths() {
	pathsOnce = sync.Once{}
	paths = nil
}

// Path returns a path under the scanchat home directory.
func Path(parts ...string) string {
	p := GetPaths()
	allParts := append([]string{p.Home}, parts...)
	return filepath.Join(allParts...)
}

// DatabaseFile is the sqlite file holding the session collection.
func DatabaseFile() string {
	return filepath.Join(GetPaths().Data, "sessions.db")
}

// LogFile is the rotated JSON log file.
func LogFile() string {
	return filepath.Join(GetPaths().Logs, "scanchat.log")
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// HasToken reports whether a token is configured at all.
func HasToken() bool {
	return Env().Token != ""
}
