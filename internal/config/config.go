// Package config resolves the referee's environment-level defaults.
// Flags always win; these only fill in what the command line left out,
// optionally seeded from a .env file in the working directory.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Defaults struct {
	EnginePath  string
	DisplayPath string
	AvgTime     time.Duration
	AckRetries  int
	AckBackoff  time.Duration
	Grace       time.Duration
	WatchAddr   string
}

func Load() Defaults {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()
	return Defaults{
		EnginePath:  envString("CCHECK_ENGINE", "./engine"),
		DisplayPath: envString("CCHECK_DISPLAY", "./display"),
		AvgTime:     envDuration("CCHECK_AVGTIME", 2*time.Second),
		AckRetries:  envInt("CCHECK_ACK_RETRIES", 5),
		AckBackoff:  envDuration("CCHECK_ACK_BACKOFF", 250*time.Millisecond),
		Grace:       envDuration("CCHECK_GRACE", 3*time.Second),
		WatchAddr:   envString("CCHECK_WATCH_ADDR", ""),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
