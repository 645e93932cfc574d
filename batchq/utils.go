package batchq

import (
	"os"
	"strconv"
	"time"
)

// ConfigFromEnv loads `batchq` config from environment.
// - `RELAY_BATCH_WINDOW_MS`
// - `RELAY_BATCH_JITTER_MS`
// - `RELAY_MAX_PENDING`
func ConfigFromEnv() (Config, error) {
	config := DefaultConfig

	if val := os.Getenv("RELAY_BATCH_WINDOW_MS"); val != "" {
		windowMs, err := strconv.Atoi(val)
		if err != nil {
			return config, err
		}
		config.Window = time.Duration(windowMs) * time.Millisecond
	}
	if val := os.Getenv("RELAY_BATCH_JITTER_MS"); val != "" {
		jitterMs, err := strconv.Atoi(val)
		if err != nil {
			return config, err
		}
		config.Jitter = time.Duration(jitterMs) * time.Millisecond
	}
	if val := os.Getenv("RELAY_MAX_PENDING"); val != "" {
		maxPending, err := strconv.Atoi(val)
		if err != nil {
			return config, err
		}
		config.MaxPending = maxPending
	}

	return config, nil
}
