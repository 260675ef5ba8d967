// Package config loads the flat environment configuration the service runs
// on. Values are read once at startup; request handling never re-reads the
// environment.
package config

import (
	"math"
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string
	JWTSecret   string

	// Swap pool settings. PoolAddress may legitimately be unset in
	// environments without a deployed pool; the quoting engine rejects
	// requests instead of defaulting.
	PoolAddress string
	FeeBps      int64
}

func Load() Config {
	return Config{
		Port:        getenvOr("SERVICE_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getenvOr("LOG_LEVEL", "info"),
		JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		PoolAddress: os.Getenv("SWAP_POOL_ADDRESS"),
		FeeBps:      FeeBps(os.Getenv("SWAP_FEE_BPS")),
	}
}

// maxFeeBps is the basis-point denominator; a fee above it would exceed the
// swapped amount itself.
const maxFeeBps = 10000

// FeeBps parses the pool fee. Anything that is not a finite number within
// [0, 10000] collapses to 0 rather than failing startup.
func FeeBps(raw string) int64 {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > maxFeeBps {
		return 0
	}
	return int64(f)
}

func getenvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
