package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Getenv returns the value of k, or d when unset or empty.
func Getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

// Int parses k as an int. Malformed values fall back to d.
func Int(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return d
	}
	return i
}

func Float(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return d
	}
	return f
}

func Bool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return d
	}
	return b
}

// Duration parses k with time.ParseDuration ("250ms", "15s", ...).
func Duration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return dur
		}
	}
	return d
}
