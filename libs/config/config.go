package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// env reads straight from the process environment on every lookup; values
// set after start (tests, .env loading) are seen.
var env = newEnv()

func newEnv() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

func lookup(key string) string {
	return strings.TrimSpace(env.GetString(key))
}

func String(key, fallback string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return fallback
}

func RequiredString(key string) (string, error) {
	v := lookup(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func Port(key, fallback string) (string, error) {
	v := String(key, fallback)
	p, err := cast.ToIntE(v)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return v, nil
}

// Int returns the integer value of key, or fallback when unset.
// A set but malformed value is an error rather than a silent default.
func Int(key string, fallback int) (int, error) {
	raw := lookup(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", key, raw)
	}
	return n, nil
}

func Float(key string, fallback float64) (float64, error) {
	raw := lookup(key)
	if raw == "" {
		return fallback, nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number (got %q)", key, raw)
	}
	return f, nil
}

// Duration accepts Go duration syntax ("2s", "1m30s").
func Duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := lookup(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := cast.ToDurationE(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration (got %q)", key, raw)
	}
	return d, nil
}

func Bool(key string, fallback bool) (bool, error) {
	raw := lookup(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean (got %q)", key, raw)
	}
	return b, nil
}

// List splits a comma separated value, dropping blanks.
func List(key string) []string {
	var out []string
	for _, part := range strings.Split(lookup(key), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
