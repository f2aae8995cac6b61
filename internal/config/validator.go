package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

var (
	extractorModes = []string{"local", "docker"}
	storeTypes     = []string{"sqlite", "postgres", "none"}
)

// ValidateConfig validates configuration values and returns an error if any are invalid.
// It should be called after viper has loaded the configuration.
func ValidateConfig() error {
	var errors []string

	for _, key := range []string{"server.read_timeout", "server.write_timeout", "extractor.timeout", "nvd.timeout", "nvd.rate_period"} {
		if viper.IsSet(key) {
			if d := durationOf(key); d <= 0 {
				errors = append(errors, fmt.Sprintf("%s must be positive, got: %v", key, d))
			}
		}
	}

	for _, key := range []string{"server.port", "metrics.port"} {
		if viper.IsSet(key) {
			port := viper.GetInt(key)
			if port < 1 || port > 65535 {
				errors = append(errors, fmt.Sprintf("%s must be between 1 and 65535, got: %d", key, port))
			}
		}
	}

	for _, key := range []string{"nvd.results_per_page", "nvd.rate_limit", "upload.max_size"} {
		if viper.IsSet(key) {
			if n := viper.GetInt64(key); n <= 0 {
				errors = append(errors, fmt.Sprintf("%s must be positive, got: %d", key, n))
			}
		}
	}

	if viper.IsSet("extractor.mode") {
		if mode := viper.GetString("extractor.mode"); !oneOf(mode, extractorModes) {
			errors = append(errors, fmt.Sprintf("extractor.mode must be one of %s, got: %q", strings.Join(extractorModes, ", "), mode))
		}
	}

	if viper.IsSet("store.type") {
		if typ := viper.GetString("store.type"); !oneOf(typ, storeTypes) {
			errors = append(errors, fmt.Sprintf("store.type must be one of %s, got: %q", strings.Join(storeTypes, ", "), typ))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}

	return nil
}

// ValidateAndExit validates the configuration and exits with a non-zero code if validation fails.
func ValidateAndExit() {
	if err := ValidateConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
