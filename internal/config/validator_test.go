package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		setup     func()
		wantError bool
		errMsg    string
	}{
		{
			name: "Valid Configuration",
			setup: func() {
				viper.Set("extractor.timeout", "120s")
				viper.Set("nvd.results_per_page", 20)
				viper.Set("server.port", 8080)
				viper.Set("store.type", "postgres")
				viper.Set("extractor.mode", "docker")
			},
			wantError: false,
		},
		{
			name:      "Defaults Are Valid",
			setup:     SetDefaults,
			wantError: false,
		},
		{
			name: "Invalid Timeout (Negative Duration)",
			setup: func() {
				viper.Set("extractor.timeout", "-10s")
			},
			wantError: true,
			errMsg:    "extractor.timeout must be positive",
		},
		{
			name: "Invalid Timeout (Negative Int)",
			setup: func() {
				viper.Set("nvd.timeout", -10)
			},
			wantError: true,
			errMsg:    "nvd.timeout must be positive",
		},
		{
			name: "Zero Write Timeout",
			setup: func() {
				viper.Set("server.write_timeout", 0)
			},
			wantError: true,
			errMsg:    "server.write_timeout must be positive",
		},
		{
			name: "Invalid Port (Too Low)",
			setup: func() {
				viper.Set("server.port", 0)
			},
			wantError: true,
			errMsg:    "server.port must be between 1 and 65535",
		},
		{
			name: "Invalid Metrics Port",
			setup: func() {
				viper.Set("metrics.port", 99999)
			},
			wantError: true,
			errMsg:    "metrics.port must be between 1 and 65535",
		},
		{
			name: "Invalid Page Size",
			setup: func() {
				viper.Set("nvd.results_per_page", 0)
			},
			wantError: true,
			errMsg:    "nvd.results_per_page must be positive",
		},
		{
			name: "Invalid Upload Size",
			setup: func() {
				viper.Set("upload.max_size", -1)
			},
			wantError: true,
			errMsg:    "upload.max_size must be positive",
		},
		{
			name: "Unknown Extractor Mode",
			setup: func() {
				viper.Set("extractor.mode", "qemu")
			},
			wantError: true,
			errMsg:    "extractor.mode must be one of local, docker",
		},
		{
			name: "Unknown Store Type",
			setup: func() {
				viper.Set("store.type", "mongo")
			},
			wantError: true,
			errMsg:    "store.type must be one of sqlite, postgres, none",
		},
		{
			name: "Multiple Errors",
			setup: func() {
				viper.Set("nvd.rate_limit", -5)
				viper.Set("server.port", 80000)
			},
			wantError: true,
			errMsg:    "configuration validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()

			if tt.setup != nil {
				tt.setup()
			}

			err := ValidateConfig()
			if tt.wantError {
				if err == nil {
					t.Errorf("ValidateConfig() expected error, got nil")
				} else if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateConfig() error = %v, want error containing %v", err, tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("ValidateConfig() unexpected error: %v", err)
				}
			}
		})
	}
}

func TestValidateConfig_ReportsAllProblems(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("nvd.rate_limit", 0)
	viper.Set("server.port", 80000)

	err := ValidateConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "nvd.rate_limit") || !strings.Contains(err.Error(), "server.port") {
		t.Errorf("error should list both problems, got: %v", err)
	}
}
