package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes the configuration from file and environment variables.
func Load(cfgFile string) {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("IIFVS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The NVD key is commonly exported without our prefix.
	_ = viper.BindEnv("nvd.api_key", "IIFVS_NVD_API_KEY", "NVD_API_KEY")

	SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", cfgFile, err)
	}

	// Keyed clients get a tenfold NVD quota.
	if viper.GetString("nvd.api_key") != "" {
		viper.SetDefault("nvd.rate_limit", 50)
	}
}

// SetDefaults registers the default value of every known key.
func SetDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "180s")
	viper.SetDefault("server.cors_origins", []string{"*"})

	viper.SetDefault("upload.dir", "uploads")
	viper.SetDefault("upload.max_size", 256<<20)

	viper.SetDefault("extractor.mode", "local")
	viper.SetDefault("extractor.binary", "binwalk")
	viper.SetDefault("extractor.args", []string{"-e"})
	viper.SetDefault("extractor.image", "refirmlabs/binwalk:latest")
	viper.SetDefault("extractor.timeout", "120s")

	viper.SetDefault("nvd.base_url", "https://services.nvd.nist.gov/rest/json/cves/2.0")
	viper.SetDefault("nvd.timeout", "30s")
	viper.SetDefault("nvd.results_per_page", 50)
	viper.SetDefault("nvd.rate_limit", 5)
	viper.SetDefault("nvd.rate_period", "30s")

	viper.SetDefault("store.type", "sqlite")
	viper.SetDefault("store.dsn", "iifvs.db")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 2112)

	slackEnabled := os.Getenv("SLACK_BOT_USER_TOKEN") != ""
	viper.SetDefault("notifications.slack.enabled", slackEnabled)
	viper.SetDefault("notifications.slack.channel", "#security")

	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")
}
