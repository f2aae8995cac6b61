package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings is a typed snapshot of the loaded configuration.
type Settings struct {
	Server        ServerSettings
	Upload        UploadSettings
	Extractor     ExtractorSettings
	NVD           NVDSettings
	Store         StoreSettings
	Metrics       MetricsSettings
	Notifications NotificationSettings
	Verbose       bool
	LogFile       string
}

type ServerSettings struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

type UploadSettings struct {
	Dir     string
	MaxSize int64
}

type ExtractorSettings struct {
	Mode    string
	Binary  string
	Args    []string
	Image   string
	Timeout time.Duration
}

type NVDSettings struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	ResultsPerPage int
	RateLimit      int
	RatePeriod     time.Duration
}

type StoreSettings struct {
	Type string
	DSN  string
}

type MetricsSettings struct {
	Enabled bool
	Port    int
}

type NotificationSettings struct {
	SlackEnabled bool
	SlackChannel string
}

// Current reads the global viper state into Settings.
func Current() Settings {
	return Settings{
		Server: ServerSettings{
			Host:         viper.GetString("server.host"),
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  durationOf("server.read_timeout"),
			WriteTimeout: durationOf("server.write_timeout"),
			CORSOrigins:  viper.GetStringSlice("server.cors_origins"),
		},
		Upload: UploadSettings{
			Dir:     viper.GetString("upload.dir"),
			MaxSize: viper.GetInt64("upload.max_size"),
		},
		Extractor: ExtractorSettings{
			Mode:    viper.GetString("extractor.mode"),
			Binary:  viper.GetString("extractor.binary"),
			Args:    viper.GetStringSlice("extractor.args"),
			Image:   viper.GetString("extractor.image"),
			Timeout: durationOf("extractor.timeout"),
		},
		NVD: NVDSettings{
			BaseURL:        viper.GetString("nvd.base_url"),
			APIKey:         viper.GetString("nvd.api_key"),
			Timeout:        durationOf("nvd.timeout"),
			ResultsPerPage: viper.GetInt("nvd.results_per_page"),
			RateLimit:      viper.GetInt("nvd.rate_limit"),
			RatePeriod:     durationOf("nvd.rate_period"),
		},
		Store: StoreSettings{
			Type: viper.GetString("store.type"),
			DSN:  viper.GetString("store.dsn"),
		},
		Metrics: MetricsSettings{
			Enabled: viper.GetBool("metrics.enabled"),
			Port:    viper.GetInt("metrics.port"),
		},
		Notifications: NotificationSettings{
			SlackEnabled: viper.GetBool("notifications.slack.enabled"),
			SlackChannel: viper.GetString("notifications.slack.channel"),
		},
		Verbose: viper.GetBool("verbose"),
		LogFile: viper.GetString("log_file"),
	}
}

// durationOf accepts both duration strings ("30s") and bare integers,
// which are read as seconds.
func durationOf(key string) time.Duration {
	if d := viper.GetDuration(key); d != 0 {
		if s := viper.GetInt(key); s != 0 && time.Duration(s) == d {
			return time.Duration(s) * time.Second
		}
		return d
	}
	if s := viper.GetInt(key); s != 0 {
		return time.Duration(s) * time.Second
	}
	return 0
}
