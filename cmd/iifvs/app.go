package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"iifvs/internal/config"
	"iifvs/internal/db"
	"iifvs/internal/docker"
	"iifvs/internal/firmware"
	"iifvs/internal/metrics"
	"iifvs/internal/notify"
	"iifvs/internal/nvd"
	"iifvs/internal/security"
	"iifvs/internal/web"
)

// app holds the wired components shared by serve and extract.
type app struct {
	settings config.Settings
	metrics  *metrics.Metrics
	store    db.Store
	notifier *notify.Manager
	analyzer *firmware.Analyzer
	nvd      *nvd.Client
	logger   *slog.Logger
	closers  []func() error
}

func newApp(s config.Settings, logger *slog.Logger) (*app, error) {
	a := &app{
		settings: s,
		metrics:  metrics.NewMetrics(),
		logger:   logger,
		nvd:      newNVDClient(s),
	}

	extractor, closeExtractor, err := newExtractor(s)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeExtractor)

	store, err := openStore(s)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	a.notifier = notify.NewManager(notify.ConfigFromEnv(s.Notifications.SlackEnabled, s.Notifications.SlackChannel), logger)

	opts := []firmware.Option{
		firmware.WithSecretScanner(security.NewRegexScanner()),
		firmware.WithNotifier(a.notifier),
		firmware.WithMetrics(a.metrics),
		firmware.WithLogger(logger),
	}
	if store != nil {
		opts = append(opts, firmware.WithRecorder(store))
		a.closers = append(a.closers, store.Close)
	}
	a.analyzer = firmware.NewAnalyzer(s.Upload.Dir, extractor, opts...)
	return a, nil
}

// server builds the HTTP API on top of the wired components.
func (a *app) server() *web.Server {
	opts := []web.Option{
		web.WithNotifier(a.notifier),
		web.WithMetrics(a.metrics),
		web.WithLogger(a.logger),
	}
	if a.store != nil {
		opts = append(opts, web.WithStore(a.store))
	}
	return web.NewServer(web.Config{
		Addr:          net.JoinHostPort(a.settings.Server.Host, strconv.Itoa(a.settings.Server.Port)),
		ReadTimeout:   a.settings.Server.ReadTimeout,
		WriteTimeout:  a.settings.Server.WriteTimeout,
		CORSOrigins:   a.settings.Server.CORSOrigins,
		MaxUploadSize: a.settings.Upload.MaxSize,
	}, a.analyzer, a.nvd, opts...)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newExtractor(s config.Settings) (firmware.Extractor, func() error, error) {
	switch s.Extractor.Mode {
	case "docker":
		cli, err := docker.NewClient()
		if err != nil {
			return nil, nil, err
		}
		return &firmware.DockerExtractor{
			Runner:    cli,
			Image:     s.Extractor.Image,
			Binary:    s.Extractor.Binary,
			Args:      s.Extractor.Args,
			Timeout:   s.Extractor.Timeout,
			UploadDir: s.Upload.Dir,
		}, cli.Close, nil
	default:
		ex := firmware.NewLocalExtractor(s.Extractor.Binary, s.Extractor.Args, s.Extractor.Timeout)
		return ex, func() error { return nil }, nil
	}
}

// openStore returns a nil Store when history is disabled.
func openStore(s config.Settings) (db.Store, error) {
	store, err := db.NewStore(db.StoreConfig{Type: s.Store.Type, ConnectionString: s.Store.DSN})
	if errors.Is(err, db.ErrStoreDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open scan store: %w", err)
	}
	return store, nil
}

func newNVDClient(s config.Settings) *nvd.Client {
	opts := []nvd.Option{
		nvd.WithBaseURL(s.NVD.BaseURL),
		nvd.WithTimeout(s.NVD.Timeout),
		nvd.WithResultsPerPage(s.NVD.ResultsPerPage),
		nvd.WithRateLimit(s.NVD.RateLimit, s.NVD.RatePeriod),
	}
	if s.NVD.APIKey != "" {
		opts = append(opts, nvd.WithAPIKey(s.NVD.APIKey))
	}
	return nvd.NewClient(opts...)
}
