package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/slack-go/slack"

	"iifvs/internal/model"
)

// Config selects how notifications are delivered. A bot token takes
// precedence over a webhook.
type Config struct {
	Enabled    bool
	Channel    string
	BotToken   string
	WebhookURL string
	// APIURL overrides the Slack Web API base URL; it must end with "/".
	APIURL string
}

// ConfigFromEnv fills tokens from SLACK_BOT_USER_TOKEN and SLACK_WEBHOOK_URL.
func ConfigFromEnv(enabled bool, channel string) Config {
	return Config{
		Enabled:    enabled,
		Channel:    channel,
		BotToken:   os.Getenv("SLACK_BOT_USER_TOKEN"),
		WebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
	}
}

// Manager posts analysis events to Slack. A Manager with no usable
// transport is a no-op.
type Manager struct {
	client    *slack.Client
	webhook   *SlackNotifier
	channelID string
	logger    *slog.Logger
}

// NewManager creates a notification manager from cfg.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{logger: logger, channelID: cfg.Channel}
	if !cfg.Enabled {
		return m
	}

	switch {
	case cfg.BotToken != "":
		var opts []slack.Option
		if cfg.APIURL != "" {
			opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
		}
		m.client = slack.New(cfg.BotToken, opts...)
	case cfg.WebhookURL != "":
		m.webhook = NewSlackNotifier(cfg.WebhookURL)
	default:
		logger.Warn("Slack notifications enabled but neither SLACK_BOT_USER_TOKEN nor SLACK_WEBHOOK_URL is set")
	}
	return m
}

// Enabled reports whether messages will actually be sent.
func (m *Manager) Enabled() bool {
	return m != nil && (m.client != nil || m.webhook != nil)
}

// Notify sends a plain text message.
func (m *Manager) Notify(ctx context.Context, message string) error {
	switch {
	case m == nil:
		return nil
	case m.client != nil:
		_, _, err := m.client.PostMessageContext(ctx, m.channelID, slack.MsgOptionText(message, false))
		if err != nil {
			return fmt.Errorf("failed to post slack message: %w", err)
		}
		return nil
	case m.webhook != nil:
		return m.webhook.Notify(ctx, message)
	default:
		return nil
	}
}

// NotifyVersions reports software versions detected in an upload.
func (m *Manager) NotifyVersions(ctx context.Context, filename string, versions []string) error {
	if !m.Enabled() || len(versions) == 0 {
		return nil
	}
	msg := fmt.Sprintf(":mag: Firmware `%s` analyzed, detected: %s", filename, strings.Join(versions, ", "))
	return m.Notify(ctx, msg)
}

// NotifyCriticalFindings reports critical CVEs returned for a search.
func (m *Manager) NotifyCriticalFindings(ctx context.Context, keyword string, findings []model.Finding) error {
	if !m.Enabled() {
		return nil
	}
	var ids []string
	for _, f := range findings {
		if f.Severity == model.SeverityCritical {
			ids = append(ids, f.CVEID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	const maxListed = 10
	listed := ids
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	msg := fmt.Sprintf(":rotating_light: %d critical CVE(s) for `%s`: %s", len(ids), keyword, strings.Join(listed, ", "))
	if len(ids) > maxListed {
		msg += fmt.Sprintf(" (+%d more)", len(ids)-maxListed)
	}
	return m.Notify(ctx, msg)
}
