// Package notify publishes pipeline results to optional side channels.
// Notification failures are logged and never fail the pipeline.
package notify

import (
	"context"

	"go.uber.org/zap"

	"iac-pipeline/core/output"
	"iac-pipeline/internal/config"
	"iac-pipeline/internal/logging"
)

// Notifier publishes a report
type Notifier interface {
	Name() string
	Notify(ctx context.Context, report *output.Report) error
}

// Multi fans a report out to every notifier
type Multi []Notifier

// Notify calls every notifier and logs the ones that fail
func (m Multi) Notify(ctx context.Context, report *output.Report) {
	log := logging.Named("notify")
	for _, n := range m {
		if err := n.Notify(ctx, report); err != nil {
			log.Warn("notification failed", zap.String("notifier", n.Name()), zap.Error(err))
			continue
		}
		log.Debug("notification sent", zap.String("notifier", n.Name()))
	}
}

// FromConfig builds the notifiers the configuration enables
func FromConfig(cfg config.NotifyConfig) Multi {
	var m Multi
	if cfg.RedisAddr != "" {
		m = append(m, NewRedis(cfg.RedisAddr, cfg.RedisList))
	}
	if cfg.GitHubToken != "" && cfg.GitHubOwner != "" && cfg.GitHubRepo != "" && cfg.GitHubPR > 0 {
		m = append(m, NewGitHub(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo, cfg.GitHubPR))
	}
	return m
}
