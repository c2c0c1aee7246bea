package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/quailyquaily/morphgate/guard"
	"github.com/quailyquaily/morphgate/internal/pathutil"
	"github.com/quailyquaily/morphgate/internal/strutil"
	"github.com/quailyquaily/morphgate/review"
)

func clientFromViper() (*review.Client, error) {
	endpoint := strings.TrimSpace(viper.GetString("review.endpoint"))
	if endpoint == "" {
		return nil, fmt.Errorf("missing review.endpoint (flag --endpoint or MORPHGATE_REVIEW_ENDPOINT)")
	}
	c := review.New(endpoint, viper.GetString("review.api_key"))
	if t := viper.GetDuration("review.request_timeout"); t > 0 {
		c.HTTP.Timeout = t
	}
	if n := viper.GetInt64("review.max_response_bytes"); n > 0 {
		c.MaxResponseBytes = n
	}
	c.UserAgent = strutil.FirstNonEmpty(viper.GetString("review.user_agent"), "morphgate-cli")
	return c, nil
}

func waitOptionsFromViper() review.WaitOptions {
	return review.WaitOptions{
		PollInterval: viper.GetDuration("review.poll_interval"),
		Timeout:      viper.GetDuration("review.wait_timeout"),
	}
}

// auditSinkFromViper builds the configured sink, preferring SQLite when
// both are set. Returns nil when auditing is not configured.
func auditSinkFromViper() (guard.AuditSink, error) {
	if dsn := strings.TrimSpace(viper.GetString("audit.sqlite_dsn")); dsn != "" {
		return guard.NewSQLiteAuditSink(pathutil.ExpandHomePath(dsn))
	}
	if path := strings.TrimSpace(viper.GetString("audit.jsonl_path")); path != "" {
		return guard.NewJSONLAuditSink(pathutil.ExpandHomePath(path), viper.GetInt64("audit.rotate_max_bytes"))
	}
	return nil, nil
}

func guardrailFromViper(client *review.Client) (*guard.ResponseGuardrail, error) {
	cfg := guard.GuardrailConfig{
		Mode:            guard.Mode(strutil.FirstNonEmpty(viper.GetString("guard.mode"), string(guard.ModeBlocking))),
		ApprovalTimeout: viper.GetDuration("guard.approval_timeout"),
		PollInterval:    viper.GetDuration("guard.poll_interval"),
		BlockedMessage:  viper.GetString("guard.blocked_message"),
		TimeoutMessage:  viper.GetString("guard.timeout_message"),
	}
	if policyPath := strings.TrimSpace(viper.GetString("guard.policy_file")); policyPath != "" {
		p, err := guard.LoadPolicyFile(pathutil.ExpandHomePath(policyPath))
		if err != nil {
			return nil, err
		}
		if cfg, err = p.GuardrailConfig(); err != nil {
			return nil, err
		}
	}
	cfg.Mode = guard.Mode(strutil.FirstNonEmpty(string(cfg.Mode), string(guard.ModeBlocking)))
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("invalid guard.mode: %q", cfg.Mode)
	}

	opts := []guard.GuardrailOption{guard.WithGuardrailLogger(newLogger())}
	sink, err := auditSinkFromViper()
	if err != nil {
		return nil, err
	}
	if sink != nil {
		opts = append(opts, guard.WithGuardrailAuditSink(sink))
	}
	return guard.NewResponseGuardrail(client, cfg, opts...), nil
}
