package guard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PolicyFile is the YAML shape of a declarative guard policy, used by the
// CLI and by embedders that prefer file-based configuration. Durations
// are Go duration strings ("30s", "10m").
type PolicyFile struct {
	Mode               string         `yaml:"mode"`
	BlockedMessage     string         `yaml:"blocked_message"`
	TimeoutMessage     string         `yaml:"timeout_message"`
	ApprovalTimeout    string         `yaml:"approval_timeout"`
	PollInterval       string         `yaml:"poll_interval"`
	WaitTimeout        string         `yaml:"wait_timeout"`
	RequireApprovalFor []string       `yaml:"require_approval_for"`
	Metadata           map[string]any `yaml:"metadata"`
}

func LoadPolicyFile(path string) (*PolicyFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing policy file path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p PolicyFile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if m := strings.TrimSpace(p.Mode); m != "" && !Mode(m).Valid() {
		return nil, fmt.Errorf("invalid mode in policy file: %q", p.Mode)
	}
	return &p, nil
}

// GuardrailConfig converts the file into a ResponseGuardrail config.
func (p *PolicyFile) GuardrailConfig() (GuardrailConfig, error) {
	cfg := GuardrailConfig{
		Mode:           Mode(strings.TrimSpace(p.Mode)),
		BlockedMessage: p.BlockedMessage,
		TimeoutMessage: p.TimeoutMessage,
		Metadata:       p.Metadata,
	}
	var err error
	if cfg.ApprovalTimeout, err = parseDuration(p.ApprovalTimeout, "approval_timeout"); err != nil {
		return GuardrailConfig{}, err
	}
	if cfg.PollInterval, err = parseDuration(p.PollInterval, "poll_interval"); err != nil {
		return GuardrailConfig{}, err
	}
	return cfg, nil
}

// ToolGateConfig converts the file into a ToolCallGate config.
func (p *PolicyFile) ToolGateConfig() (ToolGateConfig, error) {
	cfg := ToolGateConfig{
		RequireApprovalFor: p.RequireApprovalFor,
		Metadata:           p.Metadata,
	}
	var err error
	if cfg.PollInterval, err = parseDuration(p.PollInterval, "poll_interval"); err != nil {
		return ToolGateConfig{}, err
	}
	if cfg.WaitTimeout, err = parseDuration(p.WaitTimeout, "wait_timeout"); err != nil {
		return ToolGateConfig{}, err
	}
	return cfg, nil
}

func parseDuration(s, field string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", field, s)
	}
	return d, nil
}
