package guard

import "testing"

func TestGuardrailConfigDefaults(t *testing.T) {
	cfg := GuardrailConfig{}.withDefaults()
	if cfg.Mode != ModeBlocking {
		t.Fatalf("default mode should be blocking, got %q", cfg.Mode)
	}
	if cfg.ApprovalTimeout != defaultApprovalTimeout || cfg.PollInterval != defaultGuardrailPoll {
		t.Fatalf("unexpected duration defaults: %+v", cfg)
	}
	if cfg.BlockedMessage != DefaultBlockedMessage || cfg.TimeoutMessage != DefaultTimeoutMessage {
		t.Fatalf("unexpected message defaults: %+v", cfg)
	}
}

func TestToolGateConfigDefaults(t *testing.T) {
	cfg := ToolGateConfig{}.withDefaults()
	if cfg.PollInterval != defaultToolGatePoll || cfg.WaitTimeout != defaultToolGateTimeout {
		t.Fatalf("unexpected duration defaults: %+v", cfg)
	}
	if cfg.RequireApprovalFor != nil {
		t.Fatalf("defaults must not invent an allow-list: %v", cfg.RequireApprovalFor)
	}
}

func TestModeValid(t *testing.T) {
	if !ModeBlocking.Valid() || !ModeLogging.Valid() {
		t.Fatal("known modes should be valid")
	}
	if Mode("audit").Valid() || Mode("").Valid() {
		t.Fatal("unknown modes should not be valid")
	}
}
