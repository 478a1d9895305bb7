package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestIndexConfig_Policy(t *testing.T) {
	cfg := IndexConfig{Name: "MVR", Overwrite: "reject", LinkDepth: 3}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("reject policy should pass: %v", err)
	}
	if got := len(cfg.Options()); got != 3 {
		t.Errorf("options = %d, want 3", got)
	}

	cfg.Overwrite = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown policy should fail validation")
	}
}

func TestConfig_ErrorPolicyWithWatch(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Index.Overwrite = "Error"
	cfg.Sources.Watch = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("error policy with a watched sources dir should fail validation")
	}

	cfg.Sources.Watch = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("error policy without watch should pass: %v", err)
	}
}

func TestIndexConfig_RequiresName(t *testing.T) {
	cfg := IndexConfig{Name: ""}
	if err := cfg.Validate(); err == nil {
		t.Error("empty index name should fail validation")
	}
}

func TestSourcesConfig_Namespace(t *testing.T) {
	cfg := SourcesConfig{Path: "./sources", Namespace: "/cfg"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("absolute namespace should pass: %v", err)
	}
	cfg.Namespace = "cfg"
	if err := cfg.Validate(); err == nil {
		t.Error("relative namespace should fail validation")
	}
}

func TestQueueConfig_Negative(t *testing.T) {
	cfg := QueueConfig{Keep: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("negative keep should fail validation")
	}
}
