package llm

import (
	"testing"
	"time"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SOCRATIC_LLM_PROVIDER", "SOCRATIC_LLM_TIMEOUT",
		"SOCRATIC_ANTHROPIC_API_KEY", "SOCRATIC_OPENAI_API_KEY", "SOCRATIC_GEMINI_API_KEY",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestConfigFromEnv_DisabledByDefault(t *testing.T) {
	clearProviderEnv(t)

	cfg := ConfigFromEnv()
	if cfg.Enabled() {
		t.Errorf("expected disabled config, got provider %q", cfg.Provider)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled config should validate, got %v", err)
	}
}

func TestConfigFromEnv_ExplicitProvider(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("SOCRATIC_LLM_PROVIDER", "openai")
	t.Setenv("SOCRATIC_OPENAI_API_KEY", "sk-test")
	t.Setenv("SOCRATIC_LLM_TIMEOUT", "3s")

	cfg := ConfigFromEnv()
	if cfg.Provider != "openai" {
		t.Errorf("got provider %q, want openai", cfg.Provider)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("got key %q, want sk-test", cfg.OpenAI.APIKey)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("got timeout %v, want 3s", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validate error: %v", err)
	}
}

func TestConfigFromEnv_DiscoversStandardKeys(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg := ConfigFromEnv()
	if cfg.Provider != "anthropic" {
		t.Errorf("got provider %q, want anthropic", cfg.Provider)
	}
	if cfg.Anthropic.APIKey != "sk-ant" {
		t.Errorf("got key %q, want sk-ant", cfg.Anthropic.APIKey)
	}
}

func TestDiscoverConfig_Priority(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")

	cfg, ok := DiscoverConfig()
	if !ok {
		t.Fatal("expected discovery to succeed")
	}
	if cfg.Provider != "gemini" {
		t.Errorf("got provider %q, want gemini (highest priority)", cfg.Provider)
	}
}

func TestValidate_MissingKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "anthropic"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for anthropic provider without key")
	}

	cfg.Provider = "nope"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}
}
