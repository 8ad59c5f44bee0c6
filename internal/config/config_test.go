package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/PipeOpsHQ/agent-kickoff/providers/factory"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KICKOFF_ADDR", "KICKOFF_MODEL", "KICKOFF_PROVIDER", "KICKOFF_STEP_TIMEOUT",
		"KICKOFF_FLOWS_FILE", "KICKOFF_CORS_ORIGINS", "KICKOFF_LOG_LEVEL", "KICKOFF_LOG_FORMAT",
		"KICKOFF_OTEL_ENABLED", "KICKOFF_METRICS_ENABLED", "GIN_MODE",
		"GEMINI_API_KEY", "GEMINI_BASE_URL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL", "ANTHROPIC_MAX_TOKENS",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := FromEnv()
	want := Config{
		Addr:           ":8000",
		Model:          "gemini/gemini-1.5-flash",
		StepTimeout:    60 * time.Second,
		CORSOrigins:    []string{"*"},
		LogLevel:       "info",
		LogFormat:      "text",
		MetricsEnabled: true,
		GinMode:        "release",
		Providers:      factory.Settings{DefaultProvider: "gemini"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KICKOFF_ADDR", "127.0.0.1:9000")
	t.Setenv("KICKOFF_MODEL", "openai/gpt-4o-mini")
	t.Setenv("KICKOFF_STEP_TIMEOUT", "15")
	t.Setenv("KICKOFF_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("KICKOFF_OTEL_ENABLED", "yes")
	t.Setenv("KICKOFF_METRICS_ENABLED", "off")
	t.Setenv("OPENAI_API_KEY", " sk-test ")
	t.Setenv("ANTHROPIC_MAX_TOKENS", "2048")

	cfg := FromEnv()
	if cfg.Addr != "127.0.0.1:9000" || cfg.Model != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected addr/model: %+v", cfg)
	}
	if cfg.StepTimeout != 15*time.Second {
		t.Fatalf("step timeout = %v", cfg.StepTimeout)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.CORSOrigins); diff != "" {
		t.Fatalf("origins mismatch:\n%s", diff)
	}
	if !cfg.OTelEnabled || cfg.MetricsEnabled {
		t.Fatalf("unexpected flags: otel=%v metrics=%v", cfg.OTelEnabled, cfg.MetricsEnabled)
	}
	if cfg.Providers.OpenAIAPIKey != "sk-test" {
		t.Fatalf("openai key = %q", cfg.Providers.OpenAIAPIKey)
	}
	if cfg.Providers.AnthropicMaxTokens != 2048 {
		t.Fatalf("anthropic max tokens = %d", cfg.Providers.AnthropicMaxTokens)
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"30", 30 * time.Second},
		{"1m30s", 90 * time.Second},
		{"0", 0},
		{"-5", time.Minute},
		{"soon", time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.raw)
		if got := ParseDurationEnv("TEST_DURATION", time.Minute); got != tt.want {
			t.Fatalf("ParseDurationEnv(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseBoolString(t *testing.T) {
	if !ParseBoolString("ON", false) || ParseBoolString("no", true) || !ParseBoolString("maybe", true) {
		t.Fatalf("unexpected bool parsing")
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := ParseIntEnv("TEST_INT", 1); got != 42 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("TEST_INT", "x")
	if got := ParseIntEnv("TEST_INT", 1); got != 1 {
		t.Fatalf("got %d", got)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("KICKOFF_ADDR=:9999\nKICKOFF_MODEL=from-file\nANTHROPIC_MAX_TOKENS=512\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("KICKOFF_MODEL", "from-env")
	// An empty value still counts as set for godotenv; unset the keys the
	// file should supply.
	for _, key := range []string{"KICKOFF_ADDR", "ANTHROPIC_MAX_TOKENS"} {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset: %v", err)
		}
	}
	t.Cleanup(func() {
		_ = os.Unsetenv("KICKOFF_ADDR")
		_ = os.Unsetenv("ANTHROPIC_MAX_TOKENS")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("addr = %q, want value from file", cfg.Addr)
	}
	if cfg.Model != "from-env" {
		t.Fatalf("model = %q, existing env must win", cfg.Model)
	}
	if cfg.Providers.AnthropicMaxTokens != 512 {
		t.Fatalf("anthropic max tokens = %d", cfg.Providers.AnthropicMaxTokens)
	}
}

func TestLoad_MissingOrEmptyEnvFile(t *testing.T) {
	clearEnv(t)
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.env")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", path, err)
		}
		if cfg.Addr != DefaultAddr {
			t.Fatalf("addr = %q", cfg.Addr)
		}
	}
}
