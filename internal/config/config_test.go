package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dormtycoon/internal/game"
)

func TestLoadRulesDefaults(t *testing.T) {
	t.Setenv("DORM_RULES_FILE", "")
	t.Setenv("DORM_VARIANT", "")
	rules, err := LoadRulesFromEnv()
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if rules != game.DefaultRules() {
		t.Fatalf("expected default rules, got %+v", rules)
	}
}

func TestLoadRulesFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := "variant: tiered\ntotal_days: 14\ninitial_cash: 800\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	t.Setenv("DORM_RULES_FILE", path)
	t.Setenv("DORM_TOTAL_DAYS", "21")
	t.Setenv("DORM_LIVING_COST", "not-a-number")

	rules, err := LoadRulesFromEnv()
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if rules.Variant != game.VariantTiered || rules.InitialCash != 800 {
		t.Fatalf("file overlay not applied: %+v", rules)
	}
	if rules.TotalDays != 21 {
		t.Fatalf("env should win over the file, total days=%d", rules.TotalDays)
	}
	if rules.LivingCost != 30 || rules.TargetAssets != 2000 {
		t.Fatalf("unset or invalid keys keep defaults: %+v", rules)
	}
}

func TestLoadRulesRejectsInvalid(t *testing.T) {
	t.Setenv("DORM_VARIANT", "hardcore")
	if _, err := LoadRulesFromEnv(); err == nil {
		t.Fatalf("expected unknown variant to fail")
	}

	t.Setenv("DORM_VARIANT", "")
	t.Setenv("DORM_TOTAL_DAYS", "0")
	if _, err := LoadRulesFromEnv(); err == nil {
		t.Fatalf("expected zero days to fail")
	}
}

func TestLoadRulesFileErrors(t *testing.T) {
	if _, err := LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"), game.DefaultRules()); err == nil {
		t.Fatalf("expected missing file to fail")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("total_days: [1, 2"), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := LoadRulesFile(path, game.DefaultRules()); err == nil {
		t.Fatalf("expected malformed yaml to fail")
	}
}

func TestLoadAPIFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DORM_SESSION_TTL", "30m")
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load api: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected api config: %+v", cfg)
	}

	t.Setenv("PORT", "")
	t.Setenv("DORM_API_ADDR", "127.0.0.1:7000")
	cfg, err = LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load api: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7000" {
		t.Fatalf("addr got=%q", cfg.Addr)
	}
}

func TestLoadSimFromEnv(t *testing.T) {
	t.Setenv("DORM_SIM_RUNS", "50")
	t.Setenv("DORM_SIM_WORKERS", "0")
	cfg, err := LoadSimFromEnv()
	if err != nil {
		t.Fatalf("load sim: %v", err)
	}
	if cfg.Runs != 50 || cfg.Workers != 1 || cfg.Seed != 1 {
		t.Fatalf("unexpected sim config: %+v", cfg)
	}

	t.Setenv("DORM_SIM_RUNS", "-1")
	if _, err := LoadSimFromEnv(); err == nil {
		t.Fatalf("expected negative runs to fail")
	}
}

func TestLoadCLIFromEnvTrimsBaseURL(t *testing.T) {
	t.Setenv("DORM_API_BASE_URL", "http://example.test:8080/")
	cfg, err := LoadCLIFromEnv()
	if err != nil {
		t.Fatalf("load cli: %v", err)
	}
	if cfg.APIBaseURL != "http://example.test:8080" {
		t.Fatalf("base url got=%q", cfg.APIBaseURL)
	}
}
