package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dormtycoon/internal/game"

	"gopkg.in/yaml.v3"
)

type APIConfig struct {
	Addr        string
	SessionTTL  time.Duration
	MaxSessions int
	Seed        int64
	Rules       game.Rules
}

type CLIConfig struct {
	APIBaseURL string
	Seed       int64
	Rules      game.Rules
}

type SimConfig struct {
	Runs    int
	Workers int
	Seed    int64
	Rules   game.Rules
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("DORM_API_ADDR", ":8080")
	}

	rules, err := LoadRulesFromEnv()
	if err != nil {
		return APIConfig{}, err
	}
	cfg := APIConfig{
		Addr:        addr,
		SessionTTL:  envDurationDefault("DORM_SESSION_TTL", 2*time.Hour),
		MaxSessions: envIntDefault("DORM_MAX_SESSIONS", 1000),
		Seed:        envInt64Default("DORM_SEED", 0),
		Rules:       rules,
	}
	if cfg.SessionTTL <= 0 {
		return cfg, fmt.Errorf("DORM_SESSION_TTL must be > 0")
	}
	if cfg.MaxSessions <= 0 {
		return cfg, fmt.Errorf("DORM_MAX_SESSIONS must be > 0")
	}
	return cfg, nil
}

func LoadCLIFromEnv() (CLIConfig, error) {
	rules, err := LoadRulesFromEnv()
	if err != nil {
		return CLIConfig{}, err
	}
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("DORM_API_BASE_URL", "http://localhost:8080"), "/"),
		Seed:       envInt64Default("DORM_SEED", 0),
		Rules:      rules,
	}, nil
}

func LoadSimFromEnv() (SimConfig, error) {
	rules, err := LoadRulesFromEnv()
	if err != nil {
		return SimConfig{}, err
	}
	cfg := SimConfig{
		Runs:    envIntDefault("DORM_SIM_RUNS", 200),
		Workers: envIntDefault("DORM_SIM_WORKERS", 4),
		Seed:    envInt64Default("DORM_SEED", 1),
		Rules:   rules,
	}
	if cfg.Runs <= 0 {
		return cfg, fmt.Errorf("DORM_SIM_RUNS must be > 0")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// LoadRulesFromEnv builds session rules from the defaults, the optional
// DORM_RULES_FILE overlay and then individual DORM_* overrides.
func LoadRulesFromEnv() (game.Rules, error) {
	rules := game.DefaultRules()
	if path := strings.TrimSpace(os.Getenv("DORM_RULES_FILE")); path != "" {
		overlay, err := LoadRulesFile(path, rules)
		if err != nil {
			return rules, err
		}
		rules = overlay
	}

	rules.TotalDays = envIntDefault("DORM_TOTAL_DAYS", rules.TotalDays)
	rules.TargetAssets = envFloatDefault("DORM_TARGET_ASSETS", rules.TargetAssets)
	rules.InitialCash = envFloatDefault("DORM_INITIAL_CASH", rules.InitialCash)
	rules.LivingCost = envFloatDefault("DORM_LIVING_COST", rules.LivingCost)
	rules.MaxActionPoints = envIntDefault("DORM_MAX_ACTION_POINTS", rules.MaxActionPoints)

	variant, err := game.ParseVariant(envDefault("DORM_VARIANT", string(rules.Variant)))
	if err != nil {
		return rules, fmt.Errorf("DORM_VARIANT: %w", err)
	}
	rules.Variant = variant
	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("rules: %w", err)
	}
	return rules, nil
}

// LoadRulesFile overlays a YAML rules file onto base. Keys missing from the
// file keep their base value.
func LoadRulesFile(path string, base game.Rules) (game.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read rules file: %w", err)
	}
	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return base, fmt.Errorf("parse rules file: %w", err)
	}
	return out, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
