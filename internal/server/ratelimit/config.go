package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Rule limits one method on a path. A Path ending in "/" matches by prefix.
// Limit requests refill over Window; Burst is the bucket size (Limit when zero).
// A rule with Limit 0 is unlimited.
type Rule struct {
	Method string
	Path   string
	Limit  int
	Window time.Duration
	Burst  int
}

func (r Rule) capacity() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// Config holds the limiter settings.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Allowlist       map[string]bool
	Rules           []Rule
}

// DefaultRules: tailoring calls the generation capability up to twice per
// request, so it is the scarcest endpoint.
func DefaultRules() []Rule {
	return []Rule{
		{Method: http.MethodGet, Path: "/health", Limit: 0},
		{Method: http.MethodPost, Path: "/v1/sections/tailor", Limit: 30, Window: time.Hour, Burst: 5},
		{Method: http.MethodPost, Path: "/v1/sections/validate", Limit: 300, Window: time.Minute, Burst: 30},
		{Method: http.MethodPost, Path: "/v1/keywords", Limit: 300, Window: time.Minute, Burst: 30},
	}
}

// DefaultConfig returns an enabled limiter config with DefaultRules.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Allowlist:       map[string]bool{},
		Rules:           DefaultRules(),
	}
}

// LoadConfig reads RATE_LIMIT_* overrides on top of DefaultConfig.
// getenv is usually os.Getenv.
func LoadConfig(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if v := getenv("RATE_LIMIT_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("RATE_LIMIT_ENABLED: %w", err)
		}
		cfg.Enabled = enabled
	}
	if v := getenv("RATE_LIMIT_DEFAULT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("RATE_LIMIT_DEFAULT_LIMIT: %w", err)
		}
		cfg.DefaultLimit = n
	}
	if v := getenv("RATE_LIMIT_DEFAULT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("RATE_LIMIT_DEFAULT_WINDOW: %w", err)
		}
		cfg.DefaultWindow = d
	}
	if v := getenv("RATE_LIMIT_TAILOR_PER_HOUR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("RATE_LIMIT_TAILOR_PER_HOUR: %w", err)
		}
		for i := range cfg.Rules {
			if cfg.Rules[i].Path == "/v1/sections/tailor" {
				cfg.Rules[i].Limit = n
			}
		}
	}
	for _, ip := range strings.Split(getenv("RATE_LIMIT_ALLOWLIST"), ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			cfg.Allowlist[ip] = true
		}
	}
	return cfg, nil
}

// MatchRule finds the rule for a request: exact path first, then the
// longest matching prefix rule. Nil means no rule applies.
func MatchRule(method, path string, rules []Rule) *Rule {
	var best *Rule
	for i := range rules {
		r := &rules[i]
		if r.Method != method {
			continue
		}
		if r.Path == path {
			return r
		}
		if strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			if best == nil || len(r.Path) > len(best.Path) {
				best = r
			}
		}
	}
	return best
}
