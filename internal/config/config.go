// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/section-tailor/internal/llm"
	"github.com/jonathan/section-tailor/internal/types"
	"github.com/jonathan/section-tailor/internal/validation"
)

// DefaultTopKeywords is how many job description keywords are kept when
// nothing else is configured.
const DefaultTopKeywords = 8

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or come from CLI flags
// and the environment.
type Config struct {
	// Inputs and outputs
	Job    string `json:"job,omitempty"`    // Path, URL or "-" for the job description
	Resume string `json:"resume,omitempty"` // Path to the LaTeX document
	OutDir string `json:"out_dir,omitempty"`
	Rules  string `json:"rules,omitempty"` // YAML rule overrides

	Strictness string `json:"strictness,omitempty" validate:"omitempty,oneof=lenient standard strict"`

	// Generation capability
	Provider        string  `json:"provider,omitempty" validate:"omitempty,oneof=gemini anthropic claude"`
	Model           string  `json:"model,omitempty"`
	APIKey          string  `json:"api_key,omitempty"` // Gemini API key
	AnthropicAPIKey string  `json:"anthropic_api_key,omitempty"`
	Temperature     float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`
	TimeoutSeconds  int     `json:"timeout_seconds,omitempty" validate:"gte=0"`

	// Rule knobs applied on top of the rule tables
	TopKeywords         int `json:"top_keywords,omitempty" validate:"gte=0,lte=50"`
	SummaryCharMin      int `json:"summary_char_min,omitempty" validate:"gte=0"`
	SummaryCharMax      int `json:"summary_char_max,omitempty" validate:"omitempty,gtefield=SummaryCharMin"`
	SummaryBulletCount  int `json:"summary_bullet_count,omitempty" validate:"gte=0,lte=10"`
	MinKeywordsRequired int `json:"min_keywords_required,omitempty" validate:"gte=0"`

	// Behavior
	MaxPages        int    `json:"max_pages,omitempty" validate:"gte=0"`
	Compile         bool   `json:"compile,omitempty"`
	AnalyzeMetadata bool   `json:"analyze_metadata,omitempty"`
	UseBrowser      bool   `json:"use_browser,omitempty"`
	Verbose         bool   `json:"verbose,omitempty"`
	Addr            string `json:"addr,omitempty"` // Listen address for serve
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

var configValidator = validator.New()

// Validate checks that the configuration has valid values.
// Required inputs are checked by each command after merging.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Rules != "" {
		if _, err := os.Stat(c.Rules); os.IsNotExist(err) {
			return fmt.Errorf("config error: rules file not found: %s", c.Rules)
		}
	}
	if c.Resume != "" {
		if _, err := os.Stat(c.Resume); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume file not found: %s", c.Resume)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// Booleans cannot tell unset from false, so they are only ever switched on.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	fillString := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fillInt := func(dst *int, def int) {
		if *dst == 0 {
			*dst = def
		}
	}

	fillString(&result.Job, defaults.Job)
	fillString(&result.Resume, defaults.Resume)
	fillString(&result.OutDir, defaults.OutDir)
	fillString(&result.Rules, defaults.Rules)
	fillString(&result.Strictness, defaults.Strictness)
	fillString(&result.Provider, defaults.Provider)
	fillString(&result.Model, defaults.Model)
	fillString(&result.APIKey, defaults.APIKey)
	fillString(&result.AnthropicAPIKey, defaults.AnthropicAPIKey)
	fillString(&result.Addr, defaults.Addr)

	fillInt(&result.TimeoutSeconds, defaults.TimeoutSeconds)
	fillInt(&result.TopKeywords, defaults.TopKeywords)
	fillInt(&result.SummaryCharMin, defaults.SummaryCharMin)
	fillInt(&result.SummaryCharMax, defaults.SummaryCharMax)
	fillInt(&result.SummaryBulletCount, defaults.SummaryBulletCount)
	fillInt(&result.MinKeywordsRequired, defaults.MinKeywordsRequired)
	fillInt(&result.MaxPages, defaults.MaxPages)

	if result.Temperature == 0 {
		result.Temperature = defaults.Temperature
	}

	result.Compile = result.Compile || defaults.Compile
	result.AnalyzeMetadata = result.AnalyzeMetadata || defaults.AnalyzeMetadata
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// ApplyEnv overrides fields from environment variables. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"GEMINI_API_KEY", &c.APIKey},
		{"ANTHROPIC_API_KEY", &c.AnthropicAPIKey},
		{"LLM_PROVIDER", &c.Provider},
		{"LLM_MODEL", &c.Model},
		{"STRICTNESS", &c.Strictness},
	}
	for _, s := range strs {
		if v := getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SUMMARY_CHAR_MIN", &c.SummaryCharMin},
		{"SUMMARY_CHAR_MAX", &c.SummaryCharMax},
		{"SUMMARY_BULLET_COUNT", &c.SummaryBulletCount},
		{"MIN_KEYWORDS_REQUIRED", &c.MinKeywordsRequired},
		{"TOP_KEYWORDS_COUNT", &c.TopKeywords},
	}
	for _, i := range ints {
		v := getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer, got %q", i.key, v)
		}
		*i.dst = n
	}
	return nil
}

// KeywordCount returns the configured top-N keyword count.
func (c *Config) KeywordCount() int {
	if c.TopKeywords > 0 {
		return c.TopKeywords
	}
	return DefaultTopKeywords
}

// LLMConfig builds the generation capability configuration and picks the API
// key of the selected provider.
func (c *Config) LLMConfig() (*llm.Config, string, error) {
	provider, err := llm.ParseProvider(c.Provider)
	if err != nil {
		return nil, "", err
	}
	cfg := llm.DefaultConfigFor(provider)
	if c.Model != "" {
		cfg = cfg.WithAllModels(c.Model)
	}
	if c.Temperature > 0 {
		cfg.Temperature = c.Temperature
	}

	apiKey := c.APIKey
	if provider == llm.ProviderAnthropic {
		apiKey = c.AnthropicAPIKey
	}
	return cfg, apiKey, nil
}

// BuildRules assembles the rule tables: defaults, then the YAML overrides
// file, then the configured knobs, then strictness. The result is validated.
func (c *Config) BuildRules() (validation.Rules, error) {
	rules := validation.DefaultRules()

	if c.Rules != "" {
		var err error
		rules, err = rules.LoadOverrides(c.Rules)
		if err != nil {
			return nil, err
		}
	}

	summary := rules[types.KindSummary]
	if c.SummaryCharMin > 0 {
		summary.MinChars = c.SummaryCharMin
	}
	if c.SummaryCharMax > 0 {
		summary.MaxChars = c.SummaryCharMax
	}
	if c.SummaryBulletCount > 0 {
		summary.MinBullets = c.SummaryBulletCount
		summary.MaxBullets = c.SummaryBulletCount
	}
	if c.MinKeywordsRequired > 0 {
		summary.MinKeywords = c.MinKeywordsRequired
	}
	rules[types.KindSummary] = summary

	if c.TopKeywords > 0 {
		for kind, rs := range rules {
			rs.TopKeywords = c.TopKeywords
			if rs.MinKeywords > rs.TopKeywords {
				rs.MinKeywords = rs.TopKeywords
			}
			rules[kind] = rs
		}
	}

	strictness, err := validation.ParseStrictness(c.Strictness)
	if err != nil {
		return nil, err
	}
	rules = rules.WithStrictness(strictness)

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}
