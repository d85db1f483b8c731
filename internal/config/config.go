package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks missing or invalid configuration. It is always fatal.
var ErrConfiguration = errors.New("configuration error")

// Backend names accepted by the backend key and the --backend flag.
const (
	BackendCLI = "cli"
	BackendAPI = "api"
)

// #nosec G101 -- These are the names of environment variables, not credentials.
const (
	APIKeyEnvVar          = "GEMINI_API_KEY"
	CredentialsFileEnvVar = "GOOGLE_APPLICATION_CREDENTIALS"
	GitHubTokenEnvVar     = "GITHUB_TOKEN"
)

// Config contains the tunables of a report run. Every field has a usable default,
// so the config file is optional.
type Config struct {
	Backend         string       `yaml:"backend"`
	CLITool         string       `yaml:"cli_tool"`
	GeminiModel     string       `yaml:"gemini_model"`
	CredentialsFile string       `yaml:"credentials_file"`
	MaxContextChars int          `yaml:"max_context_chars"`
	GitTimeout      string       `yaml:"git_timeout"`
	AITimeout       string       `yaml:"ai_timeout"`
	RetryAttempts   int          `yaml:"retry_attempts"`
	ExtraExcludes   []string     `yaml:"extra_excludes"`
	GitHub          GitHubConfig `yaml:"github"`

	gitTimeout time.Duration
	aiTimeout  time.Duration
}

// GitHubConfig toggles repository description lookups on GitHub.
type GitHubConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend:         BackendCLI,
		CLITool:         "gemini",
		GeminiModel:     "gemini-1.5-pro",
		MaxContextChars: 100000,
		GitTimeout:      "2m",
		AITimeout:       "5m",
		RetryAttempts:   1,
		gitTimeout:      2 * time.Minute,
		aiTimeout:       5 * time.Minute,
	}
}

// LoadConfig reads the YAML file at configPath on top of the defaults.
// An empty path yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	cleanedPath := filepath.Clean(configPath)
	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: config file not found at path: %s", ErrConfiguration, cleanedPath)
	}

	// #nosec G304 -- User provides the config path via flag, accept the risk for CLI tool.
	yamlFile, err := os.ReadFile(cleanedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, cleanedPath, err)
	}

	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config YAML from %s: %v", ErrConfiguration, cleanedPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and resolves the duration strings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCLI, BackendAPI:
	default:
		return fmt.Errorf("%w: backend must be %q or %q, got %q", ErrConfiguration, BackendCLI, BackendAPI, c.Backend)
	}
	if c.Backend == BackendCLI && c.CLITool == "" {
		return fmt.Errorf("%w: cli_tool cannot be empty when backend is %q", ErrConfiguration, BackendCLI)
	}
	if c.Backend == BackendAPI && c.GeminiModel == "" {
		return fmt.Errorf("%w: gemini_model cannot be empty when backend is %q", ErrConfiguration, BackendAPI)
	}
	if c.MaxContextChars <= 0 {
		return fmt.Errorf("%w: max_context_chars must be positive", ErrConfiguration)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry_attempts must be non-negative", ErrConfiguration)
	}

	var err error
	if c.gitTimeout, err = parsePositiveDuration("git_timeout", c.GitTimeout); err != nil {
		return err
	}
	if c.aiTimeout, err = parsePositiveDuration("ai_timeout", c.AITimeout); err != nil {
		return err
	}

	for _, pattern := range c.ExtraExcludes {
		if pattern == "" || !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: invalid extra_excludes pattern %q", ErrConfiguration, pattern)
		}
	}
	return nil
}

// GitTimeoutDuration bounds a single git log invocation.
func (c *Config) GitTimeoutDuration() time.Duration { return c.gitTimeout }

// AITimeoutDuration bounds a single summarization attempt.
func (c *Config) AITimeoutDuration() time.Duration { return c.aiTimeout }

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrConfiguration, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrConfiguration, key)
	}
	return d, nil
}
