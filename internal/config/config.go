// Package config loads the profile file and environment secrets and resolves
// them, once, into the plain run inputs the pipeline consumes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"chandigest/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration, loaded from a YAML file.
type Config struct {
	DefaultProfile string             `yaml:"defaultProfile"`
	Hours          int                `yaml:"hours"`
	Limit          int                `yaml:"limit"`
	Model          string             `yaml:"model,omitempty"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile is one named digest configuration. The set of profiles is closed
// once the config file is parsed; unknown names are rejected at resolve time.
type Profile struct {
	SourceChannels []string `yaml:"sourceChannels"`
	OutputChannel  string   `yaml:"outputChannel"`
	PromptFile     string   `yaml:"promptFile,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	Footer         string   `yaml:"footer,omitempty"`
}

// Secrets are the credentials read from the environment (optionally via a
// .env file).
type Secrets struct {
	BotToken      string // BOT_TOKEN: preferred posting identity
	UserToken     string // DISCORD_TOKEN: fetch identity and delivery fallback
	OpenRouterKey string // OPENROUTER_API_KEY
}

// RunSetup is everything one pipeline run needs, resolved at the boundary.
type RunSetup struct {
	Inputs    domain.RunInputs
	Primary   domain.Credential
	Secondary domain.Credential
	Fetch     domain.Credential
	APIKey    string
	Model     string

	// UsedDefaultPrompt is set when the profile's prompt file could not be
	// read and the built-in prompt was substituted.
	UsedDefaultPrompt bool
}

// DefaultConfigDir returns the default config directory (~/.chandigest).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chandigest"
	}
	return filepath.Join(home, ".chandigest")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Defaults returns the built-in configuration values.
func Defaults() *Config {
	return &Config{
		Hours: 12,
		Limit: 50,
	}
}

// Load reads and validates the config file. Environment references in the
// file (${VAR} and ${VAR:-default}) are expanded before parsing.
func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Validate checks that the config has usable values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Hours < 1 {
		errs = append(errs, "hours must be >= 1")
	}
	if cfg.Limit < 1 {
		errs = append(errs, "limit must be >= 1")
	}
	if len(cfg.Profiles) == 0 {
		errs = append(errs, "at least one profile is required")
	}
	for name, p := range cfg.Profiles {
		if len(p.SourceChannels) == 0 {
			errs = append(errs, fmt.Sprintf("profiles.%s: sourceChannels is required", name))
		}
		if p.OutputChannel == "" {
			errs = append(errs, fmt.Sprintf("profiles.%s: outputChannel is required", name))
		}
	}
	if cfg.DefaultProfile != "" {
		if _, ok := cfg.Profiles[cfg.DefaultProfile]; !ok {
			errs = append(errs, fmt.Sprintf("defaultProfile references unknown profile: %s", cfg.DefaultProfile))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// ProfileNames returns the configured profile names, sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadSecrets reads credentials from the environment, loading a .env file
// first when one exists in the working directory.
func LoadSecrets() Secrets {
	_ = godotenv.Load() // a missing .env file is fine
	return Secrets{
		BotToken:      os.Getenv("BOT_TOKEN"),
		UserToken:     os.Getenv("DISCORD_TOKEN"),
		OpenRouterKey: os.Getenv("OPENROUTER_API_KEY"),
	}
}

// ResolveRun resolves a profile name plus invocation flags into the inputs of
// one run. Hours and limit override the config when positive. The returned
// setup is immutable once built; nothing downstream reads configuration
// again.
func (c *Config) ResolveRun(profileName string, hours, limit int, debug bool, sec Secrets) (*RunSetup, error) {
	if profileName == "" {
		profileName = c.DefaultProfile
	}
	if profileName == "" {
		return nil, fmt.Errorf("no profile selected and no defaultProfile configured (known: %s)",
			strings.Join(c.ProfileNames(), ", "))
	}
	profile, ok := c.Profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (known: %s)",
			profileName, strings.Join(c.ProfileNames(), ", "))
	}

	if hours <= 0 {
		hours = c.Hours
	}
	if limit <= 0 {
		limit = c.Limit
	}

	setup := &RunSetup{
		Inputs: domain.RunInputs{
			Profile:          profileName,
			SourceChannelIDs: profile.SourceChannels,
			OutputChannelID:  profile.OutputChannel,
			Hours:            hours,
			Limit:            limit,
			Debug:            debug,
			Footer:           profile.Footer,
		},
		APIKey: sec.OpenRouterKey,
		Model:  c.Model,
	}
	if profile.Model != "" {
		setup.Model = profile.Model
	}

	prompt, err := LoadPrompt(profile.PromptFile)
	if err != nil {
		setup.UsedDefaultPrompt = true
	}
	setup.Inputs.PromptTemplate = prompt

	if err := resolveCredentials(setup, sec, debug); err != nil {
		return nil, err
	}
	return setup, nil
}

// resolveCredentials maps the raw tokens onto the primary/secondary delivery
// order and the fetch identity. Bot tokens get their transport prefix here so
// everything downstream treats credentials as opaque.
func resolveCredentials(setup *RunSetup, sec Secrets, debug bool) error {
	if sec.BotToken == "" && sec.UserToken == "" {
		return fmt.Errorf("neither BOT_TOKEN nor DISCORD_TOKEN is set; cannot reach the source API")
	}
	if !debug && sec.OpenRouterKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is not set; cannot generate summaries")
	}

	switch {
	case sec.BotToken != "" && sec.UserToken != "":
		setup.Primary = domain.Credential{Kind: domain.CredentialPrimary, Token: "Bot " + sec.BotToken}
		setup.Secondary = domain.Credential{Kind: domain.CredentialSecondary, Token: sec.UserToken}
	case sec.BotToken != "":
		setup.Primary = domain.Credential{Kind: domain.CredentialPrimary, Token: "Bot " + sec.BotToken}
	default:
		setup.Primary = domain.Credential{Kind: domain.CredentialPrimary, Token: sec.UserToken}
	}

	// History reads go through the user identity when available; bots often
	// cannot read the monitored channels.
	setup.Fetch = setup.Primary
	if setup.Secondary.Set() {
		setup.Fetch = setup.Secondary
	}
	return nil
}
