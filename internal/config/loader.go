package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// escapedDollar stands in for "$$" while substitution runs.
const escapedDollar = "\x00ESCAPED_DOLLAR\x00"

// Loader reads configuration documents.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that substitutes from the process environment.
func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv}
}

// NewLoaderWithEnv creates a loader that substitutes from the given map.
func NewLoaderWithEnv(env map[string]string) *Loader {
	return &Loader{lookupEnv: func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}}
}

// LoadConfig loads configuration from a file path.
func LoadConfig(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Load loads configuration from a file path. Relative allow-list file
// paths are resolved against the directory of the config file.
func (l *Loader) Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := l.parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	if f := cfg.Spec.Firewall.AllowListFile; f != "" && !filepath.IsAbs(f) {
		cfg.Spec.Firewall.AllowListFile = filepath.Join(filepath.Dir(absPath), f)
	}

	return cfg, nil
}

// LoadFromReader loads configuration from an io.Reader.
func (l *Loader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return l.parseConfig(data)
}

// parseConfig parses YAML data into a Config and applies defaults.
// Unknown fields are rejected so that typos do not silently fall back
// to defaults.
func (l *Loader) parseConfig(data []byte) (*Config, error) {
	content := l.substituteEnvVars(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("config is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	ApplyDefaults(&cfg)

	return &cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns.
// "$$" escapes a literal dollar sign.
func (l *Loader) substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", escapedDollar)

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		if value, exists := l.lookupEnv(submatches[1]); exists {
			return value
		}
		if len(submatches) >= 3 {
			return submatches[2]
		}
		return ""
	})

	return strings.ReplaceAll(result, escapedDollar, "$")
}

// ResolveConfigPath resolves a configuration file path, checking the
// working directory, ./configs and /etc/edgegate.
func ResolveConfigPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("config file not found: %s", path)
	}

	candidates := []string{
		path,
		filepath.Join("configs", path),
		filepath.Join(string(filepath.Separator), "etc", "edgegate", path),
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("config file not found: %s", path)
}
