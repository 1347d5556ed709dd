// Package config loads stepflow configuration from a YAML file, an optional
// .env file and the process environment, in increasing order of precedence.
//
// Environment variables are read with the STEPFLOW_ prefix and mapped onto
// nested keys, so STEPFLOW_LLM_API_KEY sets llm.api_key:
//
//	var cfg app.Config
//	err := config.Load("stepflow", &cfg, config.WithConfigFile("stepflow.yml"))
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file operations the loader needs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	HomeDir() (string, error)
}

// OSFileSystem implements FileSystem against the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

func (OSFileSystem) HomeDir() (string, error) { return os.UserHomeDir() }

// Options controls where the loader looks for its inputs.
type Options struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
}

// Option mutates Options.
type Option func(*Options)

// WithFileSystem replaces the filesystem used to locate files.
func WithFileSystem(fs FileSystem) Option {
	return func(o *Options) { o.FileSystem = fs }
}

// WithConfigFile sets an explicit YAML config path.
func WithConfigFile(path string) Option {
	return func(o *Options) { o.ConfigFile = path }
}

// WithEnvFile sets an explicit .env path.
func WithEnvFile(path string) Option {
	return func(o *Options) { o.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) { o.EnvPrefix = prefix }
}

// Files holds the resolved input paths. Empty means not found.
type Files struct {
	ConfigFile string
	EnvFile    string
}

// Resolve finds the config and env files for app, honouring explicit paths.
func Resolve(app string, o Options) Files {
	files := Files{ConfigFile: o.ConfigFile, EnvFile: o.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = firstExisting(o.FileSystem, configCandidates(app, o.FileSystem))
	}
	if files.EnvFile == "" {
		files.EnvFile = firstExisting(o.FileSystem, []string{".env." + app, ".env"})
	}
	return files
}

func configCandidates(app string, fs FileSystem) []string {
	paths := []string{
		"./" + app + ".yml",
		"./" + app + ".yaml",
		"./config.yml",
		fmt.Sprintf("./cmd/%s/config.yml", app),
	}
	if home, err := fs.HomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, "."+app, "config.yml"))
	}
	return paths
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// Load populates cfg (a pointer to a mapstructure-tagged struct) for app.
// A missing config file is not an error; an unreadable one is.
func Load(app string, cfg any, opts ...Option) error {
	o := Options{EnvPrefix: strings.ToUpper(app) + "_"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.FileSystem == nil {
		o.FileSystem = OSFileSystem{}
	}

	files := Resolve(app, o)
	v := viper.New()

	if files.ConfigFile != "" && o.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", files.ConfigFile, err)
		}
	}

	if files.EnvFile != "" && o.FileSystem.Exists(files.EnvFile) {
		if err := o.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	}
	bindPrefixedEnv(v, o.EnvPrefix, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for %s: %w", app, err)
	}
	return nil
}

// bindPrefixedEnv sets every key variant of each PREFIX_* variable so that
// both llm.api_key and llm.api.key style lookups resolve.
func bindPrefixedEnv(v *viper.Viper, prefix string, environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, variant := range keyVariants(strings.TrimPrefix(key, prefix)) {
			v.Set(variant, value)
		}
	}
}

// keyVariants expands LLM_API_KEY into llm_api_key, llm.api.key, llm.api_key
// and llm_api.key. Viper ignores the variants that match no field.
func keyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(lower)
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:], "_"))
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return out
}
