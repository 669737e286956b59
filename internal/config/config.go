// Package config loads the layered service descriptor: compiled defaults,
// overridden by a YAML file at a well-known path, overridden by
// environment variables. Site descriptors and the reserved "lwfm" host/
// port section live in the same document.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"lwfm/pkg/lwfm"
)

// JobIDEnvVar is the name of the environment variable that conveys an
// ambient jobId into a child process, recovered from the original
// implementation's literal constant so nested executions can
// self-attribute to their parent without plumbing.
const JobIDEnvVar = "_LWFM_JOB_ID"

// ServiceURLEnvVar, when set, overrides the host/port the client side
// targets instead of reading it from configuration.
const ServiceURLEnvVar = "_LWFM_SERVICE_URL"

// Config is the fully-resolved service configuration.
type Config struct {
	DBPath       string                         `yaml:"-"`
	Host         string                         `yaml:"-"`
	Port         int                            `yaml:"-"`
	LogLevel     string                         `yaml:"-"`
	LogFormat    string                         `yaml:"-"`
	LockPath     string                         `yaml:"-"`
	JobIDEnvVar  string                         `yaml:"-"`
	Sites        map[string]lwfm.SiteDescriptor `yaml:"-"`

	file fileConfig
}

// fileConfig mirrors the on-disk YAML document shape.
type fileConfig struct {
	Lwfm struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"lwfm"`
	Sites map[string]siteFileEntry `yaml:"sites"`
}

type siteFileEntry struct {
	Class      string            `yaml:"class"`
	Auth       string            `yaml:"auth"`
	Run        string            `yaml:"run"`
	Repo       string            `yaml:"repo"`
	Spin       string            `yaml:"spin"`
	Venv       string            `yaml:"venv"`
	Remote     bool              `yaml:"remote"`
	AuthSecret string            `yaml:"authSecret"`
	Props      map[string]string `yaml:"props"`
}

// Default returns the compiled-in defaults, before any file or
// environment overrides are applied.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DBPath:      filepath.Join(home, ".lwfm", "lwfm.db"),
		Host:        "127.0.0.1",
		Port:        3000,
		LogLevel:    "info",
		LogFormat:   "text",
		LockPath:    filepath.Join(home, ".lwfm", "lwfm.lock"),
		JobIDEnvVar: JobIDEnvVar,
		Sites:       map[string]lwfm.SiteDescriptor{},
	}
}

// DefaultConfigPath returns the well-known user config file path.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lwfm", "lwfm.yaml")
}

// Load builds a Config starting from Default(), layering in the YAML
// file at path (if it exists; a missing file is not an error) and then
// environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}
	if data, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
		cfg.file = fc
		if fc.Lwfm.Host != "" {
			cfg.Host = fc.Lwfm.Host
		}
		if fc.Lwfm.Port != 0 {
			cfg.Port = fc.Lwfm.Port
		}
		for name, e := range fc.Sites {
			hashed, err := hashAuthSecret(e.AuthSecret)
			if err != nil {
				return cfg, fmt.Errorf("site %s: %w", name, err)
			}
			cfg.Sites[name] = lwfm.SiteDescriptor{
				Name:       name,
				Class:      e.Class,
				AuthClass:  e.Auth,
				RunClass:   e.Run,
				RepoClass:  e.Repo,
				SpinClass:  e.Spin,
				Venv:       e.Venv,
				Remote:     e.Remote,
				AuthSecret: hashed,
				Props:      e.Props,
			}
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}

	applyEnv(&cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LWFM_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LWFM_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("LWFM_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("LWFM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LWFM_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("LWFM_LOCK_PATH"); v != "" {
		cfg.LockPath = v
	}
	if v := os.Getenv("LWFM_JOBID_ENV_VAR"); v != "" {
		cfg.JobIDEnvVar = v
	}
}

// Validate rejects configurations that cannot produce a working service.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	return nil
}
