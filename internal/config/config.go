// Package config loads agentchat settings. Precedence, lowest first:
// defaults, YAML file, environment, command line flags.
package config

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"agentchat/internal/agent"
)

const (
	defaultBackend      = agent.BackendOllama
	defaultOllamaAPI    = "http://127.0.0.1:11434"
	defaultModel        = "llama3.2:3b"
	defaultTimeout      = 120 * time.Second
	defaultHistoryLimit = 40
	defaultTemperature  = 0.3
	defaultTitle        = "Assistant Chatbot"
)

type Config struct {
	Agent AgentConfig `yaml:"agent"`
	Chat  ChatConfig  `yaml:"chat"`
	UI    UIConfig    `yaml:"ui"`
	Log   LogConfig   `yaml:"log"`
}

type AgentConfig struct {
	Backend      string        `yaml:"backend"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
	HistoryLimit int           `yaml:"history_limit"`
}

type ChatConfig struct {
	ThreadID    string  `yaml:"thread_id"`
	Temperature float64 `yaml:"temperature"`
	ExportDir   string  `yaml:"export_dir"`
}

type UIConfig struct {
	Title     string `yaml:"title"`
	Plain     bool   `yaml:"plain"`
	AltScreen bool   `yaml:"alt_screen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Default() Config {
	return Config{
		Agent: AgentConfig{
			Backend:      defaultBackend,
			Model:        defaultModel,
			Timeout:      defaultTimeout,
			HistoryLimit: defaultHistoryLimit,
		},
		Chat: ChatConfig{
			ThreadID:    agent.DefaultThreadID,
			Temperature: defaultTemperature,
			ExportDir:   ".",
		},
		UI: UIConfig{
			Title:     defaultTitle,
			AltScreen: true,
		},
		Log: LogConfig{
			Level: "info",
			File:  DefaultLogFile(),
		},
	}
}

// DefaultLogFile is agentchat.log under the user cache directory.
func DefaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return "agentchat.log"
	}
	return filepath.Join(dir, "agentchat", "agentchat.log")
}

// Load returns the defaults overlaid with the YAML file at path (if any) and
// the environment. A missing path is not an error when optional is true.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parse config %s", path)
			}
		case os.IsNotExist(err) && optional:
		default:
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// DefaultPath is $XDG_CONFIG_HOME/agentchat/config.yaml or its platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "agentchat", "config.yaml")
}

func (c *Config) ApplyEnv() {
	c.Agent.Backend = envOr("AGENTCHAT_BACKEND", c.Agent.Backend)
	c.Agent.BaseURL = envOr("AGENTCHAT_BASE_URL", c.Agent.BaseURL)
	c.Agent.Model = envOr("AGENTCHAT_MODEL", c.Agent.Model)
	c.Agent.APIKey = envOr("AGENTCHAT_API_KEY", envOr("OPENAI_API_KEY", c.Agent.APIKey))
	c.Agent.SystemPrompt = envOr("AGENTCHAT_SYSTEM_PROMPT", c.Agent.SystemPrompt)
	c.Agent.Timeout = envOrDuration("AGENTCHAT_TIMEOUT", c.Agent.Timeout)
	c.Chat.ThreadID = envOr("AGENTCHAT_THREAD_ID", c.Chat.ThreadID)
	c.Chat.Temperature = envOrFloat("AGENTCHAT_TEMPERATURE", c.Chat.Temperature)
	c.Chat.ExportDir = envOr("AGENTCHAT_EXPORT_DIR", c.Chat.ExportDir)
	c.UI.Plain = envOrBool("AGENTCHAT_PLAIN", c.UI.Plain)
	c.Log.Level = envOr("AGENTCHAT_LOG_LEVEL", c.Log.Level)
	c.Log.File = envOr("AGENTCHAT_LOG_FILE", c.Log.File)
}

// Validate normalizes the config in place and reports the first problem.
func (c *Config) Validate() error {
	c.Agent.Backend = strings.ToLower(strings.TrimSpace(c.Agent.Backend))
	known := false
	for _, b := range agent.Backends {
		if b == c.Agent.Backend {
			known = true
			break
		}
	}
	if !known {
		return errors.Errorf("unknown backend %q (want one of %s)", c.Agent.Backend, strings.Join(agent.Backends, ", "))
	}
	if c.Agent.Backend == agent.BackendGraph && strings.TrimSpace(c.Agent.BaseURL) == "" {
		return errors.New("graph backend requires agent.base_url")
	}
	if c.Agent.Backend == agent.BackendOllama && strings.TrimSpace(c.Agent.BaseURL) == "" {
		c.Agent.BaseURL = defaultOllamaAPI
	}
	if c.Agent.Timeout <= 0 {
		c.Agent.Timeout = defaultTimeout
	}
	if c.Agent.HistoryLimit < 0 {
		c.Agent.HistoryLimit = 0
	}
	if strings.TrimSpace(c.Chat.ThreadID) == "" {
		c.Chat.ThreadID = agent.DefaultThreadID
	}
	c.Chat.Temperature = SnapTemperature(c.Chat.Temperature)
	if strings.TrimSpace(c.UI.Title) == "" {
		c.UI.Title = defaultTitle
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return errors.Wrapf(err, "log level %q", c.Log.Level)
	}
	return nil
}

// SnapTemperature clamps t to [0, 1] and rounds it to one decimal.
func SnapTemperature(t float64) float64 {
	if math.IsNaN(t) {
		return defaultTemperature
	}
	t = math.Max(0, math.Min(1, t))
	return math.Round(t*10) / 10
}

func (c Config) AgentOptions() agent.Options {
	return agent.Options{
		Backend:      c.Agent.Backend,
		BaseURL:      c.Agent.BaseURL,
		Model:        c.Agent.Model,
		APIKey:       c.Agent.APIKey,
		SystemPrompt: c.Agent.SystemPrompt,
		HistoryLimit: c.Agent.HistoryLimit,
		Timeout:      c.Agent.Timeout,
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// envOrDuration accepts a Go duration ("90s") or a bare number of seconds.
func envOrDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func envOrFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
