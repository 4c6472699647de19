package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/awantoch/scriptflow/constants"
)

type Config struct {
	HTTP    HTTPConfig    `json:"http"`
	Log     LogConfig     `json:"log"`
	Parser  ParserConfig  `json:"parser"`
	Layout  LayoutConfig  `json:"layout"`
	Event   EventConfig   `json:"event"`
	Blob    BlobConfig    `json:"blob"`
	Tracing TracingConfig `json:"tracing"`
}

type HTTPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// AllowedOrigins lists CORS origins; empty means "*".
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

type LogConfig struct {
	Level string `json:"level"`
}

// ParserConfig selects how scripts become graphs.
type ParserConfig struct {
	// Driver is "rules", "openai" or empty (openai when an API key is set).
	Driver         string  `json:"driver"`
	Model          string  `json:"model,omitempty"`
	Endpoint       string  `json:"endpoint,omitempty"`
	APIKey         string  `json:"-"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Temperature    float64 `json:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
}

type LayoutConfig struct {
	Strategy       string  `json:"strategy"`
	SiblingSpacing float64 `json:"sibling_spacing,omitempty"`
	LevelSpacing   float64 `json:"level_spacing,omitempty"`
}

type EventConfig struct {
	Driver string `json:"driver"`
	URL    string `json:"url"`
}

type BlobConfig struct {
	Driver    string `json:"driver"`
	Directory string `json:"directory,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	Region    string `json:"region,omitempty"`
}

type TracingConfig struct {
	Exporter    string `json:"exporter"`
	Endpoint    string `json:"endpoint,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
}

// Default returns a Config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault loads path, returning defaults when the file does not exist.
// Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the config.
func (c *Config) ApplyEnv() {
	if key := os.Getenv(constants.EnvOpenAIKey); key != "" {
		c.Parser.APIKey = key
	}
	if m := os.Getenv(constants.EnvOpenAIModel); m != "" {
		c.Parser.Model = m
	}
	if d := os.Getenv(constants.EnvParserDriver); d != "" {
		c.Parser.Driver = d
	}
	if p := os.Getenv(constants.EnvPort); p != "" {
		if port, err := strconv.Atoi(p); err == nil && port > 0 {
			c.HTTP.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Host == "" {
		c.HTTP.Host = constants.DefaultHost
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = constants.DefaultPort
	}
	if c.Parser.Model == "" {
		c.Parser.Model = constants.DefaultOpenAIModel
	}
	if c.Parser.Endpoint == "" {
		c.Parser.Endpoint = constants.DefaultOpenAIURL
	}
	if c.Parser.MaxTokens == 0 {
		c.Parser.MaxTokens = constants.DefaultMaxTokens
	}
	if c.Parser.TimeoutSeconds == 0 {
		c.Parser.TimeoutSeconds = 60
	}
	if c.Event.Driver == "" {
		c.Event.Driver = constants.EventDriverMemory
	}
	if c.Blob.Driver == "" {
		c.Blob.Driver = constants.BlobDriverFilesystem
	}
	if c.Blob.Driver == constants.BlobDriverFilesystem && c.Blob.Directory == "" {
		c.Blob.Directory = constants.DefaultBlobDir
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = constants.TracingExporterNone
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = constants.DefaultServiceName
	}
}
