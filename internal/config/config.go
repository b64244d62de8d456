package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Every section supplies
// defaults; command line flags win over it.
type Config struct {
	Run    RunConfig    `yaml:"run"`
	Server ServerConfig `yaml:"server"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// RunConfig holds defaults for fit runs, both local and server jobs.
type RunConfig struct {
	Model      string  `yaml:"model"`
	Trials     int     `yaml:"trials"`
	MaxError   float64 `yaml:"max_error"`
	MinInliers int     `yaml:"min_inliers"`
	Seed       int64   `yaml:"seed"`
	Workers    int     `yaml:"workers"`
	Refine     bool    `yaml:"refine"`
}

// ServerConfig configures the job server.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"data_dir"`
}

// MQTTConfig configures progress publishing. An empty Broker disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Model:      "line",
			Trials:     1000,
			MaxError:   1,
			MinInliers: 0,
			Seed:       1,
			Workers:    1,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			DataDir: "./data",
		},
		MQTT: MQTTConfig{
			ClientID: "ransacfit",
			Prefix:   "ransacfit",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. MQTT environment variables are applied last.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	config.MQTT.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as YAML.
func Save(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks value ranges. Model names are checked where they are used.
func (c *Config) Validate() error {
	if c.Run.Trials <= 0 {
		return fmt.Errorf("run.trials must be positive, got %d", c.Run.Trials)
	}
	if !(c.Run.MaxError > 0) {
		return fmt.Errorf("run.max_error must be positive, got %g", c.Run.MaxError)
	}
	if c.Run.MinInliers < 0 {
		return fmt.Errorf("run.min_inliers cannot be negative, got %d", c.Run.MinInliers)
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be at least 1, got %d", c.Run.Workers)
	}
	if c.Server.DataDir == "" {
		return fmt.Errorf("server.data_dir is required")
	}
	return nil
}

// ApplyEnv overrides fields from MQTT_BROKER, MQTT_CLIENT_ID,
// MQTT_USERNAME, MQTT_PASSWORD and MQTT_PUBLISH_PREFIX when set.
func (m *MQTTConfig) ApplyEnv() {
	for env, field := range map[string]*string{
		"MQTT_BROKER":         &m.Broker,
		"MQTT_CLIENT_ID":      &m.ClientID,
		"MQTT_USERNAME":       &m.Username,
		"MQTT_PASSWORD":       &m.Password,
		"MQTT_PUBLISH_PREFIX": &m.Prefix,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}
