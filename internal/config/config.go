// Package config loads the kioskpad daemon's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the kioskpad daemon.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config. The file is the primary surface; flags only override.
type Config struct {
	// Controller and keyboard input
	Input InputConfig `yaml:"input"`

	// Focus movement
	Navigation NavigationConfig `yaml:"navigation"`

	// Button mappings and the capture wizard
	Mapping MappingConfig `yaml:"mapping"`

	// Button-combo listener while the UI is hidden
	Background BackgroundConfig `yaml:"background"`

	// HTTP + WebSocket API for the UI
	Server ServerConfig `yaml:"server"`

	// Unix socket for kioskpad-ctl
	IPC IPCConfig `yaml:"ipc"`

	// Optional MQTT bridge
	MQTT MQTTConfig `yaml:"mqtt"`

	Logging LoggingConfig `yaml:"logging"`
}

type InputConfig struct {
	PollIntervalMS   int      `yaml:"poll_interval_ms"`
	JoystickGlob     string   `yaml:"joystick_glob"`
	HotplugDir       string   `yaml:"hotplug_dir"`
	KeyboardDevices  []string `yaml:"keyboard_devices,omitempty"`
	RescanIntervalMS int      `yaml:"rescan_interval_ms"`
}

type NavigationConfig struct {
	Scope            string `yaml:"scope"`
	RepeatIntervalMS int    `yaml:"repeat_interval_ms"`
	RepeatDelayTicks int    `yaml:"repeat_delay_ticks"`
}

type MappingConfig struct {
	SettleMS      int    `yaml:"settle_ms"`
	AutoConfigure bool   `yaml:"auto_configure"`
	StorePath     string `yaml:"store_path"` // empty keeps mappings in memory only
}

type BackgroundConfig struct {
	Enabled           bool `yaml:"enabled"`
	PollIntervalMS    int  `yaml:"poll_interval_ms"`
	MonitorIntervalMS int  `yaml:"monitor_interval_ms"`
	SuspendTicks      int  `yaml:"suspend_ticks"`
	StopTicks         int  `yaml:"stop_ticks"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type MQTTConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"client_id"`
	Username     string `yaml:"username,omitempty"`
	PasswordFile string `yaml:"password_file,omitempty"`
	TopicPrefix  string `yaml:"topic_prefix"`
	QoS          int    `yaml:"qos"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout or stderr
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			PollIntervalMS:   100,
			JoystickGlob:     "/dev/input/js*",
			HotplugDir:       "/dev/input",
			RescanIntervalMS: 2000,
		},
		Navigation: NavigationConfig{
			Scope:            "main",
			RepeatIntervalMS: 100,
			RepeatDelayTicks: 7,
		},
		Mapping: MappingConfig{
			SettleMS:      300,
			AutoConfigure: true,
			StorePath:     "~/.local/share/kioskpad/kioskpad.db",
		},
		Background: BackgroundConfig{
			Enabled:           true,
			PollIntervalMS:    1000,
			MonitorIntervalMS: 100,
			SuspendTicks:      30,
			StopTicks:         100,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:3002",
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/kioskpad.sock",
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Broker:      "tcp://127.0.0.1:1883",
			ClientID:    "kioskpad",
			TopicPrefix: "kioskpad",
			QoS:         1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// LoadFile reads and parses a YAML config file on top of DefaultConfig.
// Unknown fields and trailing documents are rejected.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML config data on top of DefaultConfig.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds command-line overrides. Each pointer is applied only if
// non-nil, even when it points at a zero value.
type FlagOverrides struct {
	PollIntervalMS  *int
	JoystickGlob    *string
	KeyboardDevices *string // comma-separated

	Scope *string

	AutoConfigure *bool
	StorePath     *string

	BackgroundEnabled *bool

	Listen        *string
	IPCSocketPath *string

	MQTTEnabled *bool
	MQTTBroker  *string

	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.PollIntervalMS != nil {
		cfg.Input.PollIntervalMS = *o.PollIntervalMS
	}
	if o.JoystickGlob != nil {
		cfg.Input.JoystickGlob = *o.JoystickGlob
	}
	if o.KeyboardDevices != nil {
		cfg.Input.KeyboardDevices = splitList(*o.KeyboardDevices)
	}

	if o.Scope != nil {
		cfg.Navigation.Scope = *o.Scope
	}

	if o.AutoConfigure != nil {
		cfg.Mapping.AutoConfigure = *o.AutoConfigure
	}
	if o.StorePath != nil {
		cfg.Mapping.StorePath = *o.StorePath
	}

	if o.BackgroundEnabled != nil {
		cfg.Background.Enabled = *o.BackgroundEnabled
	}

	if o.Listen != nil {
		cfg.Server.Listen = *o.Listen
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.MQTTEnabled != nil {
		cfg.MQTT.Enabled = *o.MQTTEnabled
	}
	if o.MQTTBroker != nil {
		cfg.MQTT.Broker = *o.MQTTBroker
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	// Input
	if c.Input.PollIntervalMS < 10 || c.Input.PollIntervalMS > 1000 {
		return errors.New("input.poll_interval_ms must be between 10 and 1000")
	}
	if c.Input.JoystickGlob == "" {
		return errors.New("input.joystick_glob must not be empty")
	}
	if c.Input.RescanIntervalMS < 0 {
		return errors.New("input.rescan_interval_ms must be >= 0")
	}
	for i, dev := range c.Input.KeyboardDevices {
		if dev == "" {
			return fmt.Errorf("input.keyboard_devices[%d] is empty", i)
		}
	}

	// Navigation
	if c.Navigation.Scope == "" {
		return errors.New("navigation.scope must not be empty")
	}
	if c.Navigation.RepeatIntervalMS <= 0 {
		return errors.New("navigation.repeat_interval_ms must be > 0")
	}
	if c.Navigation.RepeatDelayTicks < 1 {
		return errors.New("navigation.repeat_delay_ticks must be >= 1")
	}

	// Mapping
	if c.Mapping.SettleMS < 0 {
		return errors.New("mapping.settle_ms must be >= 0")
	}

	// Background
	if c.Background.Enabled {
		if c.Background.PollIntervalMS <= 0 {
			return errors.New("background.poll_interval_ms must be > 0")
		}
		if c.Background.MonitorIntervalMS <= 0 {
			return errors.New("background.monitor_interval_ms must be > 0")
		}
		if c.Background.SuspendTicks <= 0 {
			return errors.New("background.suspend_ticks must be > 0")
		}
		if c.Background.StopTicks <= c.Background.SuspendTicks {
			return errors.New("background.stop_ticks must be > background.suspend_ticks")
		}
	}

	// Server / IPC
	if c.Server.Listen == "" {
		return errors.New("server.listen must not be empty")
	}
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// MQTT
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return errors.New("mqtt.enabled is true but mqtt.broker is empty")
		}
		if c.MQTT.TopicPrefix == "" || strings.ContainsAny(c.MQTT.TopicPrefix, "+#") {
			return errors.New("mqtt.topic_prefix must be non-empty and contain no wildcards")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return errors.New("mqtt.qos must be 0, 1 or 2")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q", "text", "json")
	}
	switch c.Logging.Output {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("logging.output must be %q or %q", "stdout", "stderr")
	}

	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c InputConfig) PollInterval() time.Duration   { return ms(c.PollIntervalMS) }
func (c InputConfig) RescanInterval() time.Duration { return ms(c.RescanIntervalMS) }

func (c NavigationConfig) RepeatInterval() time.Duration { return ms(c.RepeatIntervalMS) }

func (c MappingConfig) Settle() time.Duration { return ms(c.SettleMS) }

func (c BackgroundConfig) PollInterval() time.Duration    { return ms(c.PollIntervalMS) }
func (c BackgroundConfig) MonitorInterval() time.Duration { return ms(c.MonitorIntervalMS) }

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
