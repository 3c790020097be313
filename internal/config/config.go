package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
)

// MaxConfigFileBytes caps the size of a configuration file.
const MaxConfigFileBytes = 1 << 20

// SDKConfig selects the vendor SDK implementation.
type SDKConfig struct {
	Driver              string `yaml:"driver"`                 // "sim"
	PacketSizeTimeoutMs int    `yaml:"packet_size_timeout_ms"` // GVSPAdjustPacketSize wait bound
}

// SimCamera describes one simulated camera (driver "sim").
type SimCamera struct {
	ID              string  `yaml:"id"`
	Name            string  `yaml:"name"`
	Model           string  `yaml:"model"`
	Width           int64   `yaml:"width"`        // sensor width in px
	Height          int64   `yaml:"height"`       // sensor height in px
	PixelFormat     string  `yaml:"pixel_format"` // e.g. "BayerRG8"
	FrameRate       float64 `yaml:"frame_rate"`
	IncompleteEvery uint64  `yaml:"incomplete_every"` // every Nth frame arrives incomplete (0 = never)
}

// SimConfig holds the simulated SDK's devices.
type SimConfig struct {
	Cameras []SimCamera `yaml:"cameras"`
}

// AcquisitionConfig controls continuous acquisition.
type AcquisitionConfig struct {
	FrameBuffers    int    `yaml:"frame_buffers"`    // frames announced to the SDK (>= 2)
	ColorProcessing string `yaml:"color_processing"` // off | matrix
	FrameLogging    string `yaml:"frame_logging"`    // off | errors | warnings | show
}

// FeaturesConfig lists the features polled for every camera.
type FeaturesConfig struct {
	Names         []string `yaml:"names"`
	DefaultPollMs int      `yaml:"default_poll_ms"` // used when the camera reports no polling time
}

// LoopConfig sets the host loop rate.
type LoopConfig struct {
	TickHz float64 `yaml:"tick_hz"`
}

// WebConfig tunes the web viewer.
type WebConfig struct {
	JPEGQuality int     `yaml:"jpeg_quality"`
	StreamFPS   float64 `yaml:"stream_fps"` // websocket frame rate cap
}

// SinkConfig configures frame publishing.
type SinkConfig struct {
	ZMQEndpoint string `yaml:"zmq_endpoint"` // e.g. "tcp://*:5556"; empty disables
}

// TriggerConfig drives the camera trigger input.
type TriggerConfig struct {
	Enabled bool    `yaml:"enabled"`
	Source  string  `yaml:"source"`   // software | line1
	Pin     int     `yaml:"pin"`      // BCM pin wired to Line1
	PulseUs int     `yaml:"pulse_us"` // high time of the line pulse
	RateHz  float64 `yaml:"rate_hz"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	SDK         SDKConfig         `yaml:"sdk"`
	Sim         SimConfig         `yaml:"sim"`
	Cameras     []string          `yaml:"cameras"` // IDs to open; empty opens every detected camera
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Features    FeaturesConfig    `yaml:"features"`
	Loop        LoopConfig        `yaml:"loop"`
	Web         WebConfig         `yaml:"web"`
	Sink        SinkConfig        `yaml:"sink"`
	Trigger     TriggerConfig     `yaml:"trigger"`
	Defaults    DefaultsConfig    `yaml:"defaults"`
}

// ValidateConfigPath accepts only .yaml files directly inside a directory
// named "configs", with no parent traversal.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain ..", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file larger than %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.SDK.Driver == "" {
		cfg.SDK.Driver = "sim"
	}
	if cfg.SDK.Driver != "sim" {
		return fmt.Errorf("sdk.driver %q is not supported (want sim)", cfg.SDK.Driver)
	}
	if cfg.SDK.PacketSizeTimeoutMs <= 0 {
		cfg.SDK.PacketSizeTimeoutMs = 2000
	}
	if len(cfg.Sim.Cameras) == 0 {
		cfg.Sim.Cameras = []SimCamera{{ID: "DEV_SIM0"}}
	}
	seen := make(map[string]bool)
	for i := range cfg.Sim.Cameras {
		c := &cfg.Sim.Cameras[i]
		if c.ID == "" {
			c.ID = fmt.Sprintf("DEV_SIM%d", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("sim.cameras: duplicate id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Width < 0 || c.Height < 0 {
			return fmt.Errorf("sim.cameras[%s]: width and height must be >= 0", c.ID)
		}
		if err := checkFinite(fmt.Sprintf("sim.cameras[%s].frame_rate", c.ID), c.FrameRate); err != nil {
			return err
		}
	}

	if cfg.Acquisition.FrameBuffers == 0 {
		cfg.Acquisition.FrameBuffers = 4
	}
	if cfg.Acquisition.FrameBuffers < 2 {
		return fmt.Errorf("acquisition.frame_buffers must be >= 2, got %d", cfg.Acquisition.FrameBuffers)
	}
	if _, err := acquisition.ParseColorProcessing(cfg.Acquisition.ColorProcessing); err != nil {
		return fmt.Errorf("acquisition.color_processing: %w", err)
	}
	if _, err := acquisition.ParseLogMode(cfg.Acquisition.FrameLogging); err != nil {
		return fmt.Errorf("acquisition.frame_logging: %w", err)
	}

	if cfg.Features.DefaultPollMs <= 0 {
		cfg.Features.DefaultPollMs = 1000
	}
	if cfg.Features.Names == nil {
		cfg.Features.Names = []string{"ExposureTimeAbs", "Gain", "AcquisitionFrameRateAbs", "PixelFormat"}
	}

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"loop.tick_hz", cfg.Loop.TickHz},
		{"web.stream_fps", cfg.Web.StreamFPS},
		{"trigger.rate_hz", cfg.Trigger.RateHz},
	} {
		if err := checkFinite(f.name, f.v); err != nil {
			return err
		}
	}
	if cfg.Loop.TickHz <= 0 {
		cfg.Loop.TickHz = 30
	}
	if cfg.Loop.TickHz > 1000 {
		return fmt.Errorf("loop.tick_hz must be <= 1000, got %g", cfg.Loop.TickHz)
	}

	if cfg.Web.JPEGQuality == 0 {
		cfg.Web.JPEGQuality = 80
	}
	if cfg.Web.JPEGQuality < 1 || cfg.Web.JPEGQuality > 100 {
		return fmt.Errorf("web.jpeg_quality must be between 1 and 100, got %d", cfg.Web.JPEGQuality)
	}
	if cfg.Web.StreamFPS <= 0 {
		cfg.Web.StreamFPS = 10
	}

	if cfg.Trigger.Source == "" {
		cfg.Trigger.Source = "software"
	}
	if cfg.Trigger.Source != "software" && cfg.Trigger.Source != "line1" {
		return fmt.Errorf("trigger.source must be software or line1, got %q", cfg.Trigger.Source)
	}
	if cfg.Trigger.PulseUs <= 0 {
		cfg.Trigger.PulseUs = 100
	}
	if cfg.Trigger.RateHz <= 0 {
		cfg.Trigger.RateHz = 1
	}
	if cfg.Trigger.RateHz > cfg.Loop.TickHz {
		return fmt.Errorf("trigger.rate_hz (%g) cannot exceed loop.tick_hz (%g)", cfg.Trigger.RateHz, cfg.Loop.TickHz)
	}
	if cfg.Trigger.Enabled && cfg.Trigger.Source == "line1" && cfg.Trigger.Pin <= 0 {
		return fmt.Errorf("trigger.pin is required for source line1")
	}

	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	return nil
}

// checkFinite rejects NaN and Inf. NaN slips past the <= 0 and upper
// bound checks below, and Inf turns into a zero interval.
func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite number, got %g", name, v)
	}
	return nil
}

// ColorProcessing returns the parsed acquisition.color_processing.
func (c *Config) ColorProcessing() acquisition.ColorProcessing {
	p, _ := acquisition.ParseColorProcessing(c.Acquisition.ColorProcessing)
	return p
}

// FrameLogging returns the parsed acquisition.frame_logging.
func (c *Config) FrameLogging() acquisition.LogMode {
	l, _ := acquisition.ParseLogMode(c.Acquisition.FrameLogging)
	return l
}

// PacketSizeTimeout bounds the GigE packet size negotiation.
func (c *Config) PacketSizeTimeout() time.Duration {
	return time.Duration(c.SDK.PacketSizeTimeoutMs) * time.Millisecond
}

// DefaultPollInterval is used for features reporting no polling time.
func (c *Config) DefaultPollInterval() time.Duration {
	return time.Duration(c.Features.DefaultPollMs) * time.Millisecond
}

// TickInterval returns the host loop period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Loop.TickHz)
}

// StreamInterval returns the minimum spacing of websocket frames.
func (c *Config) StreamInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Web.StreamFPS)
}

// TriggerPulse returns how long the trigger line is held high.
func (c *Config) TriggerPulse() time.Duration {
	return time.Duration(c.Trigger.PulseUs) * time.Microsecond
}

// TriggerPeriod returns the spacing of trigger pulses.
func (c *Config) TriggerPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.Trigger.RateHz)
}
