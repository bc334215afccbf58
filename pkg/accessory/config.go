package accessory

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atsaudio/atsbt/pkg/comm"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "150ms" or "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config carries connection parameters and the firmware-specific
// knobs: terminal tokens, timeouts and the retry budget are validated
// against the real accessory rather than hard-coded.
type Config struct {
	// Port is the serial port identifier. Empty means autodetect by
	// probing every enumerated port.
	Port string `yaml:"port"`
	// Baud is the serial rate. Defaults to 115200.
	Baud int `yaml:"baud"`
	// Tokens are the terminal response tokens.
	Tokens comm.Tokens `yaml:"tokens"`
	// ProbeCommand identifies the accessory during autodetection and
	// when a session connects.
	ProbeCommand string `yaml:"probe_command"`

	CommandTimeout   Duration `yaml:"command_timeout"`
	PairTimeout      Duration `yaml:"pair_timeout"`
	AudioOpenTimeout Duration `yaml:"audio_open_timeout"`
	ProbeTimeout     Duration `yaml:"probe_timeout"`
	SettleDelay      Duration `yaml:"settle_delay"`
	PollInterval     Duration `yaml:"poll_interval"`
	ResetDelay       Duration `yaml:"reset_delay"`

	// ScanSeconds is the inquiry duration requested from the firmware.
	ScanSeconds int `yaml:"scan_seconds"`
	// Retries is the per-command resend budget after timeouts.
	Retries int `yaml:"retries"`
	// FaultThreshold is how many consecutive command timeouts fault a
	// connected session.
	FaultThreshold int `yaml:"fault_threshold"`
}

// DefaultConfig returns the stock ATS-BT firmware settings.
func DefaultConfig() *Config {
	return &Config{
		Baud:             comm.DefaultBaudRate,
		Tokens:           comm.DefaultTokens(),
		ProbeCommand:     "GET STATUS",
		CommandTimeout:   Duration(comm.DefaultCommandTimeout),
		PairTimeout:      Duration(30 * time.Second),
		AudioOpenTimeout: Duration(15 * time.Second),
		ProbeTimeout:     Duration(comm.DefaultProbeTimeout),
		SettleDelay:      Duration(comm.DefaultSettleDelay),
		PollInterval:     Duration(500 * time.Millisecond),
		ResetDelay:       Duration(3 * time.Second),
		ScanSeconds:      5,
		Retries:          comm.DefaultRetries,
		FaultThreshold:   3,
	}
}

// LoadConfig reads a YAML config file over the defaults. Fields absent
// from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
