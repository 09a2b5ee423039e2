package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/remoterelay/internal/atcmd"
	"github.com/muurk/remoterelay/internal/device"
	"github.com/muurk/remoterelay/internal/relay"
)

// DaemonFile is the name of the relayd configuration file.
const DaemonFile = "relayd.yaml"

// Daemon is the relayd configuration.
type Daemon struct {
	Version int `yaml:"version"`

	// DeviceID names the controller on the network. Empty means derive it
	// from the host name.
	DeviceID string `yaml:"device_id,omitempty"`

	// LogLevel enables console logging at the given level.
	LogLevel string `yaml:"log_level,omitempty"`

	Flash    FlashConfig    `yaml:"flash"`
	Serial   SerialConfig   `yaml:"serial"`
	Relay    RelayConfig    `yaml:"relay"`
	HTTP     HTTPConfig     `yaml:"http"`
	Wireless WirelessConfig `yaml:"wireless"`
	Timing   TimingConfig   `yaml:"timing"`
}

// FlashConfig locates the settings sector image.
type FlashConfig struct {
	Image string `yaml:"image"`
}

// SerialConfig is the UART shared by the companion and the relay board.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type RelayConfig struct {
	Channels int `yaml:"channels"`
}

// HTTPConfig configures the API listener. TLS is used when both CertFile
// and KeyFile are set, or when SelfSigned is true.
type HTTPConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CertFile   string `yaml:"cert_file,omitempty"`
	KeyFile    string `yaml:"key_file,omitempty"`
	SelfSigned bool   `yaml:"self_signed,omitempty"`
}

// WirelessConfig tunes uplink detection. With ProbeAddr empty any
// non-loopback interface with an address counts as a link.
type WirelessConfig struct {
	ProbeAddr     string        `yaml:"probe_addr,omitempty"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

type TimingConfig struct {
	Tick               time.Duration `yaml:"tick"`
	ConnectInterval    time.Duration `yaml:"connect_interval"`
	MaxConnectAttempts int           `yaml:"max_connect_attempts"`
	ShutdownGrace      time.Duration `yaml:"shutdown_grace"`
}

var deviceIDPattern = regexp.MustCompile(`^[0-9A-Za-z]+$`)

// DefaultDaemon returns the configuration relayd runs with when no file
// exists.
func DefaultDaemon() *Daemon {
	timing := device.DefaultConfig()
	return &Daemon{
		Version: 1,
		Flash:   FlashConfig{Image: "settings.img"},
		Serial:  SerialConfig{Port: "/dev/ttyUSB0", Baud: atcmd.DefaultBaudRate},
		Relay:   RelayConfig{Channels: 2},
		HTTP:    HTTPConfig{Host: "0.0.0.0", Port: 80},
		Wireless: WirelessConfig{
			ProbeInterval: time.Second,
		},
		Timing: TimingConfig{
			Tick:               device.DefaultTick,
			ConnectInterval:    timing.ConnectInterval,
			MaxConnectAttempts: timing.MaxConnectAttempts,
			ShutdownGrace:      timing.ShutdownGrace,
		},
	}
}

// LoadDaemon reads path over the defaults. A missing file yields the
// defaults. The result is validated.
func LoadDaemon(path string) (*Daemon, error) {
	d := DefaultDaemon()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return d, nil
}

// Validate reports every problem in d.
func (d *Daemon) Validate() error {
	var errs []error
	if d.Version != 1 {
		errs = append(errs, fmt.Errorf("unsupported config version: %d (expected 1)", d.Version))
	}
	if d.DeviceID != "" && !deviceIDPattern.MatchString(d.DeviceID) {
		errs = append(errs, fmt.Errorf("device_id %q: use letters and digits only", d.DeviceID))
	}
	if d.Flash.Image == "" {
		errs = append(errs, errors.New("flash.image is required"))
	}
	if d.Serial.Port == "" {
		errs = append(errs, errors.New("serial.port is required"))
	}
	if d.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", d.Serial.Baud))
	}
	if d.Relay.Channels < 1 || d.Relay.Channels > relay.MaxChannels {
		errs = append(errs, fmt.Errorf("relay.channels must be 1..%d, got %d", relay.MaxChannels, d.Relay.Channels))
	}
	if d.HTTP.Port < 0 || d.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", d.HTTP.Port))
	}
	if (d.HTTP.CertFile == "") != (d.HTTP.KeyFile == "") {
		errs = append(errs, errors.New("http.cert_file and http.key_file must be set together"))
	}
	if d.HTTP.SelfSigned && d.HTTP.CertFile != "" {
		errs = append(errs, errors.New("http.self_signed conflicts with http.cert_file"))
	}
	if d.Timing.Tick <= 0 || d.Timing.ConnectInterval <= 0 || d.Timing.ShutdownGrace < 0 {
		errs = append(errs, errors.New("timing: tick and connect_interval must be positive, shutdown_grace not negative"))
	}
	if d.Timing.MaxConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("timing.max_connect_attempts must be at least 1, got %d", d.Timing.MaxConnectAttempts))
	}
	if d.Wireless.ProbeInterval <= 0 {
		errs = append(errs, errors.New("wireless.probe_interval must be positive"))
	}
	switch strings.ToLower(d.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q: use debug, info, warn or error", d.LogLevel))
	}
	return errors.Join(errs...)
}

// Orchestrator returns the orchestrator timing.
func (d *Daemon) Orchestrator() device.Config {
	return device.Config{
		ConnectInterval:    d.Timing.ConnectInterval,
		MaxConnectAttempts: d.Timing.MaxConnectAttempts,
		ShutdownGrace:      d.Timing.ShutdownGrace,
	}
}

// SerialPort returns the UART settings for atcmd.OpenSerial.
func (d *Daemon) SerialPort() atcmd.SerialConfig {
	return atcmd.SerialConfig{Port: d.Serial.Port, BaudRate: d.Serial.Baud}
}

// ResolveDeviceID returns DeviceID, or hostname reduced to letters and
// digits when DeviceID is empty.
func (d *Daemon) ResolveDeviceID(hostname string) string {
	if d.DeviceID != "" {
		return d.DeviceID
	}
	var b strings.Builder
	for _, r := range hostname {
		if r < 0x80 && (r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "relay"
	}
	return b.String()
}

// Save writes d to path atomically.
func (d *Daemon) Save(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# relayd configuration
#
# Device credentials live in the settings flash image, not here.

`)
	return writeAtomic(path, append(header, data...))
}
