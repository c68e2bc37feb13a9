package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/stupside/lutra/internal/player"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig `koanf:"browser" validate:"required"`
	Scan    ScanConfig    `koanf:"scan" validate:"required"`
	Fetch   FetchConfig   `koanf:"fetch" validate:"required"`
	Play    PlayConfig    `koanf:"play" validate:"required"`
	Stream  StreamConfig  `koanf:"stream" validate:"required"`
}

// BrowserConfig holds browser attachment and launch settings.
type BrowserConfig struct {
	RemoteURL  string        `koanf:"remote_url" validate:"omitempty,url"`
	ChromePath string        `koanf:"chrome_path"`
	Headless   bool          `koanf:"headless"`
	NoSandbox  bool          `koanf:"no_sandbox"`
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
}

// ScanConfig tunes capture settling and enrichment.
type ScanConfig struct {
	Settle         time.Duration `koanf:"settle" validate:"required"`
	ProbeTimeout   time.Duration `koanf:"probe_timeout" validate:"required"`
	ManifestPrefix int           `koanf:"manifest_prefix_bytes" validate:"required,gt=0"`
}

// FetchConfig holds reconstruction output settings.
type FetchConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// PlayConfig holds renderer selection and streaming network settings.
type PlayConfig struct {
	Device          PlayDeviceConfig `koanf:"device"`
	Interface       string           `koanf:"interface"`
	DiscoverTimeout time.Duration    `koanf:"discover_timeout" validate:"required"`
}

// PlayDeviceConfig names the renderer playback targets by default. Address
// skips discovery entirely, which chromecasts need since they do not answer
// SSDP.
type PlayDeviceConfig struct {
	Name    string      `koanf:"name"`
	Type    player.Type `koanf:"type" validate:"omitempty,oneof=dlna chromecast"`
	Address string      `koanf:"address"`
}

// StreamConfig tunes the local stream server.
type StreamConfig struct {
	BufferSize int `koanf:"buffer_size" validate:"required,gt=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Browser: BrowserConfig{
			Timeout: 30 * time.Second,
		},
		Scan: ScanConfig{
			Settle:         3 * time.Second,
			ProbeTimeout:   2 * time.Second,
			ManifestPrefix: 1024,
		},
		Fetch: FetchConfig{
			Dir: ".",
		},
		Play: PlayConfig{
			DiscoverTimeout: 5 * time.Second,
		},
		Stream: StreamConfig{
			BufferSize: 4 << 20,
		},
	}
}

// Load reads and validates configuration from a YAML file layered over the
// defaults. A missing file leaves the defaults standing.
func Load(path string) (*Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	} else if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
