package fieldquad

import (
	"bytes"
	"flag"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// InteropKind selects how the compute side writes the shared field.
type InteropKind string

const (
	// InteropDevice runs the field kernel as a compute shader on the device.
	InteropDevice InteropKind = "device"
	// InteropHost maps a staging buffer and runs the kernel on host workers.
	InteropHost InteropKind = "host"
)

type Config struct {
	FrameRate    int         `yaml:"frameRate"`
	WindowWidth  int         `yaml:"windowWidth"`
	WindowHeight int         `yaml:"windowHeight"`
	WindowTitle  string      `yaml:"windowTitle"`
	Interop      InteropKind `yaml:"interop"`
	HostWorkers  int         `yaml:"hostWorkers"`
	Debug        bool        `yaml:"debug"`
	MetricsAddr  string      `yaml:"metricsAddr"`
}

func DefaultConfig() Config {
	return Config{
		FrameRate:    30,
		WindowWidth:  800,
		WindowHeight: 800,
		WindowTitle:  "fieldquad",
		Interop:      InteropDevice,
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the
// defaults; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, cfg.Validate()
}

// BindFlags registers command-line overrides for every field of c.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.FrameRate, "fps", c.FrameRate, "Target frame rate (ticks per second)")
	fs.IntVar(&c.WindowWidth, "width", c.WindowWidth, "Window width")
	fs.IntVar(&c.WindowHeight, "height", c.WindowHeight, "Window height")
	fs.StringVar(&c.WindowTitle, "title", c.WindowTitle, "Window title")
	fs.Func("interop", "Compute path writing the shared field: device or host", func(s string) error {
		c.Interop = InteropKind(s)
		return nil
	})
	fs.IntVar(&c.HostWorkers, "workers", c.HostWorkers, "Host kernel workers (0 = GOMAXPROCS)")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "Serve Prometheus metrics on this address")
}

// Override copies the fields of flags whose flag names appear in set, so
// explicitly given flags win over a loaded file.
func (c *Config) Override(flags Config, set map[string]bool) {
	if set["fps"] {
		c.FrameRate = flags.FrameRate
	}
	if set["width"] {
		c.WindowWidth = flags.WindowWidth
	}
	if set["height"] {
		c.WindowHeight = flags.WindowHeight
	}
	if set["title"] {
		c.WindowTitle = flags.WindowTitle
	}
	if set["interop"] {
		c.Interop = flags.Interop
	}
	if set["workers"] {
		c.HostWorkers = flags.HostWorkers
	}
	if set["debug"] {
		c.Debug = flags.Debug
	}
	if set["metrics"] {
		c.MetricsAddr = flags.MetricsAddr
	}
}

func (c Config) Validate() error {
	if c.FrameRate <= 0 {
		return errors.Errorf("config: frame rate must be positive, got %d", c.FrameRate)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return errors.Errorf("config: window size must be positive, got %dx%d", c.WindowWidth, c.WindowHeight)
	}
	switch c.Interop {
	case InteropDevice, InteropHost:
	default:
		return errors.Errorf("config: unknown interop %q", c.Interop)
	}
	if c.HostWorkers < 0 {
		return errors.Errorf("config: host workers must not be negative, got %d", c.HostWorkers)
	}
	return nil
}
