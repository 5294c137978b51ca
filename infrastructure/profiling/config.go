package profiling

import "time"

const (
	defaultPprofAddress     = "localhost:6060"
	defaultPyroscopeServer  = "http://pyroscope:4040"
	defaultPyroscopeEnv     = "development"
	defaultApplicationGroup = "north-cloud"
	pprofReadHeaderTimeout  = 5 * time.Second
)

// Config controls the on-demand pprof endpoint and continuous profiling.
// Both are off unless enabled.
type Config struct {
	PprofEnabled bool `env:"ENABLE_PROFILING" yaml:"pprof_enabled"`
	// PprofAddress should stay on loopback; the endpoints are unauthenticated.
	PprofAddress string `env:"PPROF_ADDRESS" yaml:"pprof_address"`

	PyroscopeEnabled     bool   `env:"ENABLE_CONTINUOUS_PROFILING" yaml:"pyroscope_enabled"`
	PyroscopeServer      string `env:"PYROSCOPE_SERVER_URL"        yaml:"pyroscope_server"`
	PyroscopeEnvironment string `env:"PYROSCOPE_ENVIRONMENT"       yaml:"pyroscope_environment"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.PprofAddress == "" {
		c.PprofAddress = defaultPprofAddress
	}
	if c.PyroscopeServer == "" {
		c.PyroscopeServer = defaultPyroscopeServer
	}
	if c.PyroscopeEnvironment == "" {
		c.PyroscopeEnvironment = defaultPyroscopeEnv
	}
}
