package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the file/env/flag-resolved shape of the scheduler's tuning
// knobs. Translate it into jobsystem.Config with ToSchedulerConfig-style
// call sites in the embedding program (cmd/jobsystemdemo does this).
type Config struct {
	NumWorkers   int    `mapstructure:"num_workers"`
	PoolCapacity int    `mapstructure:"pool_capacity"`
	StealWaitMS  int    `mapstructure:"steal_wait_ms"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// StealWait converts StealWaitMS to a time.Duration.
func (c Config) StealWait() time.Duration {
	return time.Duration(c.StealWaitMS) * time.Millisecond
}

// Default returns the configuration used when no file, environment
// variable, or flag overrides a field.
func Default() Config {
	return Config{
		NumWorkers:   0,
		PoolCapacity: 4096,
		StealWaitMS:  1,
		MetricsAddr:  "",
	}
}

// Load resolves configuration from, in increasing order of precedence: the
// built-in defaults, an optional file at path (if non-empty), JOBSYSTEM_*
// environment variables, and flags bound via BindFlags. path may be empty,
// in which case only defaults/env/flags apply.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("jobsystem")
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("num_workers", def.NumWorkers)
	v.SetDefault("pool_capacity", def.PoolCapacity)
	v.SetDefault("steal_wait_ms", def.StealWaitMS)
	v.SetDefault("metrics_addr", def.MetricsAddr)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("jobsystem/config: reading %s: %w", path, err)
		}
	}

	if flags != nil {
		// Flag names are hyphenated (num-workers); config keys use
		// underscores (num_workers), so bind each flag under its key.
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr == nil {
				bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("jobsystem/config: binding flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("jobsystem/config: unmarshal: %w", err)
	}
	return cfg, nil
}

// BindFlags registers the flags Load understands onto fs. Register them
// on a command's flag set, then pass that same flag set to Load so
// explicit flags take precedence over file and environment values.
func BindFlags(fs *pflag.FlagSet) {
	fs.Int("num-workers", 0, "worker pool size (0 = runtime.NumCPU)")
	fs.Int("pool-capacity", 4096, "fixed Job pool capacity")
	fs.Int("steal-wait-ms", 1, "cooperative wait bound in milliseconds")
	fs.String("metrics-addr", "", "Prometheus metrics listen address, empty disables")
}
