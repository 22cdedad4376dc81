package pool

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Defaults applied to zero-valued fields in PoolDef and Config.
const (
	// DefaultAlignment is the byte alignment applied when a definition
	// leaves Alignment unset.
	DefaultAlignment = 8

	// DefaultGCTTL is the age past which garbage collection frees an
	// allocation the caller never released.
	DefaultGCTTL = 5 * time.Minute

	// DefaultLeakAge is the age past which the leak audit reports an
	// allocation. Independent of the GC TTL: with GC enabled at the default
	// TTL nothing survives long enough to be audited, so the audit matters
	// for pools that disable GC.
	DefaultLeakAge = time.Hour

	// DefaultGCInterval is how often the maintenance cycle sweeps all pools.
	DefaultGCInterval = 5 * time.Minute

	// DefaultLeakAuditInterval is how often the maintenance cycle audits
	// for leaks.
	DefaultLeakAuditInterval = time.Hour

	// DefaultHistorySize bounds the rolling log of past allocations kept for
	// diagnostics.
	DefaultHistorySize = 128
)

const envPrefix = "poolkit"

// PoolDef is the static definition of one pool. Pools are created once at
// construction and keep their footprint for the life of the process;
// resizing is a documented future extension, not implemented.
type PoolDef struct {
	Name      string `yaml:"name"`
	Size      int64  `yaml:"size"`       // total bytes
	BlockSize int64  `yaml:"block_size"` // bytes per block
	Alignment int64  `yaml:"alignment"`  // default byte alignment, 0 = DefaultAlignment

	// GCTTL is the age past which GarbageCollect frees an allocation.
	// 0 means DefaultGCTTL.
	GCTTL time.Duration `yaml:"gc_ttl"`

	// GCDisabled exempts the pool from garbage collection entirely. Leak
	// auditing still applies.
	GCDisabled bool `yaml:"gc_disabled"`

	// LeakAge is the age past which AuditLeaks reports an allocation.
	// 0 means DefaultLeakAge.
	LeakAge time.Duration `yaml:"leak_age"`
}

// validate reports everything wrong with the definition. The checks mirror
// what newBlockPool relies on, so a validated definition cannot fail pool
// construction.
func (d *PoolDef) validate() error {
	var errs *multierror.Error
	if d.Name == "" {
		errs = multierror.Append(errs, &ConfigError{Pool: d.Name, Reason: "name must not be empty"})
	}
	if d.BlockSize <= 0 {
		errs = multierror.Append(errs, &ConfigError{Pool: d.Name, Reason: "block size must be positive"})
	}
	if d.BlockSize > 0 && d.Size < d.BlockSize {
		errs = multierror.Append(errs, &ConfigError{Pool: d.Name,
			Reason: fmt.Sprintf("total size %d is smaller than one block (%d)", d.Size, d.BlockSize)})
	}
	if d.Alignment < 0 {
		errs = multierror.Append(errs, &ConfigError{Pool: d.Name, Reason: "alignment must not be negative"})
	}
	if d.GCTTL < 0 {
		errs = multierror.Append(errs, &ConfigError{Pool: d.Name, Reason: "gc_ttl must not be negative"})
	}
	if d.LeakAge < 0 {
		errs = multierror.Append(errs, &ConfigError{Pool: d.Name, Reason: "leak_age must not be negative"})
	}
	return errs.ErrorOrNil()
}

// withDefaults returns a copy with zero-valued tunables filled in.
func (d PoolDef) withDefaults() PoolDef {
	if d.Alignment == 0 {
		d.Alignment = DefaultAlignment
	}
	if d.GCTTL == 0 {
		d.GCTTL = DefaultGCTTL
	}
	if d.LeakAge == 0 {
		d.LeakAge = DefaultLeakAge
	}
	return d
}

// Config is the full allocator configuration: the static pool list plus the
// maintenance tunables. The zero value is not usable; start from
// DefaultConfig or LoadConfig.
type Config struct {
	Pools []PoolDef `yaml:"pools" ignored:"true"`

	// GCInterval is the period of the maintenance GC sweep across all pools.
	GCInterval time.Duration `yaml:"gc_interval" envconfig:"GC_INTERVAL"`

	// LeakAuditInterval is the period of the maintenance leak audit.
	LeakAuditInterval time.Duration `yaml:"leak_audit_interval" envconfig:"LEAK_AUDIT_INTERVAL"`

	// HistorySize bounds the rolling allocation history kept in the global
	// metrics. 0 means DefaultHistorySize.
	HistorySize int `yaml:"history_size" envconfig:"HISTORY_SIZE"`

	// Logger receives warnings (unknown-id deallocation, leak findings) and
	// debug output. Defaults to the logrus standard logger.
	Logger logrus.FieldLogger `yaml:"-" ignored:"true"`
}

// DefaultConfig returns the pool layout the analysis pipeline ships with.
func DefaultConfig() Config {
	return Config{
		Pools: []PoolDef{
			{Name: "statistical", Size: 2 << 20, BlockSize: 1024, Alignment: 8},
			{Name: "text", Size: 4 << 20, BlockSize: 4096, Alignment: 8},
			{Name: "cache", Size: 8 << 20, BlockSize: 4096, Alignment: 16},
			{Name: "scratch", Size: 1 << 20, BlockSize: 512, Alignment: 8},
		},
		GCInterval:        DefaultGCInterval,
		LeakAuditInterval: DefaultLeakAuditInterval,
		HistorySize:       DefaultHistorySize,
	}
}

// LoadConfig reads a YAML config file and applies POOLKIT_* environment
// overrides on top. The result is validated; a bad pool definition is fatal
// here, before any pool exists.
func LoadConfig(path string) (Config, error) {
	conf := Config{
		GCInterval:        DefaultGCInterval,
		LeakAuditInterval: DefaultLeakAuditInterval,
		HistorySize:       DefaultHistorySize,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("pool: read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &conf); err != nil {
		return Config{}, fmt.Errorf("pool: parse config: %w", err)
	}
	if err := envconfig.Process(envPrefix, &conf); err != nil {
		return Config{}, fmt.Errorf("pool: env overrides: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate checks the whole configuration and aggregates every problem
// found, so a misconfigured deployment fails with one complete message.
func (c *Config) Validate() error {
	var errs *multierror.Error
	seen := make(map[string]bool, len(c.Pools))

	if len(c.Pools) == 0 {
		errs = multierror.Append(errs, &ConfigError{Reason: "no pools defined"})
	}
	for i := range c.Pools {
		def := &c.Pools[i]
		if err := def.validate(); err != nil {
			errs = multierror.Append(errs, err)
		}
		if seen[def.Name] {
			errs = multierror.Append(errs, &ConfigError{Pool: def.Name, Reason: "duplicate pool name"})
		}
		seen[def.Name] = true
	}
	if c.GCInterval < 0 {
		errs = multierror.Append(errs, &ConfigError{Reason: "gc_interval must not be negative"})
	}
	if c.LeakAuditInterval < 0 {
		errs = multierror.Append(errs, &ConfigError{Reason: "leak_audit_interval must not be negative"})
	}
	if c.HistorySize < 0 {
		errs = multierror.Append(errs, &ConfigError{Reason: "history_size must not be negative"})
	}
	return errs.ErrorOrNil()
}

// logger returns the configured logger or the process-wide default.
func (c *Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}
