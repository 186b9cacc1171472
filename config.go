package eventrt

import (
	"sync"
	"time"
)

// Infinity disables the idle-shutdown timer when used as an
// AggregateOptions.ShutdownTimeout value.
const Infinity time.Duration = -1

const (
	defaultShutdownTimeout = 15 * time.Minute
	defaultSnapshotEvery   = 100
)

// AggregateOptions is the bag of per-module knobs spec §4.7 describes.
// A zero value of a field means "unset"; the Config resolver falls
// through to the framework default for that field.
type AggregateOptions struct {
	ShutdownTimeout time.Duration
	SnapshotEvery   int
}

// Config resolves AggregateOptions with three-tier precedence: an
// explicit argument given at the call site beats a process-wide setting
// registered for that module name, which beats the framework default.
// It generalizes the functional-options idiom this module's store
// adapters use (mem.Option, pgx.Option) from "one adapter's knobs" to
// "any module's knobs, looked up by name at runtime."
type Config struct {
	mu    sync.RWMutex
	byName map[string]AggregateOptions
}

// NewConfig builds a Config, applying opts in order.
func NewConfig(opts ...ConfigOption) *Config {
	c := &Config{byName: make(map[string]AggregateOptions)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConfigOption configures a Config at construction time.
type ConfigOption func(*Config)

// WithAggregateOptions registers process-wide options for the named
// aggregate module. Later calls for the same name overwrite earlier ones.
func WithAggregateOptions(name string, o AggregateOptions) ConfigOption {
	return func(c *Config) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.byName[name] = o
	}
}

// Set registers (or replaces) options for name after construction.
func (c *Config) Set(name string, o AggregateOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[name] = o
}

// ShutdownTimeout resolves the idle-shutdown duration for name, given the
// explicit value an AggregateType carried (0 means "none given").
func (c *Config) ShutdownTimeout(name string, explicit time.Duration) time.Duration {
	if explicit != 0 {
		return explicit
	}
	if o, ok := c.lookup(name); ok && o.ShutdownTimeout != 0 {
		return o.ShutdownTimeout
	}
	return defaultShutdownTimeout
}

// SnapshotEvery resolves the snapshot cadence for name, given the
// explicit value an AggregateType carried (0 means "none given").
func (c *Config) SnapshotEvery(name string, explicit int) int {
	if explicit != 0 {
		return explicit
	}
	if o, ok := c.lookup(name); ok && o.SnapshotEvery != 0 {
		return o.SnapshotEvery
	}
	return defaultSnapshotEvery
}

func (c *Config) lookup(name string) (AggregateOptions, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.byName[name]
	return o, ok
}
