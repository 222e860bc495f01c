package driver

import (
	"fmt"
	"time"

	"chatscrape/pkg/config"
	"chatscrape/pkg/models"
)

const (
	DefaultDelayMin            = 1 * time.Second
	DefaultDelayMax            = 5 * time.Second
	DefaultMaxIterations       = 500
	DefaultNoProgressThreshold = 10
)

// Options is a start request
type Options struct {
	DelayMin            time.Duration
	DelayMax            time.Duration
	IncludeDates        bool
	IncludeTimestamps   bool
	MaxIterations       int
	NoProgressThreshold int

	// Seed holds items from an earlier run of the same session. Their
	// identity keys and sequence numbers carry over.
	Seed []models.Item
	// Counterpart is a name resolved by an earlier run
	Counterpart string
}

// DefaultOptions returns the documented defaults
func DefaultOptions() Options {
	return Options{
		DelayMin:            DefaultDelayMin,
		DelayMax:            DefaultDelayMax,
		IncludeDates:        true,
		IncludeTimestamps:   true,
		MaxIterations:       DefaultMaxIterations,
		NoProgressThreshold: DefaultNoProgressThreshold,
	}
}

// OptionsFromConfig builds options from the extraction section
func OptionsFromConfig(cfg config.ExtractionConfig) Options {
	return Options{
		DelayMin:            cfg.DelayMin,
		DelayMax:            cfg.DelayMax,
		IncludeDates:        cfg.IncludeDates,
		IncludeTimestamps:   cfg.IncludeTimestamps,
		MaxIterations:       cfg.MaxIterations,
		NoProgressThreshold: cfg.NoProgressThreshold,
	}.withDefaults()
}

// withDefaults fills unset counters. Zero delays are valid and kept.
func (o Options) withDefaults() Options {
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.NoProgressThreshold == 0 {
		o.NoProgressThreshold = DefaultNoProgressThreshold
	}
	return o
}

// Validate checks the delay window and loop limits
func (o Options) Validate() error {
	if o.DelayMin < 0 || o.DelayMax < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if o.DelayMax < o.DelayMin {
		return fmt.Errorf("delay max (%s) is below delay min (%s)", o.DelayMax, o.DelayMin)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1")
	}
	if o.NoProgressThreshold < 1 {
		return fmt.Errorf("no-progress threshold must be at least 1")
	}
	return nil
}
