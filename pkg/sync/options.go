// Package sync provides options and results for a single reconciliation pass.
package sync

import (
	"time"

	"github.com/agentstation/crmsync/pkg/errors"
)

// Options controls one pass in Syncer.Sync().
type Options struct {
	DryRun     bool          // Read everything, write nothing
	SkipCreate bool          // Skip the creation flow
	SkipFields bool          // Skip the field flow
	Timeout    time.Duration // Timeout for the entire pass, zero for none
}

// Apply applies the given options to the sync options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{
		DryRun:     false,
		SkipCreate: false,
		SkipFields: false,
		Timeout:    0,
	}
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Validate checks if the sync options are valid.
func (s *Options) Validate() error {
	if s.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   s.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	if s.SkipCreate && s.SkipFields {
		return &errors.ValidationError{
			Field:   "SkipFields",
			Value:   s.SkipFields,
			Message: "both flows skipped, nothing to do",
		}
	}
	return nil
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithSkipCreate skips the creation flow.
func WithSkipCreate(skip bool) Option {
	return func(opts *Options) {
		opts.SkipCreate = skip
	}
}

// WithSkipFields skips the field flow.
func WithSkipFields(skip bool) Option {
	return func(opts *Options) {
		opts.SkipFields = skip
	}
}

// WithTimeout configures the pass timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}
