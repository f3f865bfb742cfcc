package crmsync

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/agentstation/crmsync/pkg/errors"
	"github.com/agentstation/crmsync/pkg/mapping"
	"github.com/agentstation/crmsync/pkg/sync"
)

// Journal records finished passes.
type Journal interface {
	Record(ctx context.Context, res *sync.Result, passErr error) error
}

// options configures a Syncer.
type options struct {
	mapping *mapping.Config
	journal Journal
	clock   clockwork.Clock
	passID  func() string
}

func defaults() *options {
	return &options{
		clock:  clockwork.NewRealClock(),
		passID: uuid.NewString,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Option is a function that configures a Syncer instance
type Option func(*options) error

// WithMapping configures the field mapping, the built-in mapping by default
func WithMapping(cfg *mapping.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return &errors.ValidationError{Field: "mapping", Message: "cannot be nil"}
		}
		o.mapping = cfg
		return nil
	}
}

// WithJournal records every pass, including aborted ones
func WithJournal(j Journal) Option {
	return func(o *options) error {
		o.journal = j
		return nil
	}
}

// WithClock configures the clock used for pass timestamps and scheduling
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) error {
		if clock == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		o.clock = clock
		return nil
	}
}

// WithPassIDs configures how pass identifiers are generated
func WithPassIDs(fn func() string) Option {
	return func(o *options) error {
		if fn == nil {
			return &errors.ValidationError{Field: "passID", Message: "cannot be nil"}
		}
		o.passID = fn
		return nil
	}
}
