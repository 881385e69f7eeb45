// Package sync reconciles courts from the court register into the legacy
// prison system.
package sync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/courtsync/internal/lock"
	"github.com/agentstation/courtsync/pkg/errors"
	"github.com/agentstation/courtsync/pkg/transform"
)

// Resolver resolves reference codes and can be warmed ahead of a full pass.
type Resolver interface {
	transform.Resolver
	Initialise(ctx context.Context, domains ...string) error
}

// Tracker receives reconciliation events.
type Tracker interface {
	Track(ctx context.Context, event string, attributes map[string]string)
}

// Options controls how a Syncer reconciles courts.
type Options struct {
	// ApplyChanges issues legacy writes. When false the pass is a dry run:
	// diffs, statistics and events are still produced.
	ApplyChanges bool
	Timeout      time.Duration // Bounds a whole pass; zero means no limit

	Resolver Resolver
	Tracker  Tracker
	Locker   lock.Locker
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// Defaults returns the default sync options: dry run, in-process locking and
// no event tracking.
func Defaults() *Options {
	return &Options{
		ApplyChanges: false,
		Timeout:      0,
		Tracker:      nopTracker{},
		Locker:       lock.NewMemory(),
		Now:          time.Now,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Validate checks if the sync options are valid.
func (o *Options) Validate() error {
	if o.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   o.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	if o.Resolver == nil {
		return &errors.ValidationError{
			Field:   "Resolver",
			Message: "a reference code resolver is required",
		}
	}
	return nil
}

// WithApplyChanges configures whether legacy writes are issued.
func WithApplyChanges(apply bool) Option {
	return func(opts *Options) {
		opts.ApplyChanges = apply
	}
}

// WithDryRun configures dry run mode. It is the inverse of WithApplyChanges.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.ApplyChanges = !dryRun
	}
}

// WithTimeout configures the timeout of a whole pass.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithResolver configures the reference code resolver.
func WithResolver(resolver Resolver) Option {
	return func(opts *Options) {
		opts.Resolver = resolver
	}
}

// WithTracker configures where reconciliation events are sent.
func WithTracker(tracker Tracker) Option {
	return func(opts *Options) {
		if tracker != nil {
			opts.Tracker = tracker
		}
	}
}

// WithLocker configures per-court locking.
func WithLocker(locker lock.Locker) Option {
	return func(opts *Options) {
		if locker != nil {
			opts.Locker = locker
		}
	}
}

// WithLogger configures the logger. Without one the context logger is used.
func WithLogger(logger *zerolog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithClock overrides the clock used for start and deactivation dates.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		if now != nil {
			opts.Now = now
		}
	}
}

type nopTracker struct{}

func (nopTracker) Track(context.Context, string, map[string]string) {}
