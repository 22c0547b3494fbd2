package replay

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/xid"

	"github.com/dshills/cryptex/internal/engine/reconcile"
	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/model"
	"github.com/dshills/cryptex/internal/snapshot"
)

// Version is the log format written by this package.
const Version = 1

var (
	// ErrReplay wraps every failure to load or apply a log.
	ErrReplay = errors.New("replay failed")

	// ErrVersion is returned for logs written by a newer format.
	ErrVersion = errors.New("unsupported replay version")

	// ErrNondeterministic is returned by Verify when two replays of the
	// same log disagree.
	ErrNondeterministic = errors.New("replay is not deterministic")
)

// Log is a persisted sequence of records.
type Log struct {
	Version int         `json:"version" yaml:"version"`
	Session string      `json:"session,omitempty" yaml:"session,omitempty"`
	Records record.List `json:"records" yaml:"records"`
}

// Capture wraps records in a log stamped with a new session id.
func Capture(records []record.Record) Log {
	return Log{
		Version: Version,
		Session: xid.New().String(),
		Records: slices.Clone(records),
	}
}

// FromDiff captures the records that turn base into edited.
func FromDiff(base, edited snapshot.Layer) (Log, error) {
	rs, err := reconcile.Layer(base, edited)
	if err != nil {
		return Log{}, err
	}
	return Capture(rs), nil
}

// Len returns the number of records.
func (l Log) Len() int { return len(l.Records) }

// IsEmpty reports whether the log has no records.
func (l Log) IsEmpty() bool { return len(l.Records) == 0 }

// Append returns a log holding l's records followed by other's. The
// session of l is kept.
func (l Log) Append(other Log) Log {
	out := l
	out.Records = slices.Concat(l.Records, other.Records)
	return out
}

// Check rejects logs this package cannot replay.
func (l Log) Check() error {
	if l.Version > Version {
		return fmt.Errorf("%w: %w: %d", ErrReplay, ErrVersion, l.Version)
	}
	for i, r := range l.Records {
		if r == nil {
			return fmt.Errorf("%w: record %d is empty", ErrReplay, i)
		}
	}
	return nil
}

// Option configures Apply.
type Option func(*options)

type options struct {
	enforceLocks bool
}

// WithoutLocks replays with lock gating disabled, for authoring logs that
// edit locked entities.
func WithoutLocks() Option {
	return func(o *options) { o.enforceLocks = false }
}

// Apply builds a fresh layer from base, applies every record of log in
// order and returns the result.
func Apply(base snapshot.Layer, log Log, opts ...Option) (snapshot.Layer, error) {
	o := options{enforceLocks: true}
	for _, opt := range opts {
		opt(&o)
	}
	if err := log.Check(); err != nil {
		return snapshot.Layer{}, err
	}

	var modelOpts []model.Option
	if !o.enforceLocks {
		modelOpts = append(modelOpts, model.WithoutLocks())
	}
	layer, err := model.FromSnapshot(base, modelOpts...)
	if err != nil {
		return snapshot.Layer{}, fmt.Errorf("%w: base: %w", ErrReplay, err)
	}
	if err := ApplyTo(layer, log); err != nil {
		return snapshot.Layer{}, err
	}
	return layer.Snapshot(), nil
}

// ApplyTo applies log to a live layer. On failure the records already
// applied are reverted and the layer is left as it was.
func ApplyTo(layer *model.Layer, log Log) error {
	if err := log.Check(); err != nil {
		return err
	}
	if _, err := record.ApplyAll(layer, log.Records); err != nil {
		return fmt.Errorf("%w: %w", ErrReplay, err)
	}
	return nil
}

// Verify replays log against base n times and fails unless every result
// hashes the same. It returns the hash.
func Verify(base snapshot.Layer, log Log, n int, opts ...Option) (string, error) {
	var want string
	for i := range max(n, 1) {
		out, err := Apply(base, log, opts...)
		if err != nil {
			return "", err
		}
		got, err := Hash(out)
		if err != nil {
			return "", err
		}
		if i == 0 {
			want = got
			continue
		}
		if got != want {
			return "", fmt.Errorf("%w: run %d hashed %s, run 0 hashed %s", ErrNondeterministic, i, got, want)
		}
	}
	return want, nil
}
