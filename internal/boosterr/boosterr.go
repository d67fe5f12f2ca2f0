// Package boosterr defines the error kinds for the structural failures that abort a
// run (ConfigError, LoadError).
//
// Structural kinds propagate through normal error returns and are meant to reach
// main() and abort the process. The numerical anomalies (DegenerateWeakHypothesis,
// WeightInvariant, ResumeMismatch, TimeBudgetExceeded) have no Kind here: callers
// log them with klog and continue, and never return them as errors from the hot
// training loop.
package boosterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which of the abstract error kinds in spec §7 a Error carries.
type Kind int

const (
	// ConfigError: missing mandatory option, unknown learner name, contradictory flags.
	ConfigError Kind = iota
	// LoadError: I/O failure, malformed header, unregistered weak-learner name, version mismatch.
	LoadError
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case LoadError:
		return "LoadError"
	default:
		return "UnknownError"
	}
}

// Error wraps a structural failure with its Kind, following the same
// errors.Wrapf-at-the-boundary style as internal/config.
type Error struct {
	Kind Kind
	msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewConfig reports a ConfigError: the caller should abort startup.
func NewConfig(format string, args ...any) error {
	return &Error{Kind: ConfigError, msg: fmt.Sprintf(format, args...)}
}

// WrapConfig wraps an existing error as a ConfigError.
func WrapConfig(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ConfigError, msg: fmt.Sprintf(format, args...), Err: err}
}

// NewLoad reports a LoadError: the caller should abort the load and exit non-zero.
func NewLoad(format string, args ...any) error {
	return &Error{Kind: LoadError, msg: fmt.Sprintf(format, args...)}
}

// WrapLoad wraps an existing error (I/O failure, malformed tag) as a LoadError.
func WrapLoad(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: LoadError, msg: fmt.Sprintf(format, args...), Err: errors.WithStack(err)}
}

// IsKind reports whether err (or any error it wraps) is a boosterr.Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == kind
}
