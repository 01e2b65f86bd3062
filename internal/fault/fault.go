// Package fault collects bootstrap errors in two severities.
//
// Standard errors are logged and kept so a caller can report them all at once.
// Fatal errors halt bootstrap: they are returned to the caller tagged so that
// IsFatal can recognize them after any amount of wrapping.
package fault

import (
	"errors"
	"sync"

	"github.com/Data-Corruption/stdx/xlog"
	"github.com/samber/oops"
)

const fatalTag = "fatal"

// Reporter records standard errors and produces fatal ones.
// A nil logger is allowed, errors are then only collected. A nil Reporter
// drops standard errors.
type Reporter struct {
	log *xlog.Logger

	mu       sync.Mutex
	problems []error
}

func NewReporter(log *xlog.Logger) *Reporter {
	return &Reporter{log: log}
}

// Standard records a recoverable error. Execution continues.
func (r *Reporter) Standard(err error) {
	if err == nil || r == nil {
		return
	}
	r.mu.Lock()
	r.problems = append(r.problems, err)
	r.mu.Unlock()
	if r.log != nil {
		r.log.Warnf("%v", err)
	}
}

// Fatal tags err as fatal, logs it and returns it. The caller must stop.
func (r *Reporter) Fatal(err error) error {
	if err == nil {
		return nil
	}
	if r != nil && r.log != nil {
		r.log.Errorf("fatal: %v", err)
	}
	return oops.Tags(fatalTag).Wrap(err)
}

// Problems returns a copy of the collected standard errors.
func (r *Reporter) Problems() []error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.problems...)
}

// IsFatal reports whether err, or anything it wraps, was produced by Fatal.
func IsFatal(err error) bool {
	for err != nil {
		if o, ok := oops.AsOops(err); ok && o.HasTag(fatalTag) {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
