package fieldquad

import (
	"fmt"

	"github.com/pkg/errors"
)

// Exit status codes used by the process boundary.
const (
	ExitOK    = 0
	ExitFatal = 1
)

// FatalEnvironmentError marks a failure of the GPU environment or of the
// shipped shader sources. Nothing downstream retries it: the process boundary
// reports it and exits with ExitFatal.
type FatalEnvironmentError struct {
	Op  string
	Err error
}

func (e *FatalEnvironmentError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalEnvironmentError) Unwrap() error { return e.Err }

// Check is invoked after every state-changing call into the GPU or window
// subsystem. It returns nil when err is nil and a *FatalEnvironmentError
// naming op otherwise. An error that is already fatal keeps its original op.
func Check(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FatalEnvironmentError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalEnvironmentError{Op: op, Err: err}
}

// Fatalf builds a FatalEnvironmentError for invariant violations detected
// locally rather than reported by the subsystem.
func Fatalf(op string, format string, args ...any) error {
	return &FatalEnvironmentError{Op: op, Err: errors.Errorf(format, args...)}
}

// IsFatal reports whether err carries a FatalEnvironmentError.
func IsFatal(err error) bool {
	var fe *FatalEnvironmentError
	return errors.As(err, &fe)
}

// ExitFunc terminates the process. Tests substitute it.
type ExitFunc func(code int)

// Boundary is the single place where errors turn into process termination.
type Boundary struct {
	Logger Logger
	Exit   ExitFunc
}

// Fail reports err in one line and exits with ExitFatal.
func (b Boundary) Fail(err error) {
	OrNop(b.Logger).Errorf("%v", err)
	b.exit(ExitFatal)
}

// Terminate exits with ExitOK. Resources are left to process exit.
func (b Boundary) Terminate() {
	b.exit(ExitOK)
}

func (b Boundary) exit(code int) {
	if s, ok := b.Logger.(interface{ Sync() }); ok {
		s.Sync()
	}
	b.Exit(code)
}
