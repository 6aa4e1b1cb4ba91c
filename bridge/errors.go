package bridge

import "fmt"

// MissingSymbolError reports a module that does not export a required entry
// point (or exports it with the wrong signature, which is indistinguishable
// from the harness's point of view).
type MissingSymbolError struct {
	Name string
}

func (e *MissingSymbolError) Error() string {
	return fmt.Sprintf("bridge: module missing required entry point %q", e.Name)
}

// LoadFailureError reports a module artifact that could not be read or
// evaluated at all.
type LoadFailureError struct {
	Reason string
	err    error
}

func (e *LoadFailureError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("bridge: load failed: %s: %v", e.Reason, e.err)
	}
	return fmt.Sprintf("bridge: load failed: %s", e.Reason)
}

func (e *LoadFailureError) Unwrap() error { return e.err }
