package engine

import "errors"

// FaultKind classifies why a method invocation terminated abnormally at the
// engine level, per the error taxonomy of spec §7. It is "kinds, not types":
// a single Fault carries one of these, never a Go type hierarchy.
type FaultKind string

const (
	// FaultLogInconsistency covers a response without a matching request, a
	// shape mismatch between a request and its paired response, or a
	// snapshot for an unrecognized entity.
	FaultLogInconsistency FaultKind = "log_inconsistency"
	// FaultNonDeterminism covers a replayed method diverging from the log:
	// a different interaction, different arguments, different order, or
	// completing while logged interactions remain unreplayed.
	FaultNonDeterminism FaultKind = "non_determinism"
	// FaultDomainFailure covers a domain method body terminating abnormally
	// (it returned an error or panicked).
	FaultDomainFailure FaultKind = "domain_failure"
	// FaultContractViolation covers malformed input: offsets not strictly
	// increasing, multiple top-level requests, or a missing top-level
	// request when method progress is expected.
	FaultContractViolation FaultKind = "contract_violation"
)

// Fault is the structured failure reified into an ErrorRaised message. It
// mirrors the teacher's wrapped-error shape (message + cause) so faults
// survive serialization across the message boundary while still supporting
// errors.Is/As for engine-internal handling.
type Fault struct {
	Kind    FaultKind
	Message string
	Cause   error
}

// NewFault constructs a Fault of the given kind with a formatted message.
func NewFault(kind FaultKind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// WrapFault constructs a Fault of the given kind wrapping cause, which is
// typically the error a domain method body returned (FaultDomainFailure).
func WrapFault(kind FaultKind, cause error) *Fault {
	if cause == nil {
		return nil
	}
	return &Fault{Kind: kind, Message: cause.Error(), Cause: cause}
}

// Error implements the error interface so a Fault can be returned/wrapped
// using standard Go error-handling idioms internally, even though it only
// ever crosses the package boundary reified as an ErrorRaised Message.
func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	return string(f.Kind) + ": " + f.Message
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (f *Fault) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Cause
}

// Is reports whether target is a Fault of the same kind, letting callers
// write errors.Is(err, &Fault{Kind: FaultNonDeterminism}).
func (f *Fault) Is(target error) bool {
	var t *Fault
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return f.Kind == t.Kind
}
