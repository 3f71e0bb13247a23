package webauthn

import "fmt"

// Kind classifies why a ceremony step failed. Every error the core returns
// carries exactly one Kind; callers switch on it to decide how to respond
// to the client (HTTP status, retry policy, user-facing message).
type Kind int

const (
	// KindMalformedInput covers JSON/CBOR/Base64URL/X.509 decode failures
	// and structurally invalid or missing required fields.
	KindMalformedInput Kind = iota
	// KindContractViolation covers a step whose contract wasn't satisfied:
	// wrong type, wrong challenge, wrong origin, bad token binding,
	// non-subset extensions, counter regression, signature mismatch,
	// duplicate credential ID, untrusted attestation when not permitted.
	KindContractViolation
	// KindUnsupportedFormat covers an unrecognized attestation fmt, ECDAA,
	// or a non-P-256 key where only P-256 is supported.
	KindUnsupportedFormat
	// KindUnknownCredential covers assertion lookups that find no credential.
	KindUnknownCredential
	// KindUnknownUser covers assertion lookups that find no user.
	KindUnknownUser
	// KindInternal covers programmer errors that should be impossible on a
	// well-configured deployment (e.g. a required capability not wired up).
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed_input"
	case KindContractViolation:
		return "contract_violation"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindUnknownCredential:
		return "unknown_credential"
	case KindUnknownUser:
		return "unknown_user"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the single error type returned by every step of both ceremony
// pipelines. It is never used for control flow outside of normal Go error
// returns; Details/Info/cause are for diagnostics only and are never part
// of the comparison used by callers (compare Kind, not the message).
type Error struct {
	Kind    Kind
	Message string

	// info is extra, non-sensitive debugging context appended to the
	// message when present (expected vs. received values, offsets, etc).
	info string
	// cause, if set, is the underlying error this one wraps (e.g. a JSON
	// or CBOR decode failure from a caller-supplied library).
	cause error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.info != "" {
		msg = msg + ": " + e.info
	}
	if e.cause != nil {
		msg = msg + ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithInfo returns a copy of e with additional human-readable detail
// appended to the error message (e.g. expected vs. received values).
func (e *Error) WithInfo(info string) *Error {
	cp := *e
	cp.info = info
	return &cp
}

// WithDetails returns a copy of e with Message replaced. Mirrors the
// duo-labs/webauthn ErrFoo.WithDetails(...) builder convention.
func (e *Error) WithDetails(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithCause returns a copy of e wrapping the given cause. The cause is
// included in Error() and reachable via errors.Unwrap/errors.Is.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Base error values for each kind. Steps build on these via
// WithDetails/WithInfo/WithCause rather than constructing *Error directly,
// mirroring the Err* sentinel convention used throughout the pack
// (protocol.ErrVerification, protocol.ErrInvalidAttestation, ...).
var (
	ErrMalformedInput    = &Error{Kind: KindMalformedInput, Message: "malformed input"}
	ErrContractViolation = &Error{Kind: KindContractViolation, Message: "contract violation"}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat, Message: "unsupported format"}
	ErrUnknownCredential = &Error{Kind: KindUnknownCredential, Message: "unknown credential"}
	ErrUnknownUser       = &Error{Kind: KindUnknownUser, Message: "unknown user"}
	ErrInternal          = &Error{Kind: KindInternal, Message: "internal error"}
)

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
