package consumer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonnelaakso/emberplus-go/pkg/connection"
	"github.com/jonnelaakso/emberplus-go/pkg/session"
	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

// Kind classifies an operation failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConnectionFailed
	KindConnectionTimeout
	KindNotConnected
	KindDisconnectionFailed
	KindPathNotFound
	KindInvalidPath
	KindInvalidValue
	KindOperationFailed
	KindSubscriptionFailed
	KindPermissionDenied
	KindDeviceError
)

var kindNames = map[Kind]string{
	KindUnknown:             "Unknown",
	KindConnectionFailed:    "ConnectionFailed",
	KindConnectionTimeout:   "ConnectionTimeout",
	KindNotConnected:        "NotConnected",
	KindDisconnectionFailed: "DisconnectionFailed",
	KindPathNotFound:        "PathNotFound",
	KindInvalidPath:         "InvalidPath",
	KindInvalidValue:        "InvalidValue",
	KindOperationFailed:     "OperationFailed",
	KindSubscriptionFailed:  "SubscriptionFailed",
	KindPermissionDenied:    "PermissionDenied",
	KindDeviceError:         "DeviceError",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MarshalText renders the kind name in JSON records.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsConnectionLevel reports whether no further operation can succeed
// without a new connection.
func (k Kind) IsConnectionLevel() bool {
	switch k {
	case KindConnectionFailed, KindConnectionTimeout, KindNotConnected:
		return true
	default:
		return false
	}
}

// Hint returns remediation guidance for the kind, or "".
func (k Kind) Hint() string {
	switch k {
	case KindPathNotFound:
		return "use browse to discover valid paths"
	case KindInvalidPath:
		return "use numeric (0.1.2) or identifier-based (Device.Audio.Gain) path syntax"
	case KindNotConnected:
		return "connect to the provider before issuing operations"
	case KindConnectionFailed:
		return "check that host and port are correct and the provider is reachable"
	case KindConnectionTimeout:
		return "check network connectivity or increase the timeout"
	case KindInvalidValue:
		return "check that the value matches the declared value type"
	case KindPermissionDenied:
		return "the parameter is read-only or access is restricted"
	case KindSubscriptionFailed:
		return "check that the path addresses a parameter"
	default:
		return ""
	}
}

// Sentinel errors for errors.Is. They match any *Error of the same kind.
var (
	ErrConnectionFailed    = &Error{Kind: KindConnectionFailed}
	ErrConnectionTimeout   = &Error{Kind: KindConnectionTimeout}
	ErrNotConnected        = &Error{Kind: KindNotConnected}
	ErrDisconnectionFailed = &Error{Kind: KindDisconnectionFailed}
	ErrPathNotFound        = &Error{Kind: KindPathNotFound}
	ErrInvalidPath         = &Error{Kind: KindInvalidPath}
	ErrInvalidValue        = &Error{Kind: KindInvalidValue}
	ErrOperationFailed     = &Error{Kind: KindOperationFailed}
	ErrSubscriptionFailed  = &Error{Kind: KindSubscriptionFailed}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied}
	ErrDeviceError         = &Error{Kind: KindDeviceError}
)

// Error is the failure shape of every consumer operation.
type Error struct {
	Kind Kind

	// Op is the operation name, e.g. "get".
	Op   string
	Path string
	Host string
	Port int

	Message string
	Err     error
}

// Error renders "op path: kind: message: cause" with empty parts omitted.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Path != "" {
			fmt.Fprintf(&b, " %q", e.Path)
		} else if e.Host != "" {
			fmt.Fprintf(&b, " %s:%d", e.Host, e.Port)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Hint returns remediation guidance.
func (e *Error) Hint() string {
	return e.Kind.Hint()
}

// KindOf classifies err. Errors that carry no known classification are
// OperationFailed; nil is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}

	switch {
	case errors.Is(err, connection.ErrConnectTimeout),
		errors.Is(err, session.ErrRequestTimeout):
		return KindConnectionTimeout
	case errors.Is(err, connection.ErrConnectFailed):
		return KindConnectionFailed
	case errors.Is(err, connection.ErrDisconnectFailed):
		return KindDisconnectionFailed
	case errors.Is(err, session.ErrNotConnected),
		errors.Is(err, session.ErrConnectionLost),
		errors.Is(err, session.ErrKeepAliveTimeout):
		return KindNotConnected
	case errors.Is(err, session.ErrPathNotFound):
		return KindPathNotFound
	case errors.Is(err, session.ErrNotParameter),
		errors.Is(err, treepath.ErrInvalidPath):
		return KindInvalidPath
	case errors.Is(err, session.ErrInvalidValue),
		errors.Is(err, value.ErrInvalidValue),
		errors.Is(err, value.ErrUnknownKind):
		return KindInvalidValue
	case errors.Is(err, session.ErrReadOnly),
		errors.Is(err, session.ErrNotAuthorized):
		return KindPermissionDenied
	case errors.Is(err, session.ErrDeviceError):
		return KindDeviceError
	default:
		return KindOperationFailed
	}
}

// wrap converts err into an *Error for op and path. An existing *Error
// keeps its kind and gains missing context.
func wrap(op, path string, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		out := *ce
		if out.Op == "" {
			out.Op = op
		}
		if out.Path == "" {
			out.Path = path
		}
		return &out
	}
	return &Error{Kind: KindOf(err), Op: op, Path: path, Err: err}
}

func newError(kind Kind, op, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Message: fmt.Sprintf(format, args...)}
}
