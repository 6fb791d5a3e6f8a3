package consumer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonnelaakso/emberplus-go/pkg/connection"
	"github.com/jonnelaakso/emberplus-go/pkg/session"
	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"Nil", nil, KindUnknown},
		{"ConnectTimeout", connection.ErrConnectTimeout, KindConnectionTimeout},
		{"RequestTimeout", session.ErrRequestTimeout, KindConnectionTimeout},
		{"ConnectFailed", fmt.Errorf("%w: refused", connection.ErrConnectFailed), KindConnectionFailed},
		{"DisconnectFailed", connection.ErrDisconnectFailed, KindDisconnectionFailed},
		{"ConnectionLost", session.ErrConnectionLost, KindNotConnected},
		{"PathNotFound", session.ErrPathNotFound, KindPathNotFound},
		{"NotParameter", session.ErrNotParameter, KindInvalidPath},
		{"GrammarError", treepath.Validate("a..b"), KindInvalidPath},
		{"ValueParse", fmt.Errorf("%w: x", value.ErrInvalidValue), KindInvalidValue},
		{"ReadOnly", session.ErrReadOnly, KindPermissionDenied},
		{"NotAuthorized", session.ErrNotAuthorized, KindPermissionDenied},
		{"DeviceError", session.ErrDeviceError, KindDeviceError},
		{"Other", errors.New("weird"), KindOperationFailed},
		{"Typed", &Error{Kind: KindSubscriptionFailed}, KindSubscriptionFailed},
		{"WrappedTyped", fmt.Errorf("outer: %w", &Error{Kind: KindPathNotFound}), KindPathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorFormat(t *testing.T) {
	err := &Error{
		Kind:    KindPathNotFound,
		Op:      "get",
		Path:    "0.1.9",
		Message: "no node at \"0.1.9\"",
	}
	assert.Equal(t, `get "0.1.9": PathNotFound: no node at "0.1.9"`, err.Error())

	conn := &Error{
		Kind: KindConnectionFailed,
		Op:   "connect",
		Host: "10.0.0.5",
		Port: 9000,
		Err:  errors.New("refused"),
	}
	assert.Equal(t, "connect 10.0.0.5:9000: ConnectionFailed: refused", conn.Error())
}

func TestErrorIs(t *testing.T) {
	cause := errors.New("socket")
	err := error(&Error{Kind: KindConnectionTimeout, Op: "set", Err: cause})

	assert.ErrorIs(t, err, ErrConnectionTimeout)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConnectionFailed)
}

func TestKindProperties(t *testing.T) {
	connectionLevel := map[Kind]bool{
		KindConnectionFailed:  true,
		KindConnectionTimeout: true,
		KindNotConnected:      true,
	}
	for k := KindUnknown; k <= KindDeviceError; k++ {
		assert.Equal(t, connectionLevel[k], k.IsConnectionLevel(), k.String())
		assert.NotContains(t, k.String(), "Kind(", "every kind has a name")
	}

	assert.Equal(t, "use browse to discover valid paths", KindPathNotFound.Hint())
	assert.Contains(t, KindInvalidPath.Hint(), "numeric")
	assert.Empty(t, KindDeviceError.Hint())

	text, err := KindPermissionDenied.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "PermissionDenied", string(text))
}

func TestWrapKeepsKind(t *testing.T) {
	inner := newError(KindPathNotFound, "", "", "missing")
	out := wrap("get", "0.1", inner)

	assert.Equal(t, KindPathNotFound, out.Kind)
	assert.Equal(t, "get", out.Op)
	assert.Equal(t, "0.1", out.Path)
	assert.Equal(t, "", inner.Op, "wrap does not mutate its input")
}
