package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestError_MessageIncludesFieldsAndCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := WithFields(Wrap(IncompatibleProtocol, cause, "unsupported provider"), map[string]string{
		"protocol_reference": "hello_world_service.v2.proto",
		"protocol_kind":      "grpc+proto",
	})

	assert.Equal(t,
		`error: code = IncompatibleProtocol message = unsupported provider protocol_kind = "grpc+proto" protocol_reference = "hello_world_service.v2.proto": boom`,
		err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestError_IsComparesCode(t *testing.T) {
	err := Wrap(CallFailed, stderrors.New("x"), "call")

	assert.True(t, stderrors.Is(err, &Error{Code: CallFailed}))
	assert.False(t, stderrors.Is(err, &Error{Code: ConnectFailed}))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil", err: nil, want: 0},
		{name: "own error", err: New(RegistryUnreachable, "down"), want: RegistryUnreachable},
		{name: "context canceled", err: context.Canceled, want: Canceled},
		{name: "foreign error", err: stderrors.New("other"), want: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(RegistryUnreachable, "")))
	assert.True(t, Retryable(New(ConnectFailed, "")))
	assert.False(t, Retryable(New(IncompatibleProtocol, "")))
	assert.False(t, Retryable(New(CallFailed, "")))
	assert.False(t, Retryable(nil))
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "unavailable", err: status.Error(codes.Unavailable, "conn refused"), want: ConnectFailed},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "slow"), want: ConnectFailed},
		{name: "canceled", err: status.Error(codes.Canceled, "gone"), want: Canceled},
		{name: "application error", err: status.Error(codes.InvalidArgument, "bad name"), want: CallFailed},
		{name: "not a status", err: stderrors.New("plain"), want: CallFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatus(tt.err, ConnectFailed, CallFailed, "say hello")
			require.Error(t, err)
			assert.Equal(t, tt.want, CodeOf(err))
		})
	}

	assert.NoError(t, FromStatus(nil, ConnectFailed, CallFailed, ""))
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, FromContext(ctx))

	cancel()
	err := FromContext(ctx)
	assert.True(t, IsCode(err, Canceled))
	assert.ErrorIs(t, err, context.Canceled)
}
