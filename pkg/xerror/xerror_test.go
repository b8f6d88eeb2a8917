package xerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorf(t *testing.T) {
	err := Errorf(Remote, "read shard %d failed", 3)
	require.Error(t, err)
	require.Equal(t, "[remote] read shard 3 failed", err.Error())

	var xerr *XError
	require.True(t, errors.As(err, &xerr))
	require.Equal(t, Remote, xerr.Category())
	require.True(t, xerr.IsRecoverable())
	require.False(t, xerr.IsPanic())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrapf(cause, Store, "write object %s failed", "datalog.sync-status.z1")
	require.Error(t, err)
	require.True(t, errors.Is(err, cause))

	var xerr *XError
	require.True(t, errors.As(err, &xerr))
	require.Equal(t, Store, xerr.Category())
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, Normal, "nothing"))
	require.NoError(t, Wrapf(nil, Normal, "nothing %d", 1))
	require.NoError(t, WithStack(nil))
}

func TestPanicf(t *testing.T) {
	err := Panicf(Sync, "invalid sync state %d", 42)

	var xerr *XError
	require.True(t, errors.As(err, &xerr))
	require.True(t, xerr.IsPanic())
}

func TestNestedXErrorMessage(t *testing.T) {
	inner := NewWithoutStack(Remote, "timeout")
	outer := &XError{category: Sync, errType: xrecoverable, err: inner}
	require.Equal(t, "[remote] timeout", outer.Error())
}

func TestStackInVerboseFormat(t *testing.T) {
	err := New(Normal, "boom")
	verbose := fmt.Sprintf("%+v", err)
	require.Contains(t, verbose, "xerror_test.go")
}
