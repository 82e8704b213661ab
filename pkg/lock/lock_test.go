package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"loyalty-connector/pkg/config"
)

func TestLocalExcludesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "C-1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "C-1")
	require.ErrorIs(t, err, ErrHeld)

	other, err := l.Acquire(ctx, "C-2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "C-1")
	require.NoError(t, err)
	again()
}

func TestNewLockerSelection(t *testing.T) {
	cfg := &config.Config{}

	cfg.Redemption.LockEnabled = false
	require.IsType(t, Noop{}, NewLocker(LockerParams{Config: cfg}))

	cfg.Redemption.LockEnabled = true
	require.IsType(t, &Local{}, NewLocker(LockerParams{Config: cfg}))
}
