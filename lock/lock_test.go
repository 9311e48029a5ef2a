package lock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itbidhan/asterisk/lock"
)

func TestNoneFlavorIsNoOp(t *testing.T) {
	l, err := lock.New(lock.FlavorNone)
	require.NoError(t, err)
	require.NoError(t, l.Lock(lock.ModeRead))
	require.NoError(t, l.Lock(lock.ModeWrite))
	ok, err := l.TryLock(lock.ModeMutex)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Unlock(lock.ModeMutex))
}

func TestMutexFlavorIgnoresMode(t *testing.T) {
	l, err := lock.New(lock.FlavorMutex)
	require.NoError(t, err)
	require.NoError(t, l.Lock(lock.ModeRead))
	ok, err := l.TryLock(lock.ModeWrite)
	require.NoError(t, err)
	assert.False(t, ok, "already held exclusively")
	require.NoError(t, l.Unlock(lock.ModeMutex))

	ok, err = l.TryLock(lock.ModeWrite)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Unlock(lock.ModeMutex))
}

func TestRWLockerRejectsMutexMode(t *testing.T) {
	l, err := lock.New(lock.FlavorRWMutex)
	require.NoError(t, err)
	require.ErrorIs(t, l.Lock(lock.ModeMutex), lock.ErrInvalidOption)
}

func TestRWLockerAdjustLevelUpgrade(t *testing.T) {
	l, err := lock.New(lock.FlavorRWMutex)
	require.NoError(t, err)
	require.NoError(t, l.Lock(lock.ModeRead))

	prev, err := l.AdjustLevel(lock.ModeWrite, false)
	require.NoError(t, err)
	assert.Equal(t, lock.ModeRead, prev)

	_, err = l.AdjustLevel(prev, false)
	require.NoError(t, err)

	require.NoError(t, l.Unlock(lock.ModeRead))
}

func TestRWLockerAdjustLevelKeepIfStronger(t *testing.T) {
	l, err := lock.New(lock.FlavorRWMutex)
	require.NoError(t, err)
	require.NoError(t, l.Lock(lock.ModeWrite))

	prev, err := l.AdjustLevel(lock.ModeRead, true)
	require.NoError(t, err)
	assert.Equal(t, lock.ModeWrite, prev, "write hold must not be downgraded")

	require.NoError(t, l.Unlock(lock.ModeWrite))
}

func TestRWLockerAdjustLevelSameModeNoop(t *testing.T) {
	l, err := lock.New(lock.FlavorRWMutex)
	require.NoError(t, err)
	require.NoError(t, l.Lock(lock.ModeRead))

	prev, err := l.AdjustLevel(lock.ModeRead, false)
	require.NoError(t, err)
	assert.Equal(t, lock.ModeRead, prev)

	require.NoError(t, l.Unlock(lock.ModeRead))
}

func TestNewRejectsUnknownFlavor(t *testing.T) {
	_, err := lock.New(lock.Flavor(99))
	require.ErrorIs(t, err, lock.ErrInvalidOption)
}
