package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireSpoolLock_Exclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := acquireSpoolLock(dir)
	require.NoError(t, err)

	_, err = acquireSpoolLock(dir)
	require.ErrorContains(t, err, "another scheduler")

	require.NoError(t, first.Unlock())
	again, err := acquireSpoolLock(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestSignalOn_NonBlocking(t *testing.T) {
	ch := make(chan struct{}, 1)
	notify := signalOn(ch)
	notify(context.Background(), "a")
	notify(context.Background(), "b")
	require.Len(t, ch, 1)
}
