// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package prefork

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	t.Run("unset is standalone", func(t *testing.T) {
		t.Setenv(EnvWorkerID, "")
		_, err := Detect()
		assert.ErrorIs(t, err, ErrStandalone)
	})

	t.Run("zero is standalone", func(t *testing.T) {
		t.Setenv(EnvWorkerID, "0")
		_, err := Detect()
		assert.ErrorIs(t, err, ErrStandalone)
	})

	t.Run("worker id", func(t *testing.T) {
		t.Setenv(EnvWorkerID, "3")
		w, err := Detect()
		require.NoError(t, err)
		assert.Equal(t, 3, w.ID())
		assert.False(t, w.IsPrimary())
	})

	t.Run("garbage", func(t *testing.T) {
		t.Setenv(EnvWorkerID, "first")
		_, err := Detect()
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStandalone)
	})
}

func TestFromID(t *testing.T) {
	w, err := FromID(1)
	require.NoError(t, err)
	assert.True(t, w.IsPrimary())

	_, err = FromID(-1)
	assert.Error(t, err)
}

func TestRunPostStart(t *testing.T) {
	w, err := FromID(2)
	require.NoError(t, err)

	var order []int
	w.PostStart(func(ctx context.Context, w *Worker) error {
		order = append(order, 1)
		return nil
	})
	w.PostStart(func(ctx context.Context, w *Worker) error {
		order = append(order, w.ID())
		return nil
	})

	require.NoError(t, w.RunPostStart(context.Background()))
	require.NoError(t, w.RunPostStart(context.Background()))
	assert.Equal(t, []int{1, 2}, order, "hooks run once, in order")
}

func TestRunPostStartStopsOnError(t *testing.T) {
	w, _ := FromID(1)
	boom := errors.New("boom")
	called := false

	w.PostStart(func(context.Context, *Worker) error { return boom })
	w.PostStart(func(context.Context, *Worker) error {
		called = true
		return nil
	})

	err := w.RunPostStart(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}
