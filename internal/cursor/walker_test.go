package cursor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("upstream 503")

type item struct {
	ID        int64
	UpdatedAt int64
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func noSleep(context.Context, time.Duration) error { return nil }

func idSource(n int64, pageSize int) func(ctx context.Context, after int64) ([]item, error) {
	return func(_ context.Context, after int64) ([]item, error) {
		var page []item
		for id := after + 1; id <= n && len(page) < pageSize; id++ {
			page = append(page, item{ID: id})
		}
		return page, nil
	}
}

func newIDWalker(fetch func(context.Context, int64) ([]item, error), seen *[]int64) *Walker[int64, item] {
	return &Walker[int64, item]{
		Name:  "test",
		Fetch: fetch,
		Next:  func(last item) int64 { return last.ID },
		Handle: func(_ context.Context, page []item) {
			for _, it := range page {
				*seen = append(*seen, it.ID)
			}
		},
		IsTransient: func(err error) bool { return errors.Is(err, errTransient) },
		Logger:      quietLogger(),
		Sleep:       noSleep,
	}
}

func TestWalker_IDCursorEndsAtMaxSeenID(t *testing.T) {
	var seen []int64
	w := newIDWalker(idSource(12, 5), &seen)

	res := w.Walk(context.Background(), 0)

	require.NoError(t, res.Err)
	assert.Equal(t, int64(12), res.Cursor)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 12, res.Items)
	assert.IsIncreasing(t, seen)
	assert.Len(t, seen, 12)
}

func TestWalker_ResumesFromSeed(t *testing.T) {
	var seen []int64
	w := newIDWalker(idSource(12, 5), &seen)

	res := w.Walk(context.Background(), 10)

	require.NoError(t, res.Err)
	assert.Equal(t, []int64{11, 12}, seen)
	assert.Equal(t, int64(12), res.Cursor)
}

func TestWalker_RetriesTransientErrorOnSameCursor(t *testing.T) {
	var seen []int64
	var calls []int64
	failures := 2
	src := idSource(6, 3)
	w := newIDWalker(func(ctx context.Context, after int64) ([]item, error) {
		calls = append(calls, after)
		if after == 3 && failures > 0 {
			failures--
			return nil, errTransient
		}
		return src(ctx, after)
	}, &seen)

	res := w.Walk(context.Background(), 0)

	require.NoError(t, res.Err)
	assert.Equal(t, []int64{0, 3, 3, 3, 6}, calls)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, seen)
}

func TestWalker_AbortsOnNonTransientError(t *testing.T) {
	var seen []int64
	boom := errors.New("boom")
	src := idSource(9, 3)
	w := newIDWalker(func(ctx context.Context, after int64) ([]item, error) {
		if after == 3 {
			return nil, boom
		}
		return src(ctx, after)
	}, &seen)

	res := w.Walk(context.Background(), 0)

	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, int64(3), res.Cursor)
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestWalker_GivesUpAfterMaxRetries(t *testing.T) {
	var seen []int64
	calls := 0
	w := newIDWalker(func(context.Context, int64) ([]item, error) {
		calls++
		return nil, errTransient
	}, &seen)
	w.MaxRetries = 3

	res := w.Walk(context.Background(), 0)

	assert.ErrorIs(t, res.Err, errTransient)
	assert.Equal(t, 4, calls)
}

func TestWalker_TimestampCursorStopsWhenNotAdvancing(t *testing.T) {
	data := []item{{ID: 1, UpdatedAt: 100}, {ID: 2, UpdatedAt: 200}, {ID: 3, UpdatedAt: 300}}
	fetch := func(_ context.Context, since int64) ([]item, error) {
		var page []item
		for _, it := range data {
			if it.UpdatedAt >= since && len(page) < 2 {
				page = append(page, it)
			}
		}
		return page, nil
	}
	var handled []int64
	w := &Walker[int64, item]{
		Name:   "ts",
		Fetch:  fetch,
		Next:   func(last item) int64 { return last.UpdatedAt },
		Handle: func(_ context.Context, page []item) {
			for _, it := range page {
				handled = append(handled, it.ID)
			}
		},
		Logger: quietLogger(),
		Sleep:  noSleep,
	}

	res := w.Walk(context.Background(), 0)

	require.NoError(t, res.Err)
	assert.Equal(t, int64(300), res.Cursor)
	// 边界上的条目会被重复处理一次
	assert.Equal(t, []int64{1, 2, 2, 3, 3}, handled)
}

func TestWalker_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var seen []int64
	src := idSource(100, 1)
	w := newIDWalker(func(c context.Context, after int64) ([]item, error) {
		if after == 2 {
			cancel()
		}
		return src(c, after)
	}, &seen)

	res := w.Walk(ctx, 0)

	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, []int64{1, 2, 3}, seen)
}
