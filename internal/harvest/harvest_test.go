package harvest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticExtractor(rows []Row) Extractor {
	return ExtractorFunc(func(context.Context) ([]Row, error) {
		return rows, nil
	})
}

func fastOpts(limit, cycles int) Options {
	return Options{Limit: limit, MaxCycles: cycles, Pause: time.Millisecond}
}

func TestCollectIdempotentOnStaticView(t *testing.T) {
	rows := []Row{
		{"key": "1", "text": "a"},
		{"key": "2", "text": "b"},
		{"key": "3", "text": "c"},
		{"key": "4", "text": "d"},
		{"key": "5", "text": "e"},
	}
	ex := staticExtractor(rows)

	first, err := Collect(context.Background(), ex, nil, fastOpts(10, 3))
	require.NoError(t, err)
	second, err := Collect(context.Background(), ex, nil, fastOpts(10, 3))
	require.NoError(t, err)

	require.Len(t, first, 5, "short result is valid when the view holds fewer rows than requested")
	assert.Equal(t, first, second, "same limit over an unchanging view must return the same ordered set")
	for i, row := range first {
		assert.Equal(t, fmt.Sprint(i+1), row.Key(), "first-seen order preserved")
	}
}

func TestCollectFirstOccurrenceWins(t *testing.T) {
	cycle := 0
	ex := ExtractorFunc(func(context.Context) ([]Row, error) {
		cycle++
		return []Row{{"key": "dup", "payload": fmt.Sprintf("cycle-%d", cycle)}}, nil
	})
	got, err := Collect(context.Background(), ex, nil, fastOpts(5, 3))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cycle-1", got[0]["payload"], "later duplicates never overwrite the first row")
}

func TestCollectStopsAtLimitAndTruncates(t *testing.T) {
	next := 0
	ex := ExtractorFunc(func(context.Context) ([]Row, error) {
		rows := make([]Row, 0, 3)
		for i := 0; i < 3; i++ {
			next++
			rows = append(rows, Row{"key": fmt.Sprintf("r%02d", next)})
		}
		return rows, nil
	})

	advances := 0
	adv := AdvancerFunc(func(context.Context) error {
		advances++
		return nil
	})

	got, err := Collect(context.Background(), ex, adv, fastOpts(7, 14))
	require.NoError(t, err)
	assert.Len(t, got, 7, "truncated to limit, not 9")
	assert.Equal(t, 2, advances, "stops after the third cycle meets the limit")
	assert.Equal(t, "r01", got[0].Key())
	assert.Equal(t, "r07", got[6].Key())
}

func TestCollectExhaustsCycleBudget(t *testing.T) {
	calls := 0
	ex := ExtractorFunc(func(context.Context) ([]Row, error) {
		calls++
		return []Row{{"key": "only"}}, nil
	})
	got, err := Collect(context.Background(), ex, nil, fastOpts(10, 4))
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 4, calls, "partial success after the budget, not an error")
}

func TestCollectDiscardsKeylessRows(t *testing.T) {
	ex := staticExtractor([]Row{
		{"text": "no key"},
		{"key": "", "text": "empty key"},
		{"key": 7, "text": "non-string key"},
		{"key": "ok"},
	})
	got, err := Collect(context.Background(), ex, nil, fastOpts(10, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Key())
}

func TestCollectNoAdvanceAfterFinalCycle(t *testing.T) {
	advances := 0
	adv := AdvancerFunc(func(context.Context) error {
		advances++
		return nil
	})
	_, err := Collect(context.Background(), staticExtractor(nil), adv, fastOpts(5, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, advances, "no scroll after the last cycle")
}

func TestCollectPropagatesExtractorError(t *testing.T) {
	boom := errors.New("page gone")
	ex := ExtractorFunc(func(context.Context) ([]Row, error) { return nil, boom })
	_, err := Collect(context.Background(), ex, nil, fastOpts(5, 3))
	assert.ErrorIs(t, err, boom)
}

func TestCollectHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ex := ExtractorFunc(func(context.Context) ([]Row, error) {
		return []Row{{"key": "x"}}, nil
	})
	cancel()
	_, err := Collect(ctx, ex, nil, Options{Limit: 10, MaxCycles: 3, Pause: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 1, ClampLimit(0, 200))
	assert.Equal(t, 1, ClampLimit(-5, 200))
	assert.Equal(t, 200, ClampLimit(1000, 200))
	assert.Equal(t, 20, ClampLimit(20, 200))
}
