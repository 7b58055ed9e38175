// Package harvest implements the incremental pagination loop over an
// infinitely-loading view: extract rows, deduplicate by key, advance, wait,
// repeat until a target count or a cycle budget is exhausted.
package harvest

import (
	"context"
	"time"
)

// Row is one harvested record. The "key" field is its deduplication identity;
// rows without it are discarded.
type Row map[string]any

// Key returns the row's deduplication identity, or "" when absent.
func (r Row) Key() string {
	switch v := r["key"].(type) {
	case string:
		return v
	default:
		return ""
	}
}

// Extractor pulls the currently rendered rows out of the live view. Concrete
// DOM-query mechanics live entirely behind this interface.
type Extractor interface {
	Extract(ctx context.Context) ([]Row, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context) ([]Row, error)

func (f ExtractorFunc) Extract(ctx context.Context) ([]Row, error) { return f(ctx) }

// Advancer moves the view forward between cycles (scroll, reload).
type Advancer interface {
	Advance(ctx context.Context) error
}

// AdvancerFunc adapts a function to Advancer.
type AdvancerFunc func(ctx context.Context) error

func (f AdvancerFunc) Advance(ctx context.Context) error { return f(ctx) }

// Options bound one Collect call.
type Options struct {
	Limit     int           // target unique row count; results are truncated to it
	MaxCycles int           // scroll budget; default 14
	Pause     time.Duration // render wait between cycles; default 750ms
}

func (o Options) withDefaults() Options {
	if o.Limit < 1 {
		o.Limit = 1
	}
	if o.MaxCycles < 1 {
		o.MaxCycles = 14
	}
	if o.Pause <= 0 {
		o.Pause = 750 * time.Millisecond
	}
	return o
}

// Collect runs extract-then-advance cycles until Limit unique rows have been
// seen or MaxCycles is exhausted. First occurrence wins on duplicate keys.
// A short result is valid: the view may hold fewer rows than requested.
// Dedup state is per call; separate calls never share it.
func Collect(ctx context.Context, ex Extractor, adv Advancer, opts Options) ([]Row, error) {
	opts = opts.withDefaults()

	seen := map[string]bool{}
	ordered := make([]Row, 0, opts.Limit)

	for cycle := 0; cycle < opts.MaxCycles; cycle++ {
		rows, err := ex.Extract(ctx)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			key := row.Key()
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			ordered = append(ordered, row)
		}
		if len(ordered) >= opts.Limit {
			break
		}
		if cycle == opts.MaxCycles-1 {
			break
		}
		if adv != nil {
			if err := adv.Advance(ctx); err != nil {
				return nil, err
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Pause):
		}
	}

	if len(ordered) > opts.Limit {
		ordered = ordered[:opts.Limit]
	}
	return ordered, nil
}

// ClampLimit bounds a user-supplied limit into [1, max].
func ClampLimit(v, max int) int {
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}
