package session

import (
	"context"
	"log/slog"

	"xlocal/internal/cookies"
	"xlocal/internal/fault"
)

// ErrNoSession means no cookie source yielded a usable record and the caller
// required an authenticated session.
var ErrNoSession = fault.Userf("no local session cookies found; run user_login_v3 --refresh first")

// Source yields fresh cookies pulled live from an installed browser profile.
type Source interface {
	Cookies(ctx context.Context) ([]cookies.Record, error)
}

// ResolveOptions controls which candidate sources a resolution may consult.
type ResolveOptions struct {
	SkipBrowser bool // bypass the fresh browser source (forced credential login)
	SkipSaved   bool // bypass the persisted set
	Require     bool // fail with ErrNoSession when nothing yields a record
}

// Resolution reports where the winning cookie set came from.
type Resolution struct {
	Records []cookies.Record
	Fresh   bool // true when the browser source won
}

// Resolver picks the cookie set backing a new automation session. The fresh
// browser source is authoritative when it yields anything; the persisted set
// is a fallback, never merged in.
type Resolver struct {
	Source Source
	Store  Store
	Log    *slog.Logger
}

func (r *Resolver) Resolve(ctx context.Context, opts ResolveOptions) (Resolution, error) {
	var sourceErr error

	if !opts.SkipBrowser && r.Source != nil {
		fresh, err := r.Source.Cookies(ctx)
		if err != nil {
			sourceErr = err
			if r.Log != nil {
				r.Log.Debug("fresh cookie source unavailable", slog.String("err", err.Error()))
			}
		} else if fresh = cookies.Filter(fresh); len(fresh) > 0 {
			return Resolution{Records: fresh, Fresh: true}, nil
		}
	}

	if !opts.SkipSaved && r.Store != nil {
		saved, err := r.Store.Load()
		if err == nil && len(saved) > 0 {
			return Resolution{Records: saved}, nil
		}
	}

	if opts.Require {
		if sourceErr != nil {
			return Resolution{}, sourceErr
		}
		return Resolution{}, ErrNoSession
	}
	return Resolution{}, nil
}

// Persist filters the live context's full cookie jar to the target hosts and
// overwrites the persisted set wholesale. This is how a refreshed login
// propagates to subsequent commands. Returns the number of records saved.
func (r *Resolver) Persist(live []cookies.Record) (int, error) {
	kept := cookies.Filter(live)
	if err := r.Store.Save(kept); err != nil {
		return 0, err
	}
	return len(kept), nil
}
