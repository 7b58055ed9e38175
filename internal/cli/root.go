// Package cli maps one subcommand per endpoint onto the session, harvest and
// stream primitives, and owns the JSON result envelope.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xlocal/internal/browser"
	"xlocal/internal/config"
	"xlocal/internal/cookies"
	"xlocal/internal/fault"
	"xlocal/internal/harvest"
	"xlocal/internal/notify"
	"xlocal/internal/session"
	"xlocal/internal/stream"
)

// App carries the config and the global flag state shared by every endpoint
// command.
type App struct {
	cfg config.Config
	log *slog.Logger

	browser        string
	chromeProfile  string
	profileName    string
	visible        bool
	notifyDesktop  bool
	notifyWebhook  string
	compatProvider string
}

// NewRootCmd builds the command tree.
func NewRootCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	a := &App{cfg: cfg, log: logger}

	root := &cobra.Command{
		Use:           "xlocal",
		Short:         "Local X API parity CLI (no external API keys)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.browser, "browser", cfg.Browser, "browser to pull fresh cookies from (chrome, chromium, edge)")
	pf.StringVar(&a.chromeProfile, "chrome-profile", cfg.BrowserProfile, "path to browser profile root or Cookies DB")
	pf.StringVar(&a.profileName, "chrome-profile-name", cfg.BrowserProfileName, "profile name when --chrome-profile is a user data root")
	pf.BoolVar(&a.visible, "visible", cfg.Visible, "run browser in visible mode")
	pf.BoolVar(&a.notifyDesktop, "notify", false, "send local desktop notification after command")
	pf.StringVar(&a.notifyWebhook, "notify-webhook", cfg.NotifyWebhook, "webhook URL for JSON push notifications")
	pf.StringVar(&a.compatProvider, "compat-provider", "none", "response compatibility mode (none, aisa)")

	root.AddCommand(a.authCommands()...)
	root.AddCommand(a.tweetCommands()...)
	root.AddCommand(a.userCommands()...)
	root.AddCommand(a.feedCommands()...)
	root.AddCommand(a.spacesCommands()...)
	root.AddCommand(a.streamCommands()...)

	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config.yaml: %v\n", err)
		return fault.ExitUserError
	}
	logger := config.NewLogger(cfg.LogLevel)

	root := NewRootCmd(cfg, logger)
	if err := root.Execute(); err != nil {
		var rendered *renderedError
		if errors.As(err, &rendered) {
			return fault.ExitCode(rendered.err)
		}
		// Flag parsing / unknown command: cobra already knows the message,
		// wrap it in the failure envelope contract.
		fmt.Fprintln(os.Stderr, Render(Result{OK: false, Endpoint: "xlocal", Data: map[string]any{}, Error: err.Error()}, "none", nil))
		return fault.ExitUserError
	}
	return fault.ExitOK
}

// renderedError marks an error whose envelope was already written.
type renderedError struct {
	err error
}

func (e *renderedError) Error() string { return e.err.Error() }
func (e *renderedError) Unwrap() error { return e.err }

// invocation is one endpoint execution: the handler plus the request fields
// the compat envelope echoes back.
type invocation struct {
	endpoint string
	echo     map[string]string
	fn       func(ctx context.Context) (map[string]any, error)
}

// run executes the handler, renders the envelope, fires notifications, and
// folds the outcome into the exit-code contract. Every RunE goes through it.
func (a *App) run(cmd *cobra.Command, inv invocation) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := inv.fn(ctx)
	notifier := notify.New(a.notifyDesktop, a.notifyWebhook, a.log)

	if err != nil {
		res := Result{OK: false, Endpoint: inv.endpoint, Data: map[string]any{}, Error: errorMessage(err)}
		fmt.Fprintln(os.Stderr, Render(res, a.compatProvider, inv.echo))
		notifier.Send(false, inv.endpoint, errorMessage(err))
		return &renderedError{err: err}
	}

	if data == nil {
		data = map[string]any{}
	}
	res := Result{OK: true, Endpoint: inv.endpoint, Data: data}
	fmt.Fprintln(os.Stdout, Render(res, a.compatProvider, inv.echo))
	notifier.Send(true, inv.endpoint, "completed")
	return nil
}

func errorMessage(err error) string {
	if fault.ExitCode(err) == fault.ExitUnexpected {
		return "Unexpected failure: " + err.Error()
	}
	return err.Error()
}

// resolver assembles the session resolution chain from the flag state.
func (a *App) resolver() *session.Resolver {
	return &session.Resolver{
		Source: &cookies.BrowserSource{
			Browser:     a.browser,
			ProfileRoot: a.chromeProfile,
			ProfileName: a.profileName,
		},
		Store: &session.FileStore{Path: a.cfg.SessionCookieFile()},
		Log:   a.log,
	}
}

type sessionOpts struct {
	require     bool // an authenticated cookie set must exist
	skipBrowser bool
	skipSaved   bool
	login       bool // additionally verify logged-in state before fn
	timeout     time.Duration
}

// withSession resolves cookies, opens the browser session, and hands it to
// the endpoint body.
func (a *App) withSession(ctx context.Context, opts sessionOpts, fn func(s *browser.Session) (map[string]any, error)) (map[string]any, error) {
	res, err := a.resolver().Resolve(ctx, session.ResolveOptions{
		SkipBrowser: opts.skipBrowser,
		SkipSaved:   opts.skipSaved,
		Require:     opts.require,
	})
	if err != nil {
		return nil, err
	}

	s, err := browser.Open(ctx, browser.Options{
		BaseURL:     a.cfg.BaseURL,
		Visible:     a.visible,
		Cookies:     res.Records,
		NavWait:     time.Duration(a.cfg.NavWaitMs) * time.Millisecond,
		ScrollPause: time.Duration(a.cfg.ScrollPauseMs) * time.Millisecond,
		Timeout:     opts.timeout,
		Logger:      a.log,
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if opts.login {
		if err := s.RequireLogin(); err != nil {
			return nil, err
		}
	}
	return fn(s)
}

// withAuthedSession is the common case: resolved cookies plus a verified
// logged-in state.
func (a *App) withAuthedSession(ctx context.Context, fn func(s *browser.Session) (map[string]any, error)) (map[string]any, error) {
	return a.withSession(ctx, sessionOpts{require: true, login: true}, fn)
}

// collect runs the harvester over the session's current view.
func (a *App) collect(s *browser.Session, ex harvest.Extractor, limit, maxCycles int) ([]harvest.Row, error) {
	return harvest.Collect(s.Context(), ex, s, harvest.Options{
		Limit:     limit,
		MaxCycles: maxCycles,
		Pause:     time.Duration(a.cfg.ScrollPauseMs) * time.Millisecond,
	})
}

// persistSession captures and saves the live cookie jar; best-effort count.
func (a *App) persistSession(s *browser.Session) int {
	recs, err := s.Cookies()
	if err != nil {
		return 0
	}
	n, err := a.resolver().Persist(recs)
	if err != nil {
		if a.log != nil {
			a.log.Warn("persist session cookies", slog.String("err", err.Error()))
		}
		return 0
	}
	return n
}

// supervisor assembles the stream supervisor over the state directory.
func (a *App) supervisor() *stream.Supervisor {
	return &stream.Supervisor{
		Registry: &stream.FileRegistry{
			PIDFile:  a.cfg.StreamPIDFile(),
			MetaFile: a.cfg.StreamMetaFile(),
			LogFile:  a.cfg.StreamLogFile(),
		},
		FFmpeg: a.cfg.FFmpegPath,
		Log:    a.log,
	}
}

// normalizeHandle strips the optional leading @.
func normalizeHandle(v string) string {
	h := strings.TrimSpace(v)
	return strings.TrimPrefix(h, "@")
}

// rowsToAny converts harvest rows for envelope embedding.
func rowsToAny(rows []harvest.Row) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any(r))
	}
	return out
}
