package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"xlocal/internal/browser"
	"xlocal/internal/fault"
)

func (a *App) authCommands() []*cobra.Command {
	return []*cobra.Command{
		a.loginCmd("user_login_v3", false),
		a.loginCmd("refresh_login_v3", true),
		a.accountDetailCmd(),
	}
}

func (a *App) loginCmd(name string, forceRefresh bool) *cobra.Command {
	var username, password, email string
	var refresh bool

	cmd := &cobra.Command{
		Use:   name,
		Short: "Establish a logged-in session (cookie probe or credential flow)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceRefresh {
				refresh = true
			}
			return a.run(cmd, invocation{
				endpoint: name,
				echo:     map[string]string{"user_name": username},
				fn: func(ctx context.Context) (map[string]any, error) {
					return a.login(ctx, normalizeHandle(username), password, email, refresh)
				},
			})
		},
	}
	cmd.Flags().StringVar(&username, "user-name", "", "account handle")
	cmd.Flags().StringVar(&username, "username", "", "account handle (alias)")
	cmd.Flags().StringVar(&password, "password", "", "account password for credential flow")
	cmd.Flags().StringVar(&email, "email", "", "email for login challenges")
	if !forceRefresh {
		cmd.Flags().BoolVar(&refresh, "refresh", false, "force credential refresh login flow")
	}
	return cmd
}

// login implements the login state machine: refresh forces the credential
// flow; otherwise a live cookie session short-circuits, and missing
// credentials degrade to a needs_credentials report rather than an error.
func (a *App) login(ctx context.Context, username, password, email string, refresh bool) (map[string]any, error) {
	opts := sessionOpts{skipBrowser: refresh, skipSaved: refresh}
	return a.withSession(ctx, opts, func(s *browser.Session) (map[string]any, error) {
		if refresh {
			if username == "" || password == "" {
				return nil, fault.Userf("--refresh requires --user-name and --password")
			}
			res, err := s.FlowLogin(username, password, email)
			if err != nil {
				return nil, err
			}
			saved := 0
			if res.LoggedIn {
				saved = a.persistSession(s)
			}
			out := loginPayload(res, saved)
			out["refreshed"] = res.LoggedIn
			out["user_name"] = username
			return out, nil
		}

		if s.IsLoggedIn() {
			saved := a.persistSession(s)
			out := map[string]any{
				"logged_in":             true,
				"status":                "ok",
				"method":                "cookies",
				"session_cookies_saved": saved,
			}
			if username != "" {
				out["user_name"] = username
			}
			return out, nil
		}

		if username == "" || password == "" {
			return map[string]any{
				"logged_in": false,
				"status":    "needs_credentials",
				"message":   "No active X session detected in local browser/profile. Point --browser/--chrome-profile at a logged-in profile or provide --user-name/--password for refresh login.",
			}, nil
		}

		res, err := s.FlowLogin(username, password, email)
		if err != nil {
			return nil, err
		}
		saved := 0
		if res.LoggedIn {
			saved = a.persistSession(s)
		}
		out := loginPayload(res, saved)
		out["user_name"] = username
		return out, nil
	})
}

func loginPayload(res browser.LoginResult, saved int) map[string]any {
	out := map[string]any{
		"logged_in":             res.LoggedIn,
		"status":                res.Status,
		"session_cookies_saved": saved,
	}
	if res.Message != "" {
		out["message"] = res.Message
	}
	return out
}

func (a *App) accountDetailCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "get_my_x_account_detail_v3",
		Short: "Profile summary for the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "get_my_x_account_detail_v3",
				echo:     map[string]string{"user_name": username},
				fn: func(ctx context.Context) (map[string]any, error) {
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						handle := normalizeHandle(username)
						if handle == "" {
							var ok bool
							if handle, ok = s.NavHandle(); !ok {
								return nil, fault.Userf("could not resolve account handle from current session")
							}
						}
						if err := s.Navigate(s.URL("/" + handle)); err != nil {
							return nil, err
						}
						_ = s.Wait(700 * time.Millisecond)
						return s.ProfileSummary(handle)
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&username, "user-name", "", "handle to describe; defaults to the session's own")
	cmd.Flags().StringVar(&username, "username", "", "handle to describe (alias)")
	return cmd
}
