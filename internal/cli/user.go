package cli

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xlocal/internal/browser"
	"xlocal/internal/fault"
	"xlocal/internal/harvest"
)

func (a *App) userCommands() []*cobra.Command {
	cmds := []*cobra.Command{
		a.followCmd("follow_user_v2", "Follow a user", (*browser.Session).Follow),
		a.followCmd("unfollow_user_v2", "Unfollow a user", (*browser.Session).Unfollow),
		a.sendDMCmd(),
		a.profileMediaCmd("update_avatar_v2", "avatar"),
		a.profileMediaCmd("update_banner_v2", "banner"),
		a.userInfoCmd(),
		a.userConnectionsCmd("user_followers", "followers"),
		a.userConnectionsCmd("user_followings", "followings"),
	}
	for _, name := range []string{"update_profile_v3", "update_profile_v2"} {
		cmds = append(cmds, a.updateProfileCmd(name))
	}
	for _, name := range []string{"user_last_tweets", "user_last_tweet"} {
		cmds = append(cmds, a.userLastTweetsCmd(name))
	}
	for _, name := range []string{"user_search", "search_user"} {
		cmds = append(cmds, a.userSearchCmd(name))
	}
	return cmds
}

func (a *App) followCmd(name, short string, action func(*browser.Session, string) (map[string]any, error)) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				echo:     map[string]string{"user_name": username},
				fn: func(ctx context.Context) (map[string]any, error) {
					handle := normalizeHandle(username)
					if handle == "" {
						return nil, fault.Userf("--user-name is required")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						return action(s, handle)
					})
				},
			})
		},
	}
	addHandleFlags(cmd, &username)
	return cmd
}

func (a *App) sendDMCmd() *cobra.Command {
	var username, text string

	cmd := &cobra.Command{
		Use:   "send_dm_to_user",
		Short: "Send a direct message from the user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "send_dm_to_user",
				echo:     map[string]string{"user_name": username, "text": text},
				fn: func(ctx context.Context) (map[string]any, error) {
					handle := normalizeHandle(username)
					body := strings.TrimSpace(text)
					if handle == "" {
						return nil, fault.Userf("--user-name is required")
					}
					if body == "" {
						return nil, fault.Userf("--text is required")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						return s.SendDM(handle, body)
					})
				},
			})
		},
	}
	addHandleFlags(cmd, &username)
	cmd.Flags().StringVar(&text, "text", "", "message text")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func (a *App) updateProfileCmd(name string) *cobra.Command {
	var displayName, bio string

	cmd := &cobra.Command{
		Use:   name,
		Short: "Update the profile display name and/or bio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				echo:     map[string]string{"name": displayName, "bio": bio},
				fn: func(ctx context.Context) (map[string]any, error) {
					if displayName == "" && bio == "" {
						return nil, fault.Userf("provide --name and/or --bio")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						return s.UpdateProfile(displayName, bio)
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&displayName, "name", "", "new display name")
	cmd.Flags().StringVar(&bio, "bio", "", "new bio text")
	return cmd
}

func (a *App) profileMediaCmd(name, mode string) *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   name,
		Short: "Replace the profile " + mode + " image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				fn: func(ctx context.Context) (map[string]any, error) {
					if strings.TrimSpace(filePath) == "" {
						return nil, fault.Userf("--file-path is required")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						return s.UpdateProfileMedia(mode, strings.TrimSpace(filePath))
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file-path", "", "image file to upload")
	_ = cmd.MarkFlagRequired("file-path")
	return cmd
}

func (a *App) userInfoCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "user_info",
		Short: "Profile summary for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "user_info",
				echo:     map[string]string{"user_name": username},
				fn: func(ctx context.Context) (map[string]any, error) {
					handle := normalizeHandle(username)
					if handle == "" {
						return nil, fault.Userf("--user-name is required")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
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
	addHandleFlags(cmd, &username)
	return cmd
}

func (a *App) userLastTweetsCmd(name string) *cobra.Command {
	var username string
	var limit int

	cmd := &cobra.Command{
		Use:   name,
		Short: "Harvest a user's latest tweets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				echo:     map[string]string{"user_name": username},
				fn: func(ctx context.Context) (map[string]any, error) {
					handle := normalizeHandle(username)
					if handle == "" {
						return nil, fault.Userf("--user-name is required")
					}
					n := harvest.ClampLimit(limit, 200)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/" + handle)); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						rows, err := a.collect(s, s.TweetExtractor(), n, 0)
						if err != nil {
							return nil, err
						}
						return map[string]any{"username": handle, "count": len(rows), "tweets": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	addHandleFlags(cmd, &username)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum tweets")
	return cmd
}

func (a *App) userConnectionsCmd(name, mode string) *cobra.Command {
	var username string
	var limit int

	suffix := "following"
	if mode == "followers" {
		suffix = "followers"
	}

	cmd := &cobra.Command{
		Use:   name,
		Short: "Harvest a user's " + suffix + " list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				echo:     map[string]string{"user_name": username},
				fn: func(ctx context.Context) (map[string]any, error) {
					handle := normalizeHandle(username)
					if handle == "" {
						return nil, fault.Userf("--user-name is required")
					}
					n := harvest.ClampLimit(limit, 500)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/" + handle + "/" + suffix)); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						rows, err := a.collect(s, s.UserExtractor(), n, 18)
						if err != nil {
							return nil, err
						}
						return map[string]any{"username": handle, "mode": mode, "count": len(rows), "users": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	addHandleFlags(cmd, &username)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum users")
	return cmd
}

func (a *App) userSearchCmd(name string) *cobra.Command {
	var keyword string
	var limit int

	cmd := &cobra.Command{
		Use:   name,
		Short: "Search for users by keyword",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				fn: func(ctx context.Context) (map[string]any, error) {
					q := strings.TrimSpace(keyword)
					if q == "" {
						return nil, fault.Userf("--keyword is required")
					}
					n := harvest.ClampLimit(limit, 200)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(searchURL(s, q, "user")); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						rows, err := a.collect(s, s.UserExtractor(), n, 16)
						if err != nil {
							return nil, err
						}
						return map[string]any{"keyword": q, "count": len(rows), "users": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&keyword, "keyword", "", "search keyword")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum users")
	_ = cmd.MarkFlagRequired("keyword")
	return cmd
}

func addHandleFlags(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "user-name", "", "account handle")
	cmd.Flags().StringVar(target, "username", "", "account handle (alias)")
}

func searchURL(s *browser.Session, query, fparam string) string {
	return s.URL("/search?q=" + url.QueryEscape(query) + "&src=typed_query&f=" + fparam)
}
