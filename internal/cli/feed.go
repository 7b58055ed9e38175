package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xlocal/internal/browser"
	"xlocal/internal/fault"
	"xlocal/internal/harvest"
)

func (a *App) feedCommands() []*cobra.Command {
	cmds := []*cobra.Command{
		a.homeTimelineCmd(),
		a.notificationsCmd(),
		a.trendsCmd(),
	}
	for _, name := range []string{"tweet_advanced_search", "advanced_search"} {
		cmds = append(cmds, a.advancedSearchCmd(name))
	}
	return cmds
}

func (a *App) homeTimelineCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "home_timeline",
		Short: "Harvest the home timeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "home_timeline",
				fn: func(ctx context.Context) (map[string]any, error) {
					n := harvest.ClampLimit(limit, 200)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/home")); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						rows, err := a.collect(s, s.TweetExtractor(), n, 20)
						if err != nil {
							return nil, err
						}
						return map[string]any{"count": len(rows), "tweets": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 40, "maximum tweets")
	return cmd
}

func (a *App) notificationsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "notifications_list",
		Short: "Harvest the notifications feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "notifications_list",
				fn: func(ctx context.Context) (map[string]any, error) {
					n := harvest.ClampLimit(limit, 300)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/notifications")); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						rows, err := a.collect(s, s.NotificationExtractor(), n, 16)
						if err != nil {
							return nil, err
						}
						return map[string]any{"count": len(rows), "notifications": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 40, "maximum notifications")
	return cmd
}

func (a *App) advancedSearchCmd(name string) *cobra.Command {
	var query, tab string
	var limit int

	cmd := &cobra.Command{
		Use:   name,
		Short: "Harvest tweet search results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				fn: func(ctx context.Context) (map[string]any, error) {
					q := strings.TrimSpace(query)
					if q == "" {
						return nil, fault.Userf("--query is required")
					}
					t := strings.ToLower(strings.TrimSpace(tab))
					if t == "" {
						t = "latest"
					}
					var fparam string
					switch t {
					case "latest":
						fparam = "live"
					case "top":
						fparam = "top"
					default:
						return nil, fault.Userf("--tab must be one of: top, latest")
					}
					n := harvest.ClampLimit(limit, 200)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(searchURL(s, q, fparam)); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						rows, err := a.collect(s, s.TweetExtractor(), n, 18)
						if err != nil {
							return nil, err
						}
						return map[string]any{"query": q, "tab": t, "count": len(rows), "tweets": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "search query")
	cmd.Flags().StringVar(&tab, "tab", "latest", "result tab (top or latest)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum tweets")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func (a *App) trendsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Harvest trending topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "trends",
				fn: func(ctx context.Context) (map[string]any, error) {
					n := harvest.ClampLimit(limit, 100)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/explore/tabs/trending")); err != nil {
							return nil, err
						}
						_ = s.Wait(1000 * time.Millisecond)
						rows, err := a.collect(s, s.TrendExtractor(), n, 6)
						if err != nil {
							return nil, err
						}
						return map[string]any{"count": len(rows), "trends": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum trends")
	return cmd
}
