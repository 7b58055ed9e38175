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

func (a *App) tweetCommands() []*cobra.Command {
	cmds := []*cobra.Command{
		a.composeCmd("send_tweet_v3"),
		a.composeCmd("create_tweet_v2"),
		a.uploadMediaCmd(),
		a.deleteTweetCmd(),
		a.tweetRepliesCmd(),
		a.tweetQuotesCmd(),
		a.tweetRetweetersCmd(),
		a.tweetThreadContextCmd(),
	}
	for _, name := range []string{"like_tweet_v3", "like_tweet_v2"} {
		cmds = append(cmds, a.tweetActionCmd(name, "Like a tweet", (*browser.Session).Like))
	}
	cmds = append(cmds, a.tweetActionCmd("unlike_tweet_v2", "Remove a like", (*browser.Session).Unlike))
	for _, name := range []string{"retweet_v3", "retweet_tweet_v2"} {
		cmds = append(cmds, a.tweetActionCmd(name, "Repost a tweet", (*browser.Session).Repost))
	}
	for _, name := range []string{"get_tweet_by_ids", "tweetById", "tweets"} {
		cmds = append(cmds, a.tweetLookupCmd(name))
	}
	return cmds
}

func (a *App) composeCmd(name string) *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   name,
		Short: "Post a tweet through the compose flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				echo:     map[string]string{"text": text},
				fn: func(ctx context.Context) (map[string]any, error) {
					body := strings.TrimSpace(text)
					if body == "" {
						return nil, fault.Userf("--text is required")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						return s.Compose(body, "")
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "tweet text")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func (a *App) uploadMediaCmd() *cobra.Command {
	var mediaPath, text string

	cmd := &cobra.Command{
		Use:   "upload_media_v2",
		Short: "Post a tweet with an attached media file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "upload_media_v2",
				echo:     map[string]string{"text": text},
				fn: func(ctx context.Context) (map[string]any, error) {
					if strings.TrimSpace(mediaPath) == "" {
						return nil, fault.Userf("--media-path is required")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						return s.Compose(strings.TrimSpace(text), strings.TrimSpace(mediaPath))
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&mediaPath, "media-path", "", "image or video file to attach")
	cmd.Flags().StringVar(&text, "text", "", "optional tweet text")
	_ = cmd.MarkFlagRequired("media-path")
	return cmd
}

// tweetActionCmd covers the like/unlike/repost family: one --tweet-id flag,
// one session action.
func (a *App) tweetActionCmd(name, short string, action func(*browser.Session, string) (map[string]any, error)) *cobra.Command {
	var tweetID string

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				echo:     map[string]string{"tweet_id": tweetID},
				fn: func(ctx context.Context) (map[string]any, error) {
					id := strings.TrimSpace(tweetID)
					if id == "" {
						return nil, fault.Userf("--tweet-id is required")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						return action(s, id)
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&tweetID, "tweet-id", "", "tweet status id")
	_ = cmd.MarkFlagRequired("tweet-id")
	return cmd
}

func (a *App) deleteTweetCmd() *cobra.Command {
	return a.tweetActionCmd("delete_tweet_v2", "Delete one of your tweets", (*browser.Session).Delete)
}

func (a *App) tweetLookupCmd(name string) *cobra.Command {
	var tweetIDs string
	var tweetID []string

	cmd := &cobra.Command{
		Use:   name,
		Short: "Look up tweets by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: name,
				fn: func(ctx context.Context) (map[string]any, error) {
					ids := dedupeIDs(tweetIDs, tweetID)
					if len(ids) == 0 {
						return nil, fault.Userf("provide --tweet-ids or --tweet-id")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						tweets := make([]any, 0, len(ids))
						for _, id := range ids {
							if err := s.Navigate(s.URL("/i/web/status/" + id)); err != nil {
								return nil, err
							}
							_ = s.Wait(800 * time.Millisecond)
							rows, err := s.ExtractTweets()
							if err != nil {
								return nil, err
							}
							tweets = append(tweets, map[string]any{
								"requested_tweet_id": id,
								"tweet":              pickTweet(rows, id),
							})
						}
						return map[string]any{"count": len(tweets), "tweets": tweets}, nil
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&tweetIDs, "tweet-ids", "", "comma-separated tweet ids")
	cmd.Flags().StringArrayVar(&tweetID, "tweet-id", nil, "tweet id (repeatable)")
	return cmd
}

// dedupeIDs merges the comma list and repeated flags preserving first-seen
// order.
func dedupeIDs(commaList string, repeated []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	for _, v := range strings.Split(commaList, ",") {
		add(v)
	}
	for _, v := range repeated {
		add(v)
	}
	return out
}

// pickTweet prefers the row whose id matches the requested one; the status
// page also renders replies, so the first row is only a fallback.
func pickTweet(rows []harvest.Row, id string) any {
	for _, r := range rows {
		if v, ok := r["tweet_id"].(string); ok && v == id {
			return map[string]any(r)
		}
	}
	if len(rows) > 0 {
		return map[string]any(rows[0])
	}
	return nil
}

func (a *App) tweetRepliesCmd() *cobra.Command {
	var tweetID string
	var limit int

	cmd := &cobra.Command{
		Use:   "tweet_replies",
		Short: "Harvest replies under a tweet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "tweet_replies",
				echo:     map[string]string{"tweet_id": tweetID},
				fn: func(ctx context.Context) (map[string]any, error) {
					id := strings.TrimSpace(tweetID)
					if id == "" {
						return nil, fault.Userf("--tweet-id is required")
					}
					n := harvest.ClampLimit(limit, 200)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/i/web/status/" + id)); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						// The root tweet appears in the harvest; over-collect
						// by two then drop it.
						rows, err := a.collect(s, s.TweetExtractor(), n+2, 18)
						if err != nil {
							return nil, err
						}
						replies := make([]any, 0, n)
						for _, r := range rows {
							if v, _ := r["tweet_id"].(string); v == id {
								continue
							}
							replies = append(replies, map[string]any(r))
							if len(replies) >= n {
								break
							}
						}
						return map[string]any{"tweet_id": id, "count": len(replies), "replies": replies}, nil
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&tweetID, "tweet-id", "", "tweet status id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum replies")
	_ = cmd.MarkFlagRequired("tweet-id")
	return cmd
}

func (a *App) tweetQuotesCmd() *cobra.Command {
	var tweetID string
	var limit int

	cmd := &cobra.Command{
		Use:   "tweet_quotes",
		Short: "Harvest quote tweets of a tweet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "tweet_quotes",
				echo:     map[string]string{"tweet_id": tweetID},
				fn: func(ctx context.Context) (map[string]any, error) {
					id := strings.TrimSpace(tweetID)
					if id == "" {
						return nil, fault.Userf("--tweet-id is required")
					}
					n := harvest.ClampLimit(limit, 200)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/i/web/status/" + id + "/quotes")); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						rows, err := a.collect(s, s.TweetExtractor(), n, 18)
						if err != nil {
							return nil, err
						}
						return map[string]any{"tweet_id": id, "count": len(rows), "quotes": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&tweetID, "tweet-id", "", "tweet status id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum quotes")
	_ = cmd.MarkFlagRequired("tweet-id")
	return cmd
}

func (a *App) tweetRetweetersCmd() *cobra.Command {
	var tweetID string
	var limit int

	cmd := &cobra.Command{
		Use:   "tweet_retweeters",
		Short: "Harvest users who reposted a tweet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "tweet_retweeters",
				echo:     map[string]string{"tweet_id": tweetID},
				fn: func(ctx context.Context) (map[string]any, error) {
					id := strings.TrimSpace(tweetID)
					if id == "" {
						return nil, fault.Userf("--tweet-id is required")
					}
					n := harvest.ClampLimit(limit, 400)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/i/web/status/" + id + "/retweets")); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						rows, err := a.collect(s, s.UserExtractor(), n, 18)
						if err != nil {
							return nil, err
						}
						return map[string]any{"tweet_id": id, "count": len(rows), "retweeters": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&tweetID, "tweet-id", "", "tweet status id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum retweeters")
	_ = cmd.MarkFlagRequired("tweet-id")
	return cmd
}

func (a *App) tweetThreadContextCmd() *cobra.Command {
	var tweetID string
	var limit int

	cmd := &cobra.Command{
		Use:   "tweet_thread_context",
		Short: "Harvest the conversation thread around a tweet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "tweet_thread_context",
				echo:     map[string]string{"tweet_id": tweetID},
				fn: func(ctx context.Context) (map[string]any, error) {
					id := strings.TrimSpace(tweetID)
					if id == "" {
						return nil, fault.Userf("--tweet-id is required")
					}
					n := harvest.ClampLimit(limit, 200)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/i/web/status/" + id)); err != nil {
							return nil, err
						}
						_ = s.Wait(900 * time.Millisecond)
						rows, err := a.collect(s, s.TweetExtractor(), n, 20)
						if err != nil {
							return nil, err
						}
						return map[string]any{"tweet_id": id, "count": len(rows), "thread": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&tweetID, "tweet-id", "", "tweet status id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum thread rows")
	_ = cmd.MarkFlagRequired("tweet-id")
	return cmd
}
