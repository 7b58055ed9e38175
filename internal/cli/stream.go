package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"xlocal/internal/browser"
	"xlocal/internal/fault"
	"xlocal/internal/server"
	"xlocal/internal/stream"
)

func (a *App) streamCommands() []*cobra.Command {
	return []*cobra.Command{
		a.streamStartCmd(),
		a.streamStatusCmd(),
		a.streamStopCmd(),
		a.streamLiveSearchCmd(),
	}
}

func (a *App) streamStartCmd() *cobra.Command {
	var opts stream.StartOptions

	cmd := &cobra.Command{
		Use:   "stream_start",
		Short: "Start a detached ffmpeg RTMP relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "stream_start",
				fn: func(ctx context.Context) (map[string]any, error) {
					sup := a.supervisor()
					job, err := sup.Start(ctx, opts)
					if err != nil {
						return nil, err
					}
					return map[string]any{
						"started":   true,
						"pid":       job.PID,
						"target":    job.Target,
						"log_file":  a.cfg.StreamLogFile(),
						"meta_file": a.cfg.StreamMetaFile(),
					}, nil
				},
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Input, "input", "", "input source for ffmpeg (file/device/url)")
	f.StringVar(&opts.RTMPURL, "rtmp-url", "", "RTMP ingest base URL or full RTMP URL")
	f.StringVar(&opts.StreamKey, "stream-key", "", "optional stream key appended to --rtmp-url")
	f.BoolVar(&opts.Loop, "loop", false, "loop input continuously")
	f.StringVar(&opts.Preset, "preset", "veryfast", "x264 preset")
	f.StringVar(&opts.VideoBitrate, "video-bitrate", "4500k", "video bitrate")
	f.StringVar(&opts.AudioBitrate, "audio-bitrate", "128k", "audio bitrate")
	f.StringVar(&opts.BufferSize, "buffer-size", "9000k", "encoder buffer size")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("rtmp-url")
	return cmd
}

func (a *App) streamStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream_status",
		Short: "Report the relay's process state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "stream_status",
				fn: func(ctx context.Context) (map[string]any, error) {
					st := a.supervisor().Status()
					out := map[string]any{"running": st.Running}
					if st.PID != 0 {
						out["pid"] = st.PID
					}
					if st.Running || st.PID != 0 {
						out["meta"] = st.Meta
						out["log_file"] = st.LogFile
					}
					return out, nil
				},
			})
		},
	}
}

func (a *App) streamStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream_stop",
		Short: "Stop the relay (SIGTERM, then SIGKILL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "stream_stop",
				fn: func(ctx context.Context) (map[string]any, error) {
					res, err := a.supervisor().Stop()
					if err != nil {
						return nil, err
					}
					out := map[string]any{"stopped": res.Stopped}
					if res.PID != 0 {
						out["pid"] = res.PID
					}
					if res.Message != "" {
						out["message"] = res.Message
					}
					if res.LogFile != "" {
						out["log_file"] = res.LogFile
					}
					return out, nil
				},
			})
		},
	}
}

func (a *App) streamLiveSearchCmd() *cobra.Command {
	var query string
	var duration, interval, maxEvents, servePort int

	cmd := &cobra.Command{
		Use:   "stream_live_search",
		Short: "Poll live search results for a bounded duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "stream_live_search",
				fn: func(ctx context.Context) (map[string]any, error) {
					q := strings.TrimSpace(query)
					if q == "" {
						return nil, fault.Userf("--query is required")
					}
					d := clampInt(duration, 5, 3600)
					iv := clampInt(interval, 2, 120)
					most := clampInt(maxEvents, 1, 1000)

					var events *server.EventServer
					if servePort > 0 {
						events = server.NewEventServer(servePort, a.log)
						if err := events.Start(); err != nil {
							return nil, err
						}
						defer events.Close()
					}

					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						out, err := a.liveSearch(ctx, s, q, d, iv, most, events)
						if err != nil {
							return nil, err
						}
						return out, nil
					})
				},
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&query, "query", "", "search query to watch")
	f.IntVar(&duration, "duration", 120, "total watch window in seconds")
	f.IntVar(&interval, "interval", 5, "seconds between page reloads")
	f.IntVar(&maxEvents, "max-events", 100, "stop after this many unique tweets")
	f.IntVar(&servePort, "serve-port", 0, "also fan events out over a local websocket on this port")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

// liveSearch runs the polling loop: extract the live tab, keep unique new
// rows stamped with observation time, reload, wait, repeat until the window
// closes or the event cap is hit.
func (a *App) liveSearch(ctx context.Context, s *browser.Session, query string, duration, interval, maxEvents int, events *server.EventServer) (map[string]any, error) {
	if err := s.Navigate(searchURL(s, query, "live")); err != nil {
		return nil, err
	}
	_ = s.Wait(900 * time.Millisecond)

	seen := map[string]bool{}
	collected := make([]any, 0, maxEvents)
	deadline := time.Now().Add(time.Duration(duration) * time.Second)

	for time.Now().Before(deadline) && len(collected) < maxEvents {
		rows, err := s.ExtractTweets()
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			key, _ := row["tweet_id"].(string)
			if key == "" {
				key, _ = row["key"].(string)
			}
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			row["observed_at"] = time.Now().Unix()
			collected = append(collected, map[string]any(row))
			if events != nil {
				events.Broadcast("live_search_event", map[string]any(row))
			}
			if len(collected) >= maxEvents {
				break
			}
		}
		if len(collected) >= maxEvents {
			break
		}
		if err := s.Reload(); err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(interval) * time.Second):
		}
	}

	return map[string]any{
		"query":    query,
		"duration": duration,
		"interval": interval,
		"count":    len(collected),
		"events":   collected,
	}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
