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

func (a *App) spacesCommands() []*cobra.Command {
	return []*cobra.Command{
		a.spacesDetailCmd(),
		a.spacesLiveCmd(),
		a.spacesListenCmd(),
	}
}

func (a *App) spacesDetailCmd() *cobra.Command {
	var spaceID string

	cmd := &cobra.Command{
		Use:   "spaces_detail",
		Short: "Metadata for one audio space",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "spaces_detail",
				fn: func(ctx context.Context) (map[string]any, error) {
					id := strings.TrimSpace(spaceID)
					if id == "" {
						return nil, fault.Userf("--space-id is required")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/i/spaces/" + id)); err != nil {
							return nil, err
						}
						_ = s.Wait(1000 * time.Millisecond)
						return s.SpaceDetail(id)
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&spaceID, "space-id", "", "space id")
	_ = cmd.MarkFlagRequired("space-id")
	return cmd
}

func (a *App) spacesLiveCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "spaces_live",
		Short: "Harvest currently listed audio spaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "spaces_live",
				fn: func(ctx context.Context) (map[string]any, error) {
					n := harvest.ClampLimit(limit, 100)
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						if err := s.Navigate(s.URL("/i/spaces")); err != nil {
							return nil, err
						}
						_ = s.Wait(1000 * time.Millisecond)
						rows, err := a.collect(s, s.SpacesExtractor(), n, 8)
						if err != nil {
							return nil, err
						}
						return map[string]any{"count": len(rows), "spaces": rowsToAny(rows)}, nil
					})
				},
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum spaces")
	return cmd
}

func (a *App) spacesListenCmd() *cobra.Command {
	var spaceID string

	cmd := &cobra.Command{
		Use:   "spaces_listen",
		Short: "Join an audio space as a listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, invocation{
				endpoint: "spaces_listen",
				fn: func(ctx context.Context) (map[string]any, error) {
					id := strings.TrimSpace(spaceID)
					if id == "" {
						return nil, fault.Userf("--space-id is required")
					}
					return a.withAuthedSession(ctx, func(s *browser.Session) (map[string]any, error) {
						return s.JoinSpace(id)
					})
				},
			})
		},
	}
	cmd.Flags().StringVar(&spaceID, "space-id", "", "space id")
	_ = cmd.MarkFlagRequired("space-id")
	return cmd
}
