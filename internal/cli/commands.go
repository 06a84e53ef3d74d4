package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rohmanhakim/smoothstate/internal/build"
	"github.com/rohmanhakim/smoothstate/internal/config"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/internal/navigator"
	"github.com/rohmanhakim/smoothstate/internal/session"
	"github.com/rohmanhakim/smoothstate/internal/storage"
	"github.com/rohmanhakim/smoothstate/pkg/hashutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newVisitCommand() *cobra.Command {
	visitCmd := &cobra.Command{
		Use:   "visit",
		Short: "Open a page and click through it",
		Long: `visit opens --url, then performs each --follow in order. A follow is
either the href of a link inside the container, or "back" / "forward" to walk
the history. After every step the container content is printed, and saved
under --output-dir when one is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, cfg config.Config, s *session.Session, sink metadata.MetadataSink) error {
				var snapshots storage.Sink
				if cfg.OutputDir() != "" {
					localSink := storage.NewLocalSink(sink)
					snapshots = &localSink
				}
				return runVisit(ctx, cmd.OutOrStdout(), cfg, s, snapshots, follows)
			})
		},
	}
	visitCmd.Flags().StringArrayVar(&follows, "follow", []string{}, `link href to click, or "back" / "forward" (can be repeated)`)
	return visitCmd
}

func newPrefetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prefetch",
		Short: "Prefetch every in-scope link of a page and print the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, cfg config.Config, s *session.Session, sink metadata.MetadataSink) error {
				return runPrefetch(ctx, cmd.OutOrStdout(), s)
			})
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.Banner())
		},
	}
}

// withSession resolves the config, sets up logging and opens a session for
// the duration of fn.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, cfg config.Config, s *session.Session, sink metadata.MetadataSink) error) error {
	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	start := cfg.StartURL()
	logger.Debug("config initialized",
		zap.String("url", start.String()),
		zap.String("container", cfg.ContainerID()),
		zap.Int("page_cache_size", cfg.PageCacheSize()),
	)

	recorder := metadata.NewRecorder(logger)
	s, err := session.Open(cmd.Context(), cfg, recorder)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(cmd.Context(), cfg, s, recorder)
}

// runVisit prints every step of the visit. snapshots may be nil, in which
// case nothing is saved.
func runVisit(ctx context.Context, w io.Writer, cfg config.Config, s *session.Session, snapshots storage.Sink, steps []string) error {
	if err := printStep(w, cfg, s, snapshots, 0, session.Step{
		Action:   session.ActionOpen,
		Reloaded: true,
		URL:      s.Location(),
		Title:    s.Title(),
	}); err != nil {
		return err
	}

	for i, follow := range steps {
		var step session.Step
		var err error
		switch follow {
		case "back":
			step, err = s.Back(ctx)
		case "forward":
			step, err = s.Forward(ctx)
		default:
			step, err = s.Follow(ctx, follow)
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, follow, err)
		}
		if err := printStep(w, cfg, s, snapshots, i+1, step); err != nil {
			return err
		}
	}
	return nil
}

func printStep(w io.Writer, cfg config.Config, s *session.Session, snapshots storage.Sink, index int, step session.Step) error {
	outcome := step.Outcome.String()
	switch {
	case step.Reloaded && step.Outcome == navigator.OutcomeNone:
		outcome = "reloaded"
	case step.Reloaded:
		outcome += ", reloaded"
	}
	fmt.Fprintf(w, "[%d] %s %s (%s) %q\n", index, step.Action, step.URL.String(), outcome, step.Title)

	var content string
	var err error
	kind := metadata.ArtifactMarkdown
	if cfg.OutputFormat() == config.FormatHTML {
		kind = metadata.ArtifactHTML
		content, err = s.Content()
	} else {
		content, err = s.ContentMarkdown()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n\n", content)

	if snapshots == nil {
		return nil
	}
	location := s.Location()
	result, writeErr := snapshots.Write(
		cfg.OutputDir(),
		storage.NewSnapshot(location.String(), s.Title(), kind, []byte(content)),
		hashutil.HashAlgoSHA256,
	)
	if writeErr != nil {
		return writeErr
	}
	fmt.Fprintf(w, "saved %s\n\n", result.Path())
	return nil
}

func runPrefetch(ctx context.Context, w io.Writer, s *session.Session) error {
	results, err := s.PrefetchAll(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tSTATUS\tTITLE\tFINGERPRINT")
	for _, r := range results {
		title := r.Title
		if r.Err != nil {
			title = r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.URL.String(), r.Status, title, r.Fingerprint)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\ncache: %d record(s), capacity %d\n", s.Cache().Len(), s.Cache().Capacity())
	for _, entry := range s.Cache().Snapshot() {
		fmt.Fprintf(w, "  %s %s\n", entry.Status, entry.Key)
	}
	return nil
}
