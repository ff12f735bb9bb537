package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/TFMV/dirhunt/internal/inspect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	watchFormat  string
	watchTimeout time.Duration
	watchNoScan  bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Report target folders as they appear or disappear",
	Long: `Scan a directory tree once, then keep watching it and report target
folders that are created or removed.

Examples:
  dirhunt watch ~/projects
  dirhunt watch --no-scan --timeout=1h .
  dirhunt watch --format="{event} {}" ~/code`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := rootArg(args)
		if err != nil {
			return err
		}
		root, err = filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("invalid path %q: %w", root, err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if watchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, watchTimeout)
			defer cancel()
		}

		if err := inspect.ValidateRoot(root); err != nil {
			return err
		}
		if !watchNoScan {
			if err := runScan(ctx, root, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
				return err
			}
		}

		logger := newLogger()
		defer logger.Sync()

		if !viper.GetBool("silent") {
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for %s folders...\n", root, viper.GetString("target"))
			fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to exit.")
		}

		cfg := scanConfig(root)
		out := cmd.OutOrStdout()
		return inspect.WatchTargets(ctx, root, inspect.WatchOptions{
			TargetName: cfg.TargetName,
			Exclude:    cfg.Exclude,
			Logger:     logger,
		}, func(_ context.Context, r inspect.WatchResult) error {
			if r.Error != nil {
				logger.Warn("watch error", zap.Error(r.Error))
				return nil
			}
			line := fmt.Sprintf("%s %s", r.Event, r.Path)
			if watchFormat != "" {
				line = strings.ReplaceAll(watchFormat, "{event}", string(r.Event))
				line = expandTemplate(line, result{Path: r.Path, Dangerous: inspect.IsDangerous(r.Path)})
			}
			fmt.Fprintln(out, line)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFormat, "format", "", "Format string for output ({event}, {}, {base}, {dir}, {dangerous})")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Duration to watch before exiting (e.g., 1h, 30m)")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "Skip the initial scan")
}
