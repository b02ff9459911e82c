package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lex00/kiro-banking-go/internal/app"
)

// newWatchCmd creates the "watch" subcommand for re-synthesizing when the
// profile file changes.
func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		outputDir    string
		outputFormat string
		debounce     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize when the profile file changes",
		Long: `Watch monitors the profile file given with --profile and synthesizes the
assembly on every change. Security findings are printed after each build.
Rapid changes are debounced.

Examples:
    kiro-banking watch --profile profiles/dev.yaml -o cdk.out
    kiro-banking watch --profile profiles/dev.yaml -o cdk.out --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.profileFile == "" {
				return errors.New("watch requires --profile")
			}
			if outputDir == "" {
				return errors.New("watch requires --output")
			}
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			return runWatch(cmd, opts, logger, outputDir, outputFormat, debounce)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for the assembly")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Template format: json or yaml")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *rootOptions, logger *slog.Logger, outputDir, format string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Editors replace files on save, so watch the directory.
	dir := filepath.Dir(opts.profileFile)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching: %s\n", opts.profileFile)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.OutOrStdout(), "\nStopping watch...")
			cancel()
		case <-ctx.Done():
		}
	}()

	rebuild := func() {
		rebuildOnce(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, logger, outputDir, format)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Running initial synth...")
	rebuild()
	fmt.Fprintln(cmd.OutOrStdout(), "\nWatching for changes... (Ctrl+C to stop)")

	return watchProfile(ctx, watcher, opts.profileFile, debounce, func() {
		fmt.Fprintf(cmd.OutOrStdout(), "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
		rebuild()
	}, logger)
}

// watchProfile calls rebuild once per burst of writes to path, after
// debounce has passed without another write. It returns when ctx is done
// or the watcher closes.
func watchProfile(ctx context.Context, watcher *fsnotify.Watcher, path string, debounce time.Duration, rebuild func(), logger *slog.Logger) error {
	target := filepath.Clean(path)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			rebuild()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

// rebuildOnce synthesizes with the profile's checks and writes the
// assembly. Failures are reported, not returned, so watching continues.
func rebuildOnce(stdout, stderr io.Writer, opts *rootOptions, logger *slog.Logger, outputDir, format string) {
	out, err := opts.synthesize(logger, true, nil)
	if out != nil && out.Checks != nil {
		printFindings(stderr, out.Checks.Findings)
	}
	if err != nil {
		if errors.Is(err, app.ErrSecurityChecks) {
			fmt.Fprintln(stderr, "Security checks failed; assembly not written")
		} else {
			fmt.Fprintf(stderr, "Synth failed: %v\n", err)
		}
		return
	}

	if _, err := out.Assembly.Write(outputDir, format); err != nil {
		fmt.Fprintf(stderr, "Write failed: %v\n", err)
		return
	}
	fmt.Fprintf(stdout, "Synthesized %d stacks (%d resources) to %s\n",
		len(out.Assembly.Stacks), out.Assembly.ResourceCount(), outputDir)
}
