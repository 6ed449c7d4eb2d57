package watch

import (
	"context"
	"os"
	"os/signal"
	"sort"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sidkik/rsync-ssh/cmd/util"
	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
	"github.com/sidkik/rsync-ssh/pkg/fswatch"
	"github.com/sidkik/rsync-ssh/pkg/sync"
)

// Mocked for unit testing.
var loadConfig = util.LoadConfig

// New creates a new `watch` command.
func New() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync files to their remote destinations as they're saved",
		Long: "Watch the workspace folders, and sync every saved file to the\n" +
			"destinations of the folder containing it. Runs until interrupted.",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if err := run(ctx, configPath); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to the config. Defaults to the nearest "+config.FileName+".")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if !cfg.ShouldSyncOnSave() {
		return errors.NewFriendlyError(
			"sync_on_save is disabled in %s.\n"+
				"Use `rsync-ssh sync` to sync manually.", cfg.GetPath())
	}

	orchestrator := util.NewOrchestrator(cfg)
	roots := watchRoots(orchestrator.Resolved())
	if len(roots) == 0 {
		return errors.NewFriendlyError(
			"None of the remotes in %s match a workspace folder.", cfg.GetPath())
	}

	excludes := append(append([]string{}, cfg.Global().Excludes...), config.AlwaysExcluded)
	batches, err := fswatch.Watch(ctx, roots, fswatch.Options{Excludes: excludes})
	if err != nil {
		return errors.WithContext(err, "watch")
	}

	log.Infof("Watching %d folder(s) for changes", len(roots))
	tracker := sync.NewTracker(clockwork.NewRealClock())

	var syncs errgroup.Group
	for batch := range batches {
		current, ok := reload(cfg.GetPath(), orchestrator)
		if !ok {
			continue
		}
		orchestrator = current

		files, sessions := beginFiles(tracker, batch)
		if len(files) == 0 {
			continue
		}

		syncs.Go(func() error {
			defer func() {
				for _, session := range sessions {
					tracker.End(session)
				}
			}()

			res, err := current.Run(ctx, sync.FileSet(files...), false)
			if err != nil {
				log.WithError(err).Error("Failed to sync saved files")
				return nil
			}
			util.PrintSummary(os.Stdout, res)
			return nil
		})
	}

	// Wait for the transfers of files that were saved before the interrupt.
	return syncs.Wait()
}

// reload re-reads the config at `path`, so that edits apply to the next
// batch of saved files. The watched folders are fixed when the watch starts.
// If the config can't be read, `prev` keeps being used. It returns false if
// sync_on_save has been turned off.
func reload(path string, prev *sync.Orchestrator) (*sync.Orchestrator, bool) {
	cfg, err := loadConfig(path)
	if err != nil {
		log.WithError(err).Warn("Failed to reload config, using the previous one")
		return prev, true
	}

	if !cfg.ShouldSyncOnSave() {
		log.Info("sync_on_save is disabled, not syncing")
		return nil, false
	}
	return util.NewOrchestrator(cfg), true
}

// beginFiles starts a session for every file in `files` that isn't already
// being synced.
func beginFiles(tracker *sync.Tracker, files []string) (started []string, sessions []sync.Session) {
	for _, file := range files {
		session, ok := tracker.Begin(sync.FileSet(file))
		if !ok {
			log.WithField("path", file).Info("Sync already in progress, skipping")
			continue
		}
		started = append(started, file)
		sessions = append(sessions, session)
	}
	return started, sessions
}

// watchRoots returns the distinct local folders of the resolved remotes.
func watchRoots(resolved map[string]string) (roots []string) {
	seen := map[string]bool{}
	for _, root := range resolved {
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)
	return roots
}
