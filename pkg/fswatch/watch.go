// Package fswatch notifies the caller when files within the synced folders
// are saved.
package fswatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/rsync-ssh/pkg/errors"
)

var fs = afero.NewOsFs()

// DefaultDelay is how long changes are collected before they're reported.
// Editors often write a file several times when saving it.
const DefaultDelay = 300 * time.Millisecond

// ignoredFiles are never reported. They're written by tools rather than by
// the user.
var ignoredFiles = []string{"COMMIT_EDITMSG"}

// Options configures a watch.
type Options struct {
	// Excludes are rsync exclude patterns. Matching files aren't reported,
	// and matching directories aren't watched.
	Excludes []string

	Delay time.Duration
	Clock clockwork.Clock
	Log   logrus.FieldLogger
}

type watcher struct {
	roots    []string
	excludes []string
	log      logrus.FieldLogger

	// add starts watching a path.
	add func(string) error
}

// Watch watches `roots` recursively. Batches of changed files are sent on
// the returned channel, which is closed once `ctx` is done.
func Watch(ctx context.Context, roots []string, opts Options) (<-chan []string, error) {
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	w := watcher{
		roots:    roots,
		excludes: opts.Excludes,
		log:      opts.Log,
		add:      fsWatcher.Add,
	}

	pathsToWatch, err := w.getPathsToWatch()
	if err == nil {
		for _, path := range pathsToWatch {
			if err = w.add(path); err != nil {
				err = errors.WithContext(err, fmt.Sprintf("watch %q", path))
				break
			}
		}
	}
	if err != nil {
		// Close the watcher so that we release the file handlers for the
		// previously added paths.
		if closeErr := fsWatcher.Close(); closeErr != nil {
			opts.Log.WithError(closeErr).Warn("Failed to close file watcher")
		}
		return nil, err
	}

	go func() {
		<-ctx.Done()
		if err := fsWatcher.Close(); err != nil {
			opts.Log.WithError(err).Warn("Failed to close file watcher")
		}
	}()
	go func() {
		for err := range fsWatcher.Errors {
			opts.Log.WithError(err).Warn("File watcher error")
		}
	}()

	changes := w.filterEvents(fsWatcher.Events)
	return debounce(ctx, opts.Clock, opts.Delay, changes), nil
}

func (w watcher) getPathsToWatch() (paths []string, err error) {
	for _, root := range w.roots {
		fi, err := fs.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.FileNotFound{Path: root}
			}
			return nil, errors.WithContext(err, "stat")
		}

		if !fi.IsDir() {
			return nil, errors.NewFriendlyError("%q is not a directory", root)
		}

		// Because fsnotify doesn't watch directories recursively, we walk
		// the directory and add all its subdirectories.
		subdirs, err := w.getSubdirs(root, root)
		if err != nil {
			return nil, errors.WithContext(err, "get subdirs")
		}
		paths = append(paths, subdirs...)
	}
	return paths, nil
}

// getSubdirs returns `dir` and the directories below it that aren't
// excluded.
func (w watcher) getSubdirs(root, dir string) (paths []string, err error) {
	err = afero.Walk(fs, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if !fi.IsDir() {
			return nil
		}

		if path != root && w.excluded(root, path) {
			return filepath.SkipDir
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

// filterEvents converts file events into the paths that should be synced.
// Directories created after the watch started are watched as well.
func (w watcher) filterEvents(events <-chan fsnotify.Event) <-chan string {
	changes := make(chan string, 64)
	go func() {
		defer close(changes)
		for event := range events {
			if event.Op == fsnotify.Chmod {
				continue
			}

			root, ok := w.rootOf(event.Name)
			if !ok || w.excluded(root, event.Name) {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				w.watchIfDir(root, event.Name)
			}

			changes <- event.Name
		}
	}()
	return changes
}

func (w watcher) watchIfDir(root, path string) {
	fi, err := fs.Stat(path)
	if err != nil || !fi.IsDir() {
		return
	}

	subdirs, err := w.getSubdirs(root, path)
	if err != nil {
		w.log.WithError(err).WithField("path", path).Warn("Failed to watch new directory")
		return
	}
	for _, subdir := range subdirs {
		if err := w.add(subdir); err != nil {
			w.log.WithError(err).WithField("path", subdir).Warn("Failed to watch new directory")
		}
	}
}

func (w watcher) rootOf(path string) (string, bool) {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root, true
		}
	}
	return "", false
}

func (w watcher) excluded(root, path string) bool {
	relative, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(relative, "..") {
		return true
	}
	return Excluded(filepath.ToSlash(relative), w.excludes)
}

// Excluded returns whether the slash separated `relativePath` matches one of
// the rsync exclude patterns, or is a file that's never synced on save.
//
// Patterns without a slash match any path component, as they do in rsync.
// Patterns with a slash are matched against the path from the root.
func Excluded(relativePath string, excludes []string) bool {
	segments := strings.Split(relativePath, "/")
	for _, ignored := range ignoredFiles {
		if segments[len(segments)-1] == ignored {
			return true
		}
	}

	for _, pattern := range excludes {
		if strings.Contains(strings.TrimSuffix(pattern, "/"), "/") {
			pattern = strings.Trim(pattern, "/")
			if match(pattern, relativePath) || match(pattern+"/**", relativePath) {
				return true
			}
			continue
		}

		pattern = strings.TrimSuffix(pattern, "/")
		for _, segment := range segments {
			if match(pattern, segment) {
				return true
			}
		}
	}
	return false
}

func match(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

// debounce collects the paths received on `changes` and sends them in sorted
// batches, at most once every `delay`.
func debounce(ctx context.Context, clock clockwork.Clock, delay time.Duration,
	changes <-chan string) <-chan []string {

	batches := make(chan []string)
	go func() {
		defer close(batches)

		pending := map[string]struct{}{}
		var flush <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case path, ok := <-changes:
				if !ok {
					return
				}
				if len(pending) == 0 {
					flush = clock.After(delay)
				}
				pending[path] = struct{}{}
			case <-flush:
				flush = nil

				var batch []string
				for path := range pending {
					batch = append(batch, path)
				}
				sort.Strings(batch)
				pending = map[string]struct{}{}

				select {
				case batches <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return batches
}
