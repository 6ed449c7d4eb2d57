package fswatch

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/rsync-ssh/pkg/errors"
)

func TestGetPathsToWatch(t *testing.T) {
	tests := []struct {
		name     string
		dirs     []string
		files    []string
		roots    []string
		excludes []string
		expPaths []string
		expError error
	}{
		{
			name: "AllDirectories",
			dirs: []string{"/work/project/src", "/work/project/src/app",
				"/work/project/tests", "/work/web"},
			files: []string{"/work/project/src/app/index.js", "/work/project/tests/test.js"},
			roots: []string{"/work/project", "/work/web"},
			expPaths: []string{"/work/project", "/work/project/src", "/work/project/src/app",
				"/work/project/tests", "/work/web"},
		},
		{
			name: "ExcludedDirectories",
			dirs: []string{"/work/project/.git/objects", "/work/project/_build",
				"/work/project/src/node_modules/express", "/work/project/src/lib"},
			roots:    []string{"/work/project"},
			excludes: []string{".git*", "_build", "src/node_modules"},
			expPaths: []string{"/work/project", "/work/project/src", "/work/project/src/lib"},
		},
		{
			name:     "MissingRoot",
			roots:    []string{"/work/missing"},
			expError: errors.FileNotFound{Path: "/work/missing"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			for _, dir := range test.dirs {
				require.NoError(t, fs.MkdirAll(dir, 0755))
			}
			for _, file := range test.files {
				require.NoError(t, afero.WriteFile(fs, file, []byte("testfile"), 0644))
			}

			w := watcher{roots: test.roots, excludes: test.excludes}
			paths, err := w.getPathsToWatch()
			assert.Equal(t, test.expError, err)

			// Sort for consistency.
			sort.Strings(test.expPaths)
			sort.Strings(paths)
			assert.Equal(t, test.expPaths, paths)
		})
	}
}

func TestExcluded(t *testing.T) {
	excludes := []string{".git*", "_build", "*.pyc", "docs/generated/", "/tmp"}

	tests := []struct {
		path string
		exp  bool
	}{
		{"main.go", false},
		{".git", true},
		{".git/HEAD", true},
		{".gitignore", true},
		{".git/COMMIT_EDITMSG", true},
		{"COMMIT_EDITMSG", true},
		{"src/_build/out.o", true},
		{"src/cache.pyc", true},
		{"src/cache.py", false},
		{"docs/generated", true},
		{"docs/generated/index.html", true},
		{"docs/index.html", false},
		{"src/docs/generated/index.html", false},
		{"tmp/x", true},
	}

	for _, test := range tests {
		assert.Equal(t, test.exp, Excluded(test.path, excludes), test.path)
	}
}

func TestFilterEvents(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work/project/newdir/sub", 0755))
	require.NoError(t, fs.MkdirAll("/work/project/.git", 0755))

	var added []string
	log, _ := logrusTest.NewNullLogger()
	w := watcher{
		roots:    []string{"/work/project"},
		excludes: []string{".git*"},
		log:      log,
		add: func(path string) error {
			added = append(added, path)
			return nil
		},
	}

	events := make(chan fsnotify.Event, 16)
	events <- fsnotify.Event{Name: "/work/project/main.go", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/work/project/main.go", Op: fsnotify.Chmod}
	events <- fsnotify.Event{Name: "/work/project/.git/index", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/work/project/.git/COMMIT_EDITMSG", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/elsewhere/main.go", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/work/project/newdir", Op: fsnotify.Create}
	events <- fsnotify.Event{Name: "/work/project/old.go", Op: fsnotify.Remove}
	close(events)

	var changes []string
	for change := range w.filterEvents(events) {
		changes = append(changes, change)
	}

	assert.Equal(t, []string{"/work/project/main.go", "/work/project/newdir",
		"/work/project/old.go"}, changes)
	assert.Equal(t, []string{"/work/project/newdir", "/work/project/newdir/sub"}, added)
}

func TestDebounce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewFakeClock()
	changes := make(chan string)
	batches := debounce(ctx, clock, time.Second, changes)

	changes <- "/work/project/b.go"
	changes <- "/work/project/a.go"
	changes <- "/work/project/b.go"

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	assert.Equal(t, []string{"/work/project/a.go", "/work/project/b.go"}, <-batches)

	// Changes after a flush start a new batch.
	changes <- "/work/project/c.go"
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	assert.Equal(t, []string{"/work/project/c.go"}, <-batches)

	cancel()
	_, ok := <-batches
	assert.False(t, ok)
}
