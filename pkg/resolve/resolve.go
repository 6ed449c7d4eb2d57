// Package resolve binds the remote keys of the configuration to local
// workspace folders.
//
// A remote key names a folder relative to a workspace folder with the same
// name as the key's first path segment. For example, the key
// `project/src` binds to `/home/alice/project/src` when
// `/home/alice/project` is a workspace folder.
package resolve

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"
)

// Mocked out for unit testing.
var evalSymlinks = filepath.EvalSymlinks

// Resolve returns the local path of every remote key that matches a
// workspace folder. Keys without a match are absent from the result.
func Resolve(remoteKeys []string, workspaceFolders []string) map[string]string {
	var folders [][]string
	for _, folder := range workspaceFolders {
		folders = append(folders, segments(Canonicalize(folder)))
	}

	resolved := map[string]string{}
	for _, key := range remoteKeys {
		keySegments := segments(key)
		if len(keySegments) == 0 {
			continue
		}

		for _, folder := range folders {
			if len(folder) == 0 || folder[len(folder)-1] != keySegments[0] {
				continue
			}

			// The key's own segments may cross symlinks, so the joined path
			// is canonicalized like the paths it's later compared against.
			joined := append(append([]string{}, folder...), keySegments[1:]...)
			resolved[key] = Canonicalize(string(filepath.Separator) + filepath.Join(joined...))
			break
		}
	}
	return resolved
}

// Unmatched returns the keys, in sorted order, that don't have a resolved
// path.
func Unmatched(remoteKeys []string, resolved map[string]string) []string {
	var unmatched []string
	for _, key := range remoteKeys {
		if _, ok := resolved[key]; !ok {
			unmatched = append(unmatched, key)
		}
	}
	sort.Strings(unmatched)
	return unmatched
}

// MatchFile returns the keys whose resolved path is `path` or one of its
// parents.
func MatchFile(path string, resolved map[string]string) mapset.Set[string] {
	pathSegments := segments(Canonicalize(path))

	matches := mapset.NewSet[string]()
	for key, root := range resolved {
		if hasPrefix(pathSegments, segments(Canonicalize(root))) {
			matches.Add(key)
		}
	}
	return matches
}

// Canonicalize returns the absolute path of `path` with symlinks evaluated.
// Paths that can't be evaluated, e.g. because they don't exist yet, are only
// made absolute.
func Canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Debug("Failed to get absolute path")
		abs = path
	}

	evaluated, err := evalSymlinks(abs)
	if err != nil {
		return filepath.Clean(abs)
	}
	return evaluated
}

// segments splits a path into its non-empty components. Both the OS
// separator and forward slashes are treated as separators.
func segments(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == os.PathSeparator
	})
}

func hasPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}
