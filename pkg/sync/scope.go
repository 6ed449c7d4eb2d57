package sync

import (
	"fmt"
	"sort"
	"strings"
)

// Scope describes which folders, destinations and files a run transfers.
type Scope struct {
	// Folder is the remote key to sync. If empty, every key is synced.
	Folder string

	// Destination selects a destination of Folder. Index 0 means every
	// destination, and indices starting at 1 select a single destination.
	// It's ignored when Folder is empty.
	Destination *int

	// Files restricts the transfer to specific local paths.
	Files []string
}

// AllFolders syncs every destination of every folder.
func AllFolders() Scope {
	return Scope{}
}

// SingleFolder syncs every destination of `key`.
func SingleFolder(key string) Scope {
	return Scope{Folder: key}
}

// FolderDestination syncs the destination at `index` of `key`.
func FolderDestination(key string, index int) Scope {
	return Scope{Folder: key, Destination: &index}
}

// FileSet syncs `files` to the destinations of the folders containing them.
func FileSet(files ...string) Scope {
	return Scope{Files: files}
}

// WithFiles returns a copy of the scope restricted to `files`.
func (scope Scope) WithFiles(files ...string) Scope {
	scope.Files = files
	return scope
}

// Key identifies the scope. Two scopes with the same key transfer the same
// paths to the same destinations.
func (scope Scope) Key() string {
	folder := scope.Folder
	if folder == "" {
		folder = "*"
	}

	dest := "*"
	if scope.Folder != "" && scope.Destination != nil {
		dest = fmt.Sprint(*scope.Destination)
	}

	files := append([]string{}, scope.Files...)
	sort.Strings(files)
	return fmt.Sprintf("%s[%s]:%s", folder, dest, strings.Join(files, ","))
}

func (scope Scope) String() string {
	var parts []string
	if scope.Folder == "" {
		parts = append(parts, "all folders")
	} else {
		parts = append(parts, fmt.Sprintf("folder %q", scope.Folder))
		if scope.Destination != nil {
			parts = append(parts, fmt.Sprintf("destination %d", *scope.Destination))
		}
	}
	if len(scope.Files) != 0 {
		parts = append(parts, fmt.Sprintf("%d file(s)", len(scope.Files)))
	}
	return strings.Join(parts, ", ")
}
