// Package transfer runs a single rsync transfer to a single destination.
//
// A transfer is a small state machine. Each job probes the remote host,
// runs the optional pre command, runs rsync, and then runs the optional post
// command:
//
//	Init -> ProbeRemote -> RunPreCommand -> RunTransfer -> RunPostCommand -> Done
//
// Any state may move to Failed, and Init may move to Skipped. Done, Failed
// and Skipped are terminal.
package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
)

var fs = afero.NewOsFs()

// State is a step of a transfer.
type State int

const (
	Init State = iota
	ProbeRemote
	RunPreCommand
	RunTransfer
	RunPostCommand
	Done
	Skipped
	Failed
)

var stateNames = map[State]string{
	Init:           "Init",
	ProbeRemote:    "ProbeRemote",
	RunPreCommand:  "RunPreCommand",
	RunTransfer:    "RunTransfer",
	RunPostCommand: "RunPostCommand",
	Done:           "Done",
	Skipped:        "Skipped",
	Failed:         "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal returns whether no more transitions can happen after `s`.
func (s State) Terminal() bool {
	return s == Done || s == Skipped || s == Failed
}

// Kind summarizes the outcome of a job.
type Kind int

const (
	Success Kind = iota
	SkippedDisabled
	ProbeFailed
	PreCommandFailed
	TransferFailed

	// Warning is a dry run against a remote directory that doesn't exist
	// yet. Nothing went wrong, but nothing could be checked either.
	Warning
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case SkippedDisabled:
		return "skipped"
	case ProbeFailed:
		return "probe failed"
	case PreCommandFailed:
		return "pre command failed"
	case TransferFailed:
		return "transfer failed"
	case Warning:
		return "warning"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Job is a single transfer of a local folder, or of a path within it, to one
// destination.
type Job struct {
	// Prefix is the remote key that the local folder was resolved from.
	Prefix string

	// LocalRoot is the absolute path of the local folder.
	LocalRoot string

	Destination config.EffectiveDestination

	// SpecificPath narrows the transfer to a file or directory within
	// LocalRoot. It's ignored if it's not strictly inside LocalRoot.
	SpecificPath string

	// ForceSync transfers even if the destination is disabled.
	ForceSync bool
}

// Paths returns the rsync source and the remote destination path for the
// job. `isFile` is true if the job transfers a single file.
func (job Job) Paths() (source, dest string, isFile bool, err error) {
	root := strings.TrimRight(job.LocalRoot, string(filepath.Separator))
	source = root + string(filepath.Separator)
	dest = job.Destination.RemotePath

	if job.SpecificPath == "" || !strings.HasPrefix(job.SpecificPath, source) {
		return source, dest, false, nil
	}

	fi, err := fs.Stat(job.SpecificPath)
	switch {
	case os.IsNotExist(err):
		// Deleted files are handled by syncing the whole folder.
		return source, dest, false, nil
	case err != nil:
		return "", "", false, errors.WithContext(err, "stat")
	}

	dest += filepath.ToSlash(strings.TrimPrefix(job.SpecificPath, root))
	if fi.IsDir() {
		return strings.TrimRight(job.SpecificPath, string(filepath.Separator)) +
			string(filepath.Separator), dest, false, nil
	}
	return job.SpecificPath, dest, true, nil
}

// Result is the outcome of a job. It's never modified after Run returns.
type Result struct {
	Job   Job
	Kind  Kind
	State State

	// Err is set when Kind is a failure.
	Err error

	// ExitCode and Output are from the last command that ran in the
	// transfer or pre command phase.
	ExitCode int
	Output   string

	// RsyncPath is the location of rsync on the remote host, as found by
	// the probe.
	RsyncPath string

	// PostCommandErr is set if the post command failed. It doesn't affect
	// Kind.
	PostCommandErr error
}

// Failed returns whether the job didn't complete.
func (res Result) Failed() bool {
	return res.Kind != Success && res.Kind != SkippedDisabled && res.Kind != Warning
}

// CommandError is returned when a command on the remote host exits with a
// non-zero status.
type CommandError struct {
	Name     string
	ExitCode int
	Output   string
}

func (err CommandError) Error() string {
	return fmt.Sprintf("%s exited with status %d", err.Name, err.ExitCode)
}

// SplitOption splits an rsync option on its first space, so that options can
// be written as "--foo bar" in the config.
func SplitOption(option string) []string {
	return strings.SplitN(option, " ", 2)
}

// IsDryRun returns whether any of the options requests a dry run.
func IsDryRun(options []string) bool {
	for _, option := range options {
		if strings.Contains(option, "--dry-run") {
			return true
		}
	}
	return false
}
