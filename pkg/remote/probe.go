// Package remote runs commands on destinations over ssh.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sidkik/rsync-ssh/pkg/command"
	"github.com/sidkik/rsync-ssh/pkg/config"
)

// ProbeKind classifies why a probe failed.
type ProbeKind int

const (
	// ProbeFailed is a probe failure that doesn't fit any other kind.
	ProbeFailed ProbeKind = iota

	// ProbeTimeout means the remote host didn't respond in time.
	ProbeTimeout

	// ProbeAuthOrHostKey means ssh exited with 255 without printing
	// anything. This usually happens when the host key hasn't been
	// accepted yet, or the connection was refused.
	ProbeAuthOrHostKey

	// ProbeRsyncNotFound means the connection worked, but rsync isn't
	// installed on the remote host.
	ProbeRsyncNotFound
)

func (kind ProbeKind) String() string {
	switch kind {
	case ProbeTimeout:
		return "timeout"
	case ProbeAuthOrHostKey:
		return "auth or host key"
	case ProbeRsyncNotFound:
		return "rsync not found"
	default:
		return "failed"
	}
}

// ProbeError is returned by Probe.
type ProbeError struct {
	Kind ProbeKind
	Host string

	// Command is the ssh command that was run, so that users can retry it
	// manually.
	Command command.Command

	Output string
	Err    error
}

func (err *ProbeError) Error() string {
	switch err.Kind {
	case ProbeTimeout:
		return fmt.Sprintf("ssh check command timed out connecting to %s", err.Host)
	case ProbeAuthOrHostKey:
		return "ssh check command failed, have you accepted the remote host key?"
	case ProbeRsyncNotFound:
		return fmt.Sprintf("unable to locate rsync on %s", err.Host)
	}

	if err.Err != nil {
		return fmt.Sprintf("ssh check command failed: %s", err.Err)
	}
	return fmt.Sprintf("ssh check command failed: %s", strings.TrimSpace(err.Output))
}

func (err *ProbeError) Unwrap() error {
	return err.Err
}

// Hint returns extra advice to show the user, if any.
func (err *ProbeError) Hint() []string {
	if err.Kind != ProbeAuthOrHostKey {
		return nil
	}
	return []string{
		"Try running the ssh command manually in a terminal:",
		err.Command.String(),
	}
}

const whichRsync = "LANG=C which rsync"

// Probe checks that `dest` is reachable and returns the path to rsync on the
// remote host.
func Probe(ctx context.Context, runner command.Runner, dest config.EffectiveDestination) (string, error) {
	cmd := SSHCommand(dest, whichRsync)
	cmd.Timeout = time.Duration(dest.Timeout) * time.Second

	res, err := runner.Run(ctx, cmd)
	output := strings.TrimRight(res.Output, " \t\r\n")
	probeErr := &ProbeError{Host: dest.Host, Command: cmd, Output: output}
	switch {
	case err == command.ErrTimeout:
		probeErr.Kind = ProbeTimeout
		return "", probeErr
	case err != nil:
		probeErr.Err = err
		return "", probeErr
	case res.ExitCode == 255 && output == "":
		probeErr.Kind = ProbeAuthOrHostKey
		return "", probeErr
	case res.ExitCode != 0:
		return "", probeErr
	case !strings.HasSuffix(output, "/rsync"):
		probeErr.Kind = ProbeRsyncNotFound
		return "", probeErr
	}
	return output, nil
}
