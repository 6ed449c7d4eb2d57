package transfer

import (
	"context"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sidkik/rsync-ssh/pkg/command"
	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
	"github.com/sidkik/rsync-ssh/pkg/remote"
)

const dryRunNotice = "NOTICE: Nothing synced. Remove --dry-run from options to sync."

// Runner executes jobs.
type Runner struct {
	commands command.Runner
	log      logrus.FieldLogger
}

// NewRunner returns a Runner that runs commands with `commands` and logs the
// progress of every job to `log`.
func NewRunner(commands command.Runner, log logrus.FieldLogger) *Runner {
	return &Runner{commands: commands, log: log}
}

// execution is the mutable state of a job while it's running.
type execution struct {
	job Job
	log logrus.FieldLogger
	res Result

	source, dest string
	isFile       bool
}

// Run executes `job` to completion. Failures are reported in the Result
// rather than returned.
func (r *Runner) Run(ctx context.Context, job Job) Result {
	e := &execution{
		job: job,
		log: r.log.WithFields(logrus.Fields{
			"host":   job.Destination.Host,
			"prefix": job.Prefix,
		}),
		res: Result{Job: job, State: Init},
	}

	for !e.res.State.Terminal() {
		next := r.step(ctx, e)
		e.log.WithField("state", next).Debug("Transition")
		e.res.State = next
	}
	return e.res
}

func (r *Runner) step(ctx context.Context, e *execution) State {
	switch e.res.State {
	case Init:
		return r.init(e)
	case ProbeRemote:
		return r.probe(ctx, e)
	case RunPreCommand:
		return r.preCommand(ctx, e)
	case RunTransfer:
		return r.transfer(ctx, e)
	case RunPostCommand:
		return r.postCommand(ctx, e)
	}

	e.res.Kind = TransferFailed
	e.res.Err = errors.New("unexpected state " + e.res.State.String())
	return Failed
}

func (r *Runner) init(e *execution) State {
	dest := e.job.Destination
	if !e.job.ForceSync && !dest.Enabled {
		e.log.Info("Skipping, destination is disabled.")
		e.res.Kind = SkippedDisabled
		return Skipped
	}

	var err error
	e.source, e.dest, e.isFile, err = e.job.Paths()
	if err != nil {
		e.log.WithError(err).Error("Failed to inspect local path")
		e.res.Kind = TransferFailed
		e.res.Err = errors.WithContext(err, "get paths")
		return Failed
	}
	return ProbeRemote
}

func (r *Runner) probe(ctx context.Context, e *execution) State {
	rsyncPath, err := remote.Probe(ctx, r.commands, e.job.Destination)
	if err != nil {
		e.log.Error(err.Error())
		if probeErr, ok := err.(*remote.ProbeError); ok {
			for _, line := range probeErr.Hint() {
				e.log.Error("       " + line)
			}
			if probeErr.Output != "" {
				e.log.Error(probeErr.Output)
			}
			e.res.Output = probeErr.Output
		}
		e.res.Kind = ProbeFailed
		e.res.Err = err
		return Failed
	}

	e.res.RsyncPath = rsyncPath
	return RunPreCommand
}

func (r *Runner) preCommand(ctx context.Context, e *execution) State {
	preCommand := e.job.Destination.PreCommand
	if preCommand == "" {
		return RunTransfer
	}

	e.log.Info("Running pre command: " + preCommand)
	res, err := remote.RunInLoginShell(ctx, r.commands, e.job.Destination, preCommand)
	e.res.ExitCode = res.ExitCode
	e.res.Output = res.Output

	if err == nil && res.ExitCode != 0 {
		err = CommandError{Name: "pre command", ExitCode: res.ExitCode, Output: res.Output}
	}
	if err != nil {
		logOutput(e.log.Error, res.Output)
		e.log.WithError(err).Error("Pre command failed, not syncing")
		e.res.Kind = PreCommandFailed
		e.res.Err = err
		return Failed
	}

	logOutput(e.log.Info, res.Output)
	return RunTransfer
}

func (r *Runner) transfer(ctx context.Context, e *execution) State {
	dest := e.job.Destination
	dryRun := IsDryRun(dest.Options)
	cmd := RsyncCommand(dest, e.source, e.dest, e.res.RsyncPath)
	e.log.Info(cmd.String())

	res, err := r.commands.Run(ctx, cmd)
	e.res.ExitCode = res.ExitCode
	e.res.Output = res.Output

	switch {
	case err != nil:
		e.log.WithError(err).Error("Failed to run rsync")
		e.res.Kind = TransferFailed
		e.res.Err = errors.WithContext(err, "rsync")
	case res.ExitCode == 0:
		output := res.Output
		if e.isFile {
			output = rewriteFileOutput(output, dest.RemotePath, e.dest)
		}
		logOutput(e.log.Info, output)
		if dryRun {
			e.log.Info(dryRunNotice)
		}
		e.res.Kind = Success
	case dryRun && strings.Contains(res.Output, "No such file or directory"):
		e.log.Warnf("Unable to do dry run, remote directory %s does not exist.", path.Dir(e.dest))
		e.res.Kind = Warning
	default:
		logOutput(e.log.Error, res.Output)
		e.res.Kind = TransferFailed
		e.res.Err = CommandError{Name: "rsync", ExitCode: res.ExitCode, Output: res.Output}
	}
	return RunPostCommand
}

func (r *Runner) postCommand(ctx context.Context, e *execution) State {
	final := Done
	if e.res.Kind == TransferFailed {
		final = Failed
	}

	postCommand := e.job.Destination.PostCommand
	if postCommand == "" {
		return final
	}

	e.log.Info("Running post command: " + postCommand)
	res, err := remote.RunInLoginShell(ctx, r.commands, e.job.Destination, postCommand)
	if err == nil && res.ExitCode != 0 {
		err = CommandError{Name: "post command", ExitCode: res.ExitCode, Output: res.Output}
	}
	if err != nil {
		logOutput(e.log.Error, res.Output)
		e.log.WithError(err).Error("Post command failed")
		e.res.PostCommandErr = err
		return final
	}

	logOutput(e.log.Info, res.Output)
	return final
}

// RsyncCommand returns the rsync invocation that copies `source` to `dest`
// on the destination host. If the options don't request a dry run, the
// parent of `dest` is created on the remote host before rsync starts.
func RsyncCommand(dest config.EffectiveDestination, source, destPath, rsyncPath string) command.Command {
	args := []string{"-v", "-zar", "-e", strings.Join(remote.SSHArgs(dest), " ")}
	for _, option := range dest.Options {
		args = append(args, SplitOption(option)...)
	}
	for _, exclude := range dest.Excludes {
		args = append(args, "--exclude="+exclude)
	}
	args = append(args, source, dest.Target()+":"+remote.SingleQuote(destPath))

	if !IsDryRun(dest.Options) {
		args = append(args, "--rsync-path",
			"mkdir -p "+remote.SingleQuote(path.Dir(destPath))+" && "+rsyncPath)
	}
	return command.Command{Name: "rsync", Args: args}
}

// rewriteFileOutput replaces lines naming the transferred file by its
// basename with its path relative to the remote root.
func rewriteFileOutput(output, remoteRoot, destPath string) string {
	relative := strings.TrimPrefix(strings.TrimPrefix(destPath, remoteRoot), "/")
	basename := path.Base(destPath)
	if relative == basename {
		return output
	}

	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, "\r") == basename {
			lines[i] = relative
		}
	}
	return strings.Join(lines, "\n")
}

func logOutput(logFn func(...interface{}), output string) {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return
	}
	logFn(output)
}
