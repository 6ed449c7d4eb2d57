package remote

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sidkik/rsync-ssh/pkg/command"
	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
)

// SSHArgs returns the ssh invocation, without the login target, used for
// every connection to `dest`. The connect timeout is enforced by ssh itself.
func SSHArgs(dest config.EffectiveDestination) []string {
	args := []string{
		dest.SSHBinary, "-q", "-T",
		"-o", "ConnectTimeout=" + strconv.Itoa(dest.Timeout),
	}
	if dest.Port != 0 {
		args = append(args, "-p", strconv.Itoa(dest.Port))
	}
	return args
}

// SSHCommand returns the command that runs `remoteCmd` on `dest`.
func SSHCommand(dest config.EffectiveDestination, remoteCmd string) command.Command {
	args := SSHArgs(dest)
	return command.Command{
		Name: args[0],
		Args: append(args[1:], dest.Target(), remoteCmd),
	}
}

// LoginShellCommand returns the remote command line that runs `userCmd` in
// the remote user's login shell, from within `dir`.
//
// `dir` is wrapped in double quotes inside the shell string, so it may
// contain spaces. Characters that are special within double quotes are
// escaped.
func LoginShellCommand(dir, userCmd string) string {
	return fmt.Sprintf(`$SHELL -l -c "LANG=C cd \"%s\" && %s"`, escapeDoubleQuoted(dir), userCmd)
}

// RunInLoginShell runs `userCmd` on `dest` with the destination's remote path
// as the working directory.
func RunInLoginShell(ctx context.Context, runner command.Runner,
	dest config.EffectiveDestination, userCmd string) (command.Result, error) {

	cmd := SSHCommand(dest, LoginShellCommand(dest.RemotePath, userCmd))
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return res, errors.WithContext(err, "run ssh")
	}
	return res, nil
}

// SingleQuote quotes `s` for a POSIX shell.
func SingleQuote(s string) string {
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}

// escapeDoubleQuoted escapes `s` so that it survives two levels of double
// quoting: the inner quotes around the path, and the outer quotes around the
// `-c` argument.
func escapeDoubleQuoted(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\\\`,
		`"`, `\\\"`,
		`$`, `\\\$`,
		"`", "\\\\\\`",
	)
	return replacer.Replace(s)
}
