package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/sidkik/rsync-ssh/pkg/command"
	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
	"github.com/sidkik/rsync-ssh/pkg/sync"
	"github.com/sidkik/rsync-ssh/pkg/transfer"
)

// Mocked for unit testing.
var (
	stdout     io.Writer = os.Stdout
	stdin      io.Reader = os.Stdin
	exit                 = os.Exit
	getwd                = os.Getwd
	isTerminal           = terminal.IsTerminal
)

// HandleFatalError prints `err` and exits. Friendly errors are printed as
// is, and other errors are logged along with their context.
func HandleFatalError(err error) {
	var friendly errors.FriendlyError
	if errors.As(err, &friendly) {
		fmt.Fprintln(os.Stderr, friendly.FriendlyMessage())
		log.WithError(err).Debug("Fatal error")
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic logs the panic along with its stack trace before exiting. It
// should be deferred at the start of main.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("panic", r).Errorf("Unexpected crash. Stack trace:\n%s", debug.Stack())
		exit(1)
	}
}

// IsTerminal returns whether stdin is an interactive terminal.
func IsTerminal() bool {
	return isTerminal(int(os.Stdin.Fd()))
}

// PromptYesOrNo asks the user a yes or no question. Anything other than an
// explicit yes is treated as a no.
func PromptYesOrNo(prompt string) (bool, error) {
	fmt.Fprintf(stdout, "%s [y/N] ", prompt)
	resp, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.WithContext(err, "read response")
	}

	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// LoadConfig parses the config at `path`. If `path` is empty, the config is
// looked up from the working directory.
func LoadConfig(path string) (config.Config, error) {
	if path == "" {
		wd, err := getwd()
		if err != nil {
			return config.Config{}, errors.WithContext(err, "get working directory")
		}

		path, err = config.Find(wd)
		if err != nil {
			if _, ok := err.(errors.FileNotFound); ok {
				return config.Config{}, errors.NewFriendlyError(
					"Aborting! - rsync ssh is not configured!\n"+
						"Run `rsync-ssh config` to create %s.", config.FileName)
			}
			return config.Config{}, errors.WithContext(err, "find config")
		}
	}

	cfg, err := config.Parse(path)
	if err != nil {
		return config.Config{}, errors.WithContext(err, "parse config")
	}
	return cfg, nil
}

// NewOrchestrator returns an Orchestrator for `cfg` that runs transfers on
// the local machine, and logs to the standard logger.
func NewOrchestrator(cfg config.Config) *sync.Orchestrator {
	logger := log.StandardLogger()
	jobs := transfer.NewRunner(command.NewRunner(), logger)
	return sync.New(cfg, jobs, logger)
}
