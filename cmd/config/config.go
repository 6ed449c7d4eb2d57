package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/rsync-ssh/cmd/util"
	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	getWorkingDirectory           = os.Getwd
	getCurrentUser                = config.CurrentUser
	isTerminal                    = util.IsTerminal
	configExists                  = config.Exists
	writeConfig                   = config.Write
)

const defaultHost = "my-server.my-domain.tld"

var (
	defaultExcludes = []string{".git*", "_build", "blib", "Build"}
	defaultOptions  = []string{"--dry-run", "--delete"}
)

type options struct {
	folders    []string
	remoteHost string
	remoteUser string
}

// New creates a new `config` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create the rsync-ssh configuration for the current directory",
		Long: "Create " + config.FileName + " in the current directory, with one remote\n" +
			"per workspace folder. An existing configuration is never overwritten.\n" +
			"The generated options include --dry-run, so nothing is transferred\n" +
			"until it's removed.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := setupConfig(opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringSliceVar(&opts.folders, "folder", nil,
		"Workspace folders to sync. Defaults to the current directory.")
	cmd.Flags().StringVar(&opts.remoteHost, "host", "",
		"The remote host to sync to. "+
			"Optional: If not set, `rsync-ssh config` will interactively prompt.")
	cmd.Flags().StringVar(&opts.remoteUser, "user", "",
		"The user to connect as. "+
			"Optional: If not set, `rsync-ssh config` will interactively prompt.")
	return cmd
}

// setupConfig writes a new configuration to the working directory.
func setupConfig(opts options) error {
	wd, err := getWorkingDirectory()
	if err != nil {
		return errors.WithContext(err, "get working directory")
	}

	configPath := filepath.Join(wd, config.FileName)
	exists, err := configExists(configPath)
	if err != nil {
		return errors.WithContext(err, "check for existing config")
	}
	if exists {
		return errors.NewFriendlyError("rsync_ssh configuration already exists at %s.", configPath)
	}

	cfg, err := generateConfig(wd, opts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeConfig(configPath, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", configPath)
	return nil
}

func hostValidationFn(host string) (string, bool) {
	if host == "" || strings.ContainsAny(host, " \t@:/") {
		return "The host must be a hostname or IP address, without a user or port.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer string
	field                             *string
	validationFn                      func(string) (string, bool)
}

// generateConfig decides the contents of the new configuration. Anything
// that wasn't set on the command line is prompted for if stdin is a
// terminal, and guessed otherwise.
func generateConfig(wd string, opts options) (config.Config, error) {
	folders := opts.folders
	if len(folders) == 0 {
		folders = []string{wd}
	}

	host, user := opts.remoteHost, opts.remoteUser
	var prompts []prompt
	if host == "" {
		host = defaultHost
		prompts = append(prompts, prompt{
			helpString:    "Enter the host to sync to.\nIt must be reachable with ssh.",
			prompt:        "Remote host",
			defaultAnswer: defaultHost,
			field:         &host,
			validationFn:  hostValidationFn,
		})
	}
	if user == "" {
		user = getCurrentUser()
		prompts = append(prompts, prompt{
			helpString:    "Enter the user to connect to the remote host as.",
			prompt:        "Remote user",
			defaultAnswer: user,
			field:         &user,
		})
	}

	if isTerminal() {
		stdinReader := bufio.NewReader(stdin)
		for _, prompt := range prompts {
			var resp string
			var err error
			for {
				resp, err = promptUser(stdinReader, prompt.helpString, prompt.prompt,
					prompt.defaultAnswer)
				if err != nil {
					return config.Config{}, errors.WithContext(err, "read response")
				}

				if prompt.validationFn == nil {
					break
				}

				validationErr, ok := prompt.validationFn(resp)
				if ok {
					break
				}

				fmt.Fprintln(stdout, validationErr)
			}

			*prompt.field = resp
		}
	} else {
		log.Debug("Not a terminal, using default answers")
	}

	syncOnSave := true
	cfg := config.Config{
		Folders:    opts.folders,
		SyncOnSave: &syncOnSave,
		Excludes:   defaultExcludes,
		Options:    defaultOptions,
		Remotes:    map[string][]config.Destination{},
	}
	for _, folder := range folders {
		name := filepath.Base(filepath.Clean(folder))
		cfg.Remotes[name] = []config.Destination{{
			RemoteHost: host,
			RemotePath: path.Join("/home", user, "Projects", name),
			RemotePort: config.DefaultPort,
			RemoteUser: user,
			Enabled:    config.NewToggle(true),
		}}
	}
	return cfg, nil
}

func promptUser(stdinReader *bufio.Reader, helpString, prompt, defaultAnswer string) (
	string, error) {

	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	choices := []string{}
	if defaultAnswer != "" {
		choices = append(choices, defaultAnswer)
	}
	choices = append(choices, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	if nOptions := len(choices); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range choices {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			choiceStr = strings.TrimSpace(choiceStr)

			// Default to the first choice if user doesn't enter anything.
			choice := 1
			if choiceStr != "" {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					continue
				}
			}

			if choice == nOptions {
				break
			}
			return choices[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}
