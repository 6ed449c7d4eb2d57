package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/rsync-ssh/cmd/check"
	configCmd "github.com/sidkik/rsync-ssh/cmd/config"
	"github.com/sidkik/rsync-ssh/cmd/remotes"
	syncCmd "github.com/sidkik/rsync-ssh/cmd/sync"
	"github.com/sidkik/rsync-ssh/cmd/util"
	"github.com/sidkik/rsync-ssh/cmd/version"
	"github.com/sidkik/rsync-ssh/cmd/watch"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "RSYNC_SSH_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	log.SetFormatter(util.ConsoleFormatter{})
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:          "rsync-ssh",
		Short:        "Mirror local project folders to remote hosts with rsync over ssh",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		check.New(),
		configCmd.New(),
		remotes.New(),
		syncCmd.New(),
		version.New(),
		watch.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
