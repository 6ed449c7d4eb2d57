package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sidkik/rsync-ssh/pkg/version"
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of rsync-ssh.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("rsync-ssh version: %s\n", version.Version)
		},
	}
}
