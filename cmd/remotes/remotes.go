package remotes

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sidkik/rsync-ssh/cmd/util"
	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/resolve"
)

// New creates a new `remotes` command.
func New() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "remotes",
		Short: "List the remotes and their destinations",
		Long: "List the configured remote keys, the local folder each one resolves\n" +
			"to, and its destinations. The numbers can be passed to\n" +
			"`rsync-ssh sync --remote <key> --destination <n>`.",
		Run: func(_ *cobra.Command, _ []string) {
			cfg, err := util.LoadConfig(configPath)
			if err != nil {
				util.HandleFatalError(err)
			}
			printRemotes(os.Stdout, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to the config. Defaults to the nearest "+config.FileName+".")
	return cmd
}

func printRemotes(out io.Writer, cfg config.Config) {
	keys := cfg.RemoteKeys()
	resolved := resolve.Resolve(keys, cfg.Folders)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "All\tSync all remotes")
	for _, key := range keys {
		local, ok := resolved[key]
		if !ok {
			local = "(unknown)"
		}
		fmt.Fprintf(w, "%s\t%s\n", key, local)

		destinations := cfg.Destinations(key)
		if len(destinations) == 0 {
			fmt.Fprintln(w, "  no destinations known\t")
			continue
		}

		fmt.Fprintln(w, "  0. All\tSync to all destinations")
		for i, dest := range destinations {
			path := dest.RemotePath
			if !dest.Enabled {
				path += " (disabled)"
			}
			fmt.Fprintf(w, "  %d. %s\t%s\n", i+1, dest.Label(), path)
		}
	}
}
