package sync

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/rsync-ssh/cmd/util"
	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
	"github.com/sidkik/rsync-ssh/pkg/sync"
)

type options struct {
	configPath  string
	remote      string
	destination int
	force       bool
	files       []string

	// destinationSet is true if the destination was set on the command line.
	destinationSet bool
}

// New creates a new `sync` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "sync [file...]",
		Short: "Sync local folders to their remote destinations",
		Long: "Sync local folders to their remote destinations with rsync over ssh.\n\n" +
			"By default, every folder is synced to every enabled destination.\n" +
			"If files are given, only those files are synced.\n" +
			"Use `rsync-ssh remotes` to list the remotes and their destinations.",
		Run: func(cmd *cobra.Command, args []string) {
			opts.files = args
			opts.destinationSet = cmd.Flags().Changed("destination")
			if err := run(context.Background(), opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to the config. Defaults to the nearest "+config.FileName+".")
	cmd.Flags().StringVarP(&opts.remote, "remote", "r", "",
		"Only sync the folder of this remote key.")
	cmd.Flags().IntVarP(&opts.destination, "destination", "d", 0,
		"Only sync to this destination of the remote, starting from 1. "+
			"Selecting a destination syncs it even if it's disabled. "+
			"0 syncs to all destinations.")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false,
		"Sync to disabled destinations as well.")
	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, err := util.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	scope, force := buildScope(cfg, opts)
	res, err := util.NewOrchestrator(cfg).Run(ctx, scope, force)
	if err != nil {
		if errors.Is(err, errors.ErrConfigMissing) {
			return errors.NewFriendlyError("Aborting! - rsync ssh is not configured!\n"+
				"No remotes are defined in %s.", cfg.GetPath())
		}

		var unknown errors.UnknownFolder
		if errors.As(err, &unknown) {
			return errors.NewFriendlyError("%s is unknown.\n"+
				"No workspace folder is named after the first segment of the remote key.", unknown.Key)
		}
		return errors.WithContext(err, "sync")
	}

	util.PrintSummary(os.Stdout, res)
	return nil
}

// buildScope converts the command line options into a sync scope, and
// decides whether disabled destinations should be synced.
func buildScope(cfg config.Config, opts options) (sync.Scope, bool) {
	force := opts.force
	if opts.remote == "" {
		if opts.destinationSet {
			log.Warn("Ignoring --destination since no --remote was selected")
		}
		if len(opts.files) != 0 {
			return sync.FileSet(opts.files...), force
		}
		return sync.AllFolders(), force
	}

	scope := sync.SingleFolder(opts.remote)
	if opts.destinationSet {
		scope = sync.FolderDestination(opts.remote, opts.destination)
	} else if len(cfg.Remotes[opts.remote]) == 1 {
		// There's no choice to make, so selecting the remote is the same as
		// selecting its only destination.
		force = true
	}

	if len(opts.files) != 0 {
		scope = scope.WithFiles(opts.files...)
	}
	return scope, force
}
