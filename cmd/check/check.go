package check

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/buger/goterm"
	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sidkik/rsync-ssh/cmd/util"
	"github.com/sidkik/rsync-ssh/pkg/command"
	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
	"github.com/sidkik/rsync-ssh/pkg/remote"
)

// minRsyncVersion is the oldest local rsync that prints the incremental file
// list that transfer output is based on.
var minRsyncVersion = goversion.Must(goversion.NewVersion("3.0.0"))

var rsyncVersionPattern = regexp.MustCompile(`version\s+v?(\d+\.\d+(\.\d+)?)`)

// Mocked for unit testing.
var (
	stdout io.Writer = os.Stdout
	runner           = command.NewRunner()
)

// New creates a new `check` command.
func New() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that every destination is reachable",
		Long: "Check the local rsync, and connect to every destination to check\n" +
			"that rsync is installed on it. Disabled destinations are checked too.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), configPath); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to the config. Defaults to the nearest "+config.FileName+".")
	return cmd
}

type probeResult struct {
	key       string
	dest      config.EffectiveDestination
	rsyncPath string
	err       error
}

func run(ctx context.Context, configPath string) error {
	cfg, err := util.LoadConfig(configPath)
	if err != nil {
		return err
	}

	localVersion, err := checkLocalRsync(ctx)
	if err != nil {
		return errors.WithContext(err, "check local rsync")
	}
	fmt.Fprintf(stdout, "local rsync version: %s\n", localVersion)
	if localVersion.LessThan(minRsyncVersion) {
		fmt.Fprintln(stdout, goterm.Color(fmt.Sprintf(
			"Your rsync is older than %s. Upgrading is recommended.", minRsyncVersion), goterm.YELLOW))
	}

	results := probeAll(ctx, cfg)
	var failed int
	for _, res := range results {
		if res.err == nil {
			fmt.Fprintf(stdout, "%s %s  %s  %s\n", goterm.Color("OK  ", goterm.GREEN),
				res.key, res.dest.Label(), res.rsyncPath)
			continue
		}

		failed++
		fmt.Fprintf(stdout, "%s %s  %s  %s\n", goterm.Color("FAIL", goterm.RED),
			res.key, res.dest.Label(), res.err)
		if probeErr, ok := res.err.(*remote.ProbeError); ok {
			for _, line := range probeErr.Hint() {
				fmt.Fprintln(stdout, "       "+line)
			}
		}
	}

	if failed != 0 {
		return errors.NewFriendlyError("%d of %d destination(s) failed the check.",
			failed, len(results))
	}
	return nil
}

// checkLocalRsync returns the version of the rsync installed on this
// machine.
func checkLocalRsync(ctx context.Context) (*goversion.Version, error) {
	res, err := runner.Run(ctx, command.Command{
		Name:    "rsync",
		Args:    []string{"--version"},
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return nil, errors.WithContext(err, "run rsync")
	}
	if res.ExitCode != 0 {
		return nil, errors.NewFriendlyError("`rsync --version` exited with status %d:\n%s",
			res.ExitCode, res.Output)
	}
	return parseRsyncVersion(res.Output)
}

func parseRsyncVersion(output string) (*goversion.Version, error) {
	match := rsyncVersionPattern.FindStringSubmatch(output)
	if match == nil {
		return nil, errors.New("no version in rsync output")
	}

	version, err := goversion.NewVersion(match[1])
	if err != nil {
		return nil, errors.WithContext(err, "parse version")
	}
	return version, nil
}

// probeAll probes every destination concurrently. The results are ordered by
// remote key, then by destination.
func probeAll(ctx context.Context, cfg config.Config) []probeResult {
	var results []probeResult
	for _, key := range cfg.RemoteKeys() {
		for _, dest := range cfg.Destinations(key) {
			results = append(results, probeResult{key: key, dest: dest})
		}
	}

	var group errgroup.Group
	for i := range results {
		i := i
		group.Go(func() error {
			results[i].rsyncPath, results[i].err = remote.Probe(ctx, runner, results[i].dest)
			log.WithField("host", results[i].dest.Host).WithField("prefix", results[i].key).
				WithError(results[i].err).Debug("Probed destination")
			return nil
		})
	}

	// The probes never return errors.
	_ = group.Wait()
	return results
}
