package sync

//go:generate mockery -name JobRunner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/sidkik/rsync-ssh/pkg/config"
	"github.com/sidkik/rsync-ssh/pkg/errors"
	"github.com/sidkik/rsync-ssh/pkg/resolve"
	"github.com/sidkik/rsync-ssh/pkg/transfer"
)

var fs = afero.NewOsFs()

// JobRunner executes a single transfer job.
type JobRunner interface {
	Run(context.Context, transfer.Job) transfer.Result
}

// Orchestrator plans and runs the transfers for a configuration.
type Orchestrator struct {
	config   config.Config
	resolved map[string]string
	jobs     JobRunner
	log      logrus.FieldLogger
}

// AggregateResult is the outcome of a run.
type AggregateResult struct {
	// Session identifies the run in the logs.
	Session string

	TotalJobs int

	// Results are in the same order as the planned jobs.
	Results []transfer.Result
}

// Message is the status line shown once the run completes.
func (res AggregateResult) Message() string {
	if res.TotalJobs == 0 {
		return "done."
	}
	return fmt.Sprintf("Rsyncing to %d destination(s) - done.", res.TotalJobs)
}

// Failed returns the results of the jobs that didn't complete.
func (res AggregateResult) Failed() (failed []transfer.Result) {
	for _, jobRes := range res.Results {
		if jobRes.Failed() {
			failed = append(failed, jobRes)
		}
	}
	return failed
}

// New returns an Orchestrator for `cfg`. The remote keys are resolved
// against the workspace folders immediately, and keys that don't match any
// folder are logged.
func New(cfg config.Config, jobs JobRunner, log logrus.FieldLogger) *Orchestrator {
	keys := cfg.RemoteKeys()
	resolved := resolve.Resolve(keys, cfg.Folders)
	for _, key := range resolve.Unmatched(keys, resolved) {
		log.WithField("prefix", key).Warn("Remote key doesn't match any workspace folder")
	}

	return &Orchestrator{
		config:   cfg,
		resolved: resolved,
		jobs:     jobs,
		log:      log,
	}
}

// Resolved returns the local path of every resolved remote key.
func (o *Orchestrator) Resolved() map[string]string {
	copied := map[string]string{}
	for key, path := range o.resolved {
		copied[key] = path
	}
	return copied
}

// Plan expands `scope` into jobs. `forceSync` applies to every job, unless
// the scope selects destinations by index.
func (o *Orchestrator) Plan(scope Scope, forceSync bool) ([]transfer.Job, error) {
	if len(o.config.Remotes) == 0 {
		return nil, errors.ErrConfigMissing
	}

	keys := o.config.RemoteKeys()
	if scope.Folder != "" {
		if _, ok := o.resolved[scope.Folder]; !ok {
			o.log.WithField("prefix", scope.Folder).Error(scope.Folder + " is unknown")
			return nil, errors.UnknownFolder{Key: scope.Folder}
		}
		keys = []string{scope.Folder}
	}

	var jobs []transfer.Job
	for _, key := range keys {
		root, ok := o.resolved[key]
		if !ok {
			o.log.WithField("prefix", key).Warn(key + " is unknown")
			continue
		}

		destinations, force := o.selectDestinations(key, scope, forceSync)
		if len(destinations) == 0 {
			o.log.WithField("prefix", key).Info("No destinations configured")
			continue
		}

		paths := []string{""}
		if len(scope.Files) != 0 {
			paths = o.filesIn(key, root, scope)
		}

		for _, path := range paths {
			for _, dest := range destinations {
				jobs = append(jobs, transfer.Job{
					Prefix:       key,
					LocalRoot:    root,
					Destination:  dest,
					SpecificPath: path,
					ForceSync:    force,
				})
			}
		}
	}
	return jobs, nil
}

func (o *Orchestrator) selectDestinations(key string, scope Scope, forceSync bool) (
	[]config.EffectiveDestination, bool) {

	destinations := o.config.Destinations(key)
	if scope.Folder == "" || scope.Destination == nil {
		return destinations, forceSync
	}

	switch index := *scope.Destination; {
	case index == 0:
		return destinations, false
	case index >= 1 && index <= len(destinations):
		return destinations[index-1 : index], true
	default:
		o.log.WithField("prefix", key).Debugf(
			"Destination %d doesn't exist, syncing all destinations", index)
		return destinations, forceSync
	}
}

// filesIn returns the distinct canonical paths of the scope's files that
// should be synced for `key`. Files that can't narrow the transfer, because
// they no longer exist or aren't inside `root`, all collapse into a single
// whole-folder sync, which is represented by an empty path.
func (o *Orchestrator) filesIn(key, root string, scope Scope) []string {
	var files []string
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, file := range scope.Files {
		if scope.Folder == "" && !resolve.MatchFile(file, o.resolved).Contains(key) {
			continue
		}

		path := resolve.Canonicalize(file)
		if !narrows(root, path) {
			path = ""
		}
		if seen.Add(path) {
			files = append(files, path)
		}
	}
	return files
}

// narrows returns whether syncing `path` transfers less than all of `root`.
func narrows(root, path string) bool {
	prefix := strings.TrimRight(root, string(filepath.Separator)) + string(filepath.Separator)
	if !strings.HasPrefix(path, prefix) {
		return false
	}

	_, err := fs.Stat(path)
	return err == nil
}

// Run transfers everything in `scope`, and waits for all transfers to
// complete. Individual transfer failures are reported in the result rather
// than returned.
func (o *Orchestrator) Run(ctx context.Context, scope Scope, forceSync bool) (AggregateResult, error) {
	session := uuid.New().String()
	log := o.log.WithField("session", session)

	jobs, err := o.Plan(scope, forceSync)
	if err != nil {
		return AggregateResult{}, errors.WithContext(err, "plan")
	}

	log.WithField("scope", scope.String()).Debugf("Starting %d job(s)", len(jobs))

	results := make([]transfer.Result, len(jobs))
	var group errgroup.Group
	if o.config.MaxParallel > 0 {
		group.SetLimit(o.config.MaxParallel)
	}
	for i, job := range jobs {
		i, job := i, job
		group.Go(func() error {
			results[i] = o.jobs.Run(ctx, job)
			return nil
		})
	}

	// The jobs never return errors.
	_ = group.Wait()

	res := AggregateResult{
		Session:   session,
		TotalJobs: len(jobs),
		Results:   results,
	}
	log.Info(res.Message())
	return res, nil
}
