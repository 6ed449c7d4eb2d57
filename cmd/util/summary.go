package util

import (
	"fmt"
	"io"

	"github.com/buger/goterm"

	"github.com/sidkik/rsync-ssh/pkg/sync"
	"github.com/sidkik/rsync-ssh/pkg/transfer"
)

// PrintSummary prints one line per job of `res`, colored by outcome.
func PrintSummary(out io.Writer, res sync.AggregateResult) {
	for _, jobRes := range res.Results {
		job := jobRes.Job
		target := job.Destination.String()
		if job.SpecificPath != "" {
			target += " (" + job.SpecificPath + ")"
		}
		fmt.Fprintf(out, "%-12s %s[%s] -> %s\n", statusText(jobRes), job.Destination.Host,
			job.Prefix, target)
	}
	fmt.Fprintln(out, res.Message())
}

func statusText(res transfer.Result) string {
	msg := res.Kind.String()
	if res.PostCommandErr != nil {
		msg += " (post command failed)"
	}

	switch res.Kind {
	case transfer.Success:
		if res.PostCommandErr != nil {
			return goterm.Color(msg, goterm.YELLOW)
		}
		return goterm.Color(msg, goterm.GREEN)
	case transfer.SkippedDisabled:
		return goterm.Color(msg, goterm.BLACK)
	case transfer.Warning:
		return goterm.Color(msg, goterm.YELLOW)
	default:
		return goterm.Color(msg, goterm.RED)
	}
}
