/*
Package sync decides what to transfer, and runs the transfers.

A sync request is described by a Scope. The Orchestrator expands the scope
into transfer jobs: one per (folder, destination) pair, or one per (file,
destination) pair when specific files were saved. All the jobs of a run
execute concurrently, and the run only returns once every job has finished.

Failed jobs never fail the run. Their outcome is reported in the
AggregateResult, and it's up to the caller to decide what to do with it.
Only problems that prevent any job from being planned, such as a missing
configuration or an unknown folder, are returned as errors.
*/
package sync
