// Package scheduler runs named jobs on cron schedules.
//
// A Runner owns a set of jobs, fires them from a single tick loop in a
// fixed time zone, lets callers trigger a job out of band, and offers a
// blocking startup gate (ReconcileOnStartup) that re-runs a job body when
// the data it maintains is stale.
//
// Tick-triggered runs of one job never overlap within a process. Manual
// runs may overlap a tick-triggered run of the same job unless the job is
// registered as Exclusive; the order of their side effects is undefined.
// Nothing here coordinates across processes.
package scheduler
