// Package queue persists inference jobs in SQLite and owns their status
// state machine. Status transitions are monotonic
// (pending -> processing -> completed|failed) except for the explicit
// retry path: a failed job with a scheduled next attempt and remaining
// attempts may be claimed back into processing. Only the workflow
// manager mutates a claimed job.
package queue
