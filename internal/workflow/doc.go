// Package workflow runs the job lifecycle: a bounded pool of workers
// claims queued jobs, drives the matching diagnostic pipeline, persists
// the assessment and handles retries with backoff. Once a job enters
// processing it runs to completion or failure; cancellation only stops
// jobs that have not been dispatched yet.
package workflow
