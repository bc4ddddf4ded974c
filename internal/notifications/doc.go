// Package notifications pushes assessment and failure alerts to an
// ntfy topic. The pipeline treats every notify call as fire-and-forget;
// an unreachable topic never fails a job.
package notifications
