// Package scheduler expands the declarative release matrix into build jobs
// and dispatches them across isolated sandboxes. Single-architecture targets
// map to one job; universal targets fan out to one job per constituent
// architecture. Jobs run in parallel, failures stay local to their job, and
// the scheduler joins on every constituent before releasing results to the
// merge and publish stages.
package scheduler
