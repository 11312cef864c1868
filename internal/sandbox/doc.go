// Package sandbox abstracts the isolated execution environments build jobs
// run in. The scheduler only depends on the Sandbox and Factory interfaces;
// the bundled backend runs local processes in per-job temporary directories
// with a scrubbed environment. Container or remote-worker backends can be
// swapped in without touching the scheduler.
package sandbox
