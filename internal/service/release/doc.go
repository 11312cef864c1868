// Package release orchestrates one release run end to end: it gates on the
// trigger verdict, takes the run lock, schedules the build matrix across
// isolated sandboxes, merges universal targets, publishes artifacts with the
// release manifest, and reports per-target status. One target's failure never
// aborts its siblings, but any failure makes the overall run fail.
package release
