// Package release holds the value types of the release matrix: target
// specifications, build jobs and their results, merge requests, published
// artifacts, and the error taxonomy shared by the scheduler, merger, and
// publisher.
package release
