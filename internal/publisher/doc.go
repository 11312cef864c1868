// Package publisher names and uploads final release artifacts to the blob
// store collaborator and maintains the release manifest with per-artifact
// checksums. The store write discipline is overwrite-by-name; the bundled
// filesystem store follows it.
package publisher
