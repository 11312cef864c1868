// Package toolchain wraps the external toolchain provisioning collaborator
// behind a small interface consumed by the scheduler before each build job.
package toolchain
