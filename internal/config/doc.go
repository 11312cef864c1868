// Package config loads and validates the declarative release matrix: the
// ordered list of targets plus the command templates used to provision
// toolchains and invoke the compiler. Validation fills default toolchain
// triples and rejects entries the orchestrator cannot build.
package config
