// Package merger combines independently built single-architecture binaries
// into one universal artifact. The output is a fat container: a big-endian
// header enumerating each slice's architecture identifier, offset, and size,
// with the input binaries copied verbatim at page-aligned offsets. The
// runtime loader inspects the header and executes the matching slice.
//
// The merge is format-aware and self-contained: inputs are validated as thin
// executables for their declared architectures before any bytes are written,
// and no external merge tool is invoked.
package merger
