// Package field holds a single header field as it was read from a message:
// its name, its unfolded value and the raw bytes it came from, including any
// folding.
package field
