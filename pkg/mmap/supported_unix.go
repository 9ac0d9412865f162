//go:build linux || darwin

package mmap

// Supported reports whether files can be memory-mapped on this platform
const Supported = true
