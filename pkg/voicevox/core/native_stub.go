//go:build !voicevoxcore || !cgo

package core

// Open fails with [ErrUnavailable] in builds without the voicevoxcore tag.
// The mock subpackage provides an Engine for tests.
func Open(Options) (Engine, error) {
	return nil, ErrUnavailable
}
