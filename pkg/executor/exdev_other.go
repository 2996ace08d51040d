//go:build !unix

package executor

// isCrossDevice always reports false on platforms without EXDEV; the
// original rename error surfaces instead.
func isCrossDevice(err error) bool {
	return false
}
