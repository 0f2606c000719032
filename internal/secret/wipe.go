// Package secret holds helpers for handling sensitive byte buffers.
package secret

import "runtime"

// Wipe overwrites every buffer with zeroes. Derived keys, IVs, and encoded
// passwords are passed here as soon as they are no longer needed.
func Wipe(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
	// Keep the buffers reachable until the stores above have happened.
	runtime.KeepAlive(bufs)
}
