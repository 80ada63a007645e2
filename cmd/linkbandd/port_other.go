//go:build !linux

package main

// ensurePortAvailable's raw-socket probe is Linux-only; elsewhere we let
// http.Server.ListenAndServe report the bind failure directly.
func ensurePortAvailable(host string, port int) error {
	return nil
}
