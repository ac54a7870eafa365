//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// This file is compiled when building without CGO or with the purego tag.
// No C compiler is required and the binary cross-compiles freely.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if the driver can load the sqlite-vec extension
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)

// dsn turns a database path into a connection string that waits on a locked
// database instead of failing immediately
func dsn(path string, readOnly bool) string {
	if path == memoryPath {
		return path
	}
	params := "?_pragma=busy_timeout(5000)"
	if readOnly {
		params += "&mode=ro"
	}
	return "file:" + path + params
}
