//go:build sqlite_vec
// +build sqlite_vec

package storage

// This file is compiled when building with CGO and the sqlite_vec tag.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if the driver can load the sqlite-vec extension
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

// dsn turns a database path into a connection string that waits on a locked
// database instead of failing immediately
func dsn(path string, readOnly bool) string {
	if path == memoryPath {
		return path
	}
	params := "?_busy_timeout=5000"
	if readOnly {
		params += "&mode=ro"
	}
	return "file:" + path + params
}
