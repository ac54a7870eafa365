// Package record persists which source files have been indexed and keeps the
// human-readable build log.
//
// The processed-files record is a JSON object mapping each indexed path to its
// fingerprint:
//
//	{
//	  "manuals/install.pdf": "sha256:9f86d0...",
//	  "report.pdf": "sha256:2c26b4..."
//	}
//
// It is loaded once at the start of a run and written once, atomically, at the
// end of a successful run. Files that failed extraction are left out so the
// next run retries them.
//
// The build log gains one line per run:
//
//	2024-05-01 09:30:00 - INFO - Vector store updated: mode=incremental added=1 ...
package record
