// Package mcp implements the Model Context Protocol (MCP) server for pdfindex.
//
// The server exposes two tools to MCP clients over stdio:
//   - rebuild_index: detect changed PDFs and rebuild their embeddings
//   - index_status: report pending changes and store statistics
//
// Neither tool queries the index; pdfindex only builds it.
//
// # Basic Usage
//
// The server is started by the serve command:
//
//	pdfindex serve --source-dir docs --store-dir vector_db
//
// It reads MCP messages from stdin and writes responses to stdout. Logs go to
// stderr.
//
// # Tool: rebuild_index
//
//	Request:
//	{
//	  "name": "rebuild_index",
//	  "arguments": {"force": false}
//	}
//
//	Response:
//	{
//	  "outcome": "rebuilt",
//	  "mode": "incremental",
//	  "added": 1,
//	  "modified": 0,
//	  "removed": 0,
//	  "unchanged": 12,
//	  "files_processed": 1,
//	  "files_failed": 0,
//	  "chunks_written": 7,
//	  "record_written": true,
//	  "duration_ms": 2310
//	}
//
// Only one rebuild runs at a time. A second call made while one is running
// fails with -32002 instead of waiting.
//
// # Tool: index_status
//
// Runs change detection without writing anything and, when the store exists,
// adds document, chunk and embedding counts plus an integrity check.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "pdfindex": {
//	      "command": "/usr/local/bin/pdfindex",
//	      "args": ["serve"],
//	      "env": {
//	        "GOOGLE_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params
//   - -32603: Internal error
//   - -32001: Source directory not found
//   - -32002: Rebuild in progress
//   - -32003: Embedding provider failed (record not advanced)
//   - -32004: Vector store or record could not be written
package mcp
