// Package types provides shared type definitions for pdfindex.
//
// This package defines domain types used across the scanner, change detector,
// ingestion pipeline and record keeper.
//
// # Core Types
//
// SourceFile is a PDF discovered under the source directory together with its
// content fingerprint:
//
//	file := types.SourceFile{
//	    Path:        "manuals/install.pdf",
//	    Fingerprint: types.Fingerprint("sha256:9f86d0..."),
//	}
//
// Chunk is a contiguous span of extracted text, the unit of embedding:
//
//	chunk := &types.Chunk{
//	    DocumentPath: "manuals/install.pdf",
//	    Index:        3,
//	    Content:      text,
//	}
//	id := chunk.ID() // "manuals/install.pdf#00003"
//
// Chunk identifiers are derived from (document path, chunk index), so writing
// the same document twice overwrites in place instead of appending.
//
// # Errors
//
// The error kinds of a build run are sentinel values wrapped with fmt.Errorf:
//
//	if errors.Is(err, types.ErrEmbeddingProvider) {
//	    // fatal for the run, record not advanced
//	}
package types
