// Package indexer runs the rebuild pipeline for a directory of PDFs.
//
// A Builder performs one run end to end:
//
//  1. Scan: fingerprint every PDF under the source directory
//  2. Detect: classify files against the processed-files record
//  3. Ingest: extract, chunk, embed and upsert the planned files (only when a
//     rebuild is needed)
//  4. Record: persist the new processed-files record and append to the build log
//
// # Basic Usage
//
//	b := indexer.NewBuilder(extractor.New(), chunker.New(), emb)
//
//	report, err := b.Build(ctx, indexer.Options{
//	    SourceDir:  "docs",
//	    RecordPath: "processed_files.json",
//	    StoreDir:   "vector_db",
//	    Collection: "docs",
//	    LogPath:    "vecDataHist.txt",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Changes.Summary())
//
// # Failure Handling
//
// A file that cannot be extracted is skipped and left out of the new record,
// so the next run treats it as added and tries again. Its previous chunks are
// deleted from the store.
//
// An embedding or storage failure aborts the run. The record is not written;
// files upserted before the failure keep their new content and are re-upserted
// idempotently on the next run.
//
// # Concurrency
//
// A run is sequential. Callers that can trigger overlapping runs (the MCP
// server) guard Build with a RunLock.
package indexer
