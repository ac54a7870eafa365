// Package chunker divides extracted document text into fixed-size chunks for embedding.
//
// Chunks overlap so that a sentence cut at a boundary still appears whole in
// one of its neighbours. Splitting prefers paragraph, then line, then word
// boundaries (langchaingo's recursive character splitter).
//
// # Basic Usage
//
//	c := chunker.New() // 5000 characters, 2000 overlap
//	chunks, err := c.ChunkDocument("manuals/install.pdf", doc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, chunk := range chunks {
//	    fmt.Printf("%s: page %d, offset %d, ~%d tokens\n",
//	        chunk.ID(), chunk.Page, chunk.StartOffset, chunk.TokenCount)
//	}
//
// # Chunk Sizing
//
// Sizing is tunable and has no effect on correctness:
//
//	c, err := chunker.NewWithConfig(chunker.Config{ChunkSize: 1000, ChunkOverlap: 200})
//
// The overlap must be smaller than the chunk size.
//
// # Identity
//
// Chunks are numbered 0..n-1 in document order. Together with the document path
// the index forms the vector store key, so re-chunking a modified document
// produces the same identifier space and overwrites in place.
//
// StartOffset is the character offset of the chunk within the joined page text,
// or -1 when the splitter normalised whitespace and the chunk could not be
// located. Page is the 1-based page on which the chunk starts, 0 if unknown.
package chunker
