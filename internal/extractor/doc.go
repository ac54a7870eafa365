// Package extractor turns PDF files into plain text, one entry per page.
//
// Extraction is treated as an opaque collaborator: file bytes in, text out.
// The default implementation delegates to the langchaingo PDF document loader.
//
// # Basic Usage
//
//	ext := extractor.New()
//	doc, err := ext.Extract(ctx, "/data/docs/manual.pdf")
//	if errors.Is(err, types.ErrExtraction) {
//	    // corrupt or unreadable: skip this file, keep going
//	}
//
//	fmt.Printf("%d pages, %d characters\n", len(doc.Pages), len(doc.Text()))
//
// # Failure Policy
//
// Every failure is wrapped in types.ErrExtraction, including PDFs that parse
// but contain no text layer (scanned images). Callers log the file and continue
// with the remaining files; a single bad document never aborts a build.
package extractor
