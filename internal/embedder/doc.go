// Package embedder generates vector embeddings for document chunks.
//
// Providers: Gemini (through Google's OpenAI-compatible endpoint, via
// langchaingo), Jina AI, OpenAI, any OpenAI-compatible server, and a local
// deterministic provider for offline runs and tests.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "gemini"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	for _, batch := range embedder.Batches(path, chunks, embedder.DefaultBatchSize) {
//	    vectors, err := emb.Embed(ctx, batch)
//	    ...
//	}
//
// Embed returns exactly one embedding per chunk, in chunk order, all of the
// same dimension. A response that breaks this is reported as
// ErrProviderFailed wrapping ErrMalformedResponse.
//
// # Provider Selection
//
//  1. If PDFINDEX_EMBEDDING_PROVIDER is set, use that provider
//  2. Else if GOOGLE_API_KEY is set, use Gemini
//  3. Else if JINA_API_KEY is set, use Jina AI
//  4. Else if OPENAI_API_KEY is set, use OpenAI
//  5. Else fail with ErrNoProviderEnabled
//
// The local provider produces pseudo-vectors with no semantics and is only
// used when selected by name.
//
// Explicit configuration:
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  "openai",
//	    BaseURL:   "http://localhost:11434/v1",
//	    Model:     "nomic-embed-text",
//	    CacheSize: 10000,
//	})
//
// # Caching
//
// Vectors are cached in an LRU keyed by model and chunk content hash.
// Unchanged chunks of a modified document are not re-sent to the provider.
//
// # Error Handling
//
// Rate limits (429) and server errors (5xx) are retried with exponential
// backoff. Other client errors fail immediately:
//
//	_, err := emb.Embed(ctx, batch)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // abort the run; nothing has been recorded
//	}
package embedder
