// Package ingestion turns policy documents into retrievable chunks.
//
// The Pipeline type manages the ingestion workflow:
//   - Discovering PDF, DOCX and plain text files under a data root
//   - Inferring document metadata from folder and filename conventions
//   - Splitting text into chunks tagged with section headings
//   - Expanding medical acronyms for better lexical recall
//   - Persisting chunks to disk and indexing them into the vector store
//
// Documents are independent, so parsing runs concurrently across a worker
// pool. A document that fails to parse is logged and skipped; it never
// aborts the batch.
package ingestion
