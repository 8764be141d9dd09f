// Package ingest implements the build-time document pipeline: loading
// reference documents, splitting them into overlapping chunks, enriching
// each chunk with a generated summary, and caching enrichment results by
// content hash so repeated runs skip unchanged work.
//
// The pipeline is a batch job. A failure to load a source document aborts
// the run; a failure to summarize a single chunk does not.
package ingest
