// Package reembed recomputes catalog embeddings, typically after the
// embedding model changes. Records are visited in batches, embedded with
// retry and exponential backoff, normalized to unit length and written
// back in place.
//
// The Embed helper is shared with seeding, so freshly loaded records and
// re-embedded ones are produced the same way.
package reembed
