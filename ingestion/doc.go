// Package ingestion seeds the tool and organization catalogs from YAML
// catalog files.
//
// Records are split into batches that are embedded concurrently on a
// worker pool and upserted into their catalog store. Records without an ID
// get one derived from their kind and name, so seeding the same file twice
// updates records instead of duplicating them.
package ingestion
