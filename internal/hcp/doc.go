// Package hcp provides a wrapper around the AWS S3 SDK client for
// object operations against a Hitachi Content Platform tenant.
//
// The HCP speaks the S3 protocol with a few site-specific constraints:
// path-style addressing, an explicit endpoint URL, signature v4, and a
// certificate that clients do not verify. The Manager type encapsulates
// those constraints and owns one attached bucket at a time, mirroring how
// the lab's pipelines use a single bucket per project.
//
// Object listings are fetched once and cached on the Manager; searches
// run against the cache. Uploads are verified against a locally computed
// ETag (multipart-aware) and the remote object is removed on mismatch.
package hcp
