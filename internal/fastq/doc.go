// Package fastq validates gzipped FASTQ files before upload and builds
// the tag map document that travels with them.
//
// Validation is deliberately shallow: the suffix must be .fastq.gz or
// .fq.gz, and the first record of the decompressed stream must have the
// FASTQ shape (header, sequence, separator, matching quality line). That
// catches renamed and truncated files without decompressing gigabytes.
//
// The tag map is a small JSON document mapping each uploaded file's base
// name to its remote key, stamped with the pipeline tag and a generation
// time. Downstream pipelines locate their inputs through it.
package fastq
