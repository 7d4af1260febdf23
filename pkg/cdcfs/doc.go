// Package cdcfs implements an in-memory deduplicating file system used
// as a laboratory bench for comparing content-defined chunking (CDC)
// strategies.
//
// Byte streams written through file handles are split by a pluggable
// chunker, hashed by a pluggable hasher, and deduplicated against a
// pluggable chunk store. An optional scrubber re-encodes stored chunks
// into a second store in an offline pass. Throughput, dedup ratio and
// chunk-size measurements are collected per operation.
package cdcfs
